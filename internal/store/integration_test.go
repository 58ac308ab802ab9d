//go:build integration

package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/onnwee/newsbias/internal/query"
)

// These tests run against live services and skip unless TEST_MONGO_URI or
// TEST_DATABASE_URL is set.

func TestMongoClusterStore_Live(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		t.Fatalf("ConnectMongo: %v", err)
	}
	defer client.Disconnect(context.Background())

	s := NewMongoClusterStore(client.Database("news_bias"), nil)

	docs, err := s.Find(ctx, query.Descriptor{Limit: 5})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	t.Logf("fetched %d clusters", len(docs))

	if _, err := s.FindByID(ctx, "000000000000000000000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}

	if _, err := s.Aggregate(ctx, Pipeline{GroupBy: GroupByCategory}); err != nil {
		t.Errorf("Aggregate: %v", err)
	}
}

func TestMongoClusterStore_LiveDateFallback(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		t.Fatalf("ConnectMongo: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database("news_bias_test_" + time.Now().Format("20060102150405"))
	defer db.Drop(context.Background())

	_, err = db.Collection(ClustersCollection).InsertMany(ctx, []any{
		bson.M{"_id": "crawl", "title": "t", "crawl_date": "2025-05-01"},
		bson.M{"_id": "pub", "title": "t", "pub_date": time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC)},
		bson.M{"_id": "untitled", "crawl_date": "2025-05-01"},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	s := NewMongoClusterStore(db, nil)

	d, err := query.BuildQuery(query.Filters{DateFrom: "2025-05-01", DateTo: "2025-05-01"})
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}
	if n, err := s.Count(ctx, d); err != nil || n != 1 {
		t.Errorf("expected 1 crawl_date match, got %d (%v)", n, err)
	}

	docs, err := s.Find(ctx, query.Descriptor{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(docs) != 2 || docs[0]["_id"] != "pub" || docs[1]["_id"] != "crawl" {
		t.Errorf("expected [pub crawl], got %v", docs)
	}

	days, err := s.Aggregate(ctx, Pipeline{GroupBy: GroupByDay})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(days) != 2 || days[0].Key != "2025-05-02" || days[1].Key != "2025-05-01" {
		t.Errorf("unexpected days %v", days)
	}
}

func TestPostgresArticleLookup_Live(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := OpenPostgres(ctx, url)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, `CREATE TEMP TABLE articles (id TEXT PRIMARY KEY, title TEXT NOT NULL, image_file_id TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO articles VALUES ('A1', 't', 'IMG1'), ('A2', 't', NULL)`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	l := NewPostgresArticleLookup(db, nil)
	if got, err := l.FindImageID(ctx, "A1"); err != nil || got != "IMG1" {
		t.Errorf("expected IMG1, got %q (%v)", got, err)
	}
	if got, err := l.FindImageID(ctx, "A2"); err != nil || got != "" {
		t.Errorf("expected no image, got %q (%v)", got, err)
	}
	if _, err := l.FindImageID(ctx, "A3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
