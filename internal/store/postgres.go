package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/onnwee/newsbias/internal/tracing"
)

// PostgresArticleLookup implements ArticleLookup over an articles table
// mirrored from the raw article collection.
//
// Expected schema:
//
//	CREATE TABLE articles (
//	    id            TEXT PRIMARY KEY,
//	    title         TEXT NOT NULL,
//	    image_file_id TEXT
//	);
type PostgresArticleLookup struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresArticleLookup creates a new PostgresArticleLookup.
func NewPostgresArticleLookup(db *sql.DB, logger *slog.Logger) *PostgresArticleLookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresArticleLookup{
		db:     db,
		logger: logger,
	}
}

// OpenPostgres opens a connection pool for the lib/pq driver.
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, upstream(err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, upstream(err)
	}
	return db, nil
}

// FindImageID implements ArticleLookup.
func (l *PostgresArticleLookup) FindImageID(ctx context.Context, articleID string) (imageID string, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemPostgreSQL, "articles", tracing.DBOperationGet)
	defer func() { endSpan(err) }()

	var image sql.NullString
	query := `SELECT image_file_id FROM articles WHERE id = $1`
	err = l.db.QueryRowContext(ctx, query, articleID).Scan(&image)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		l.logger.ErrorContext(ctx, "article lookup failed",
			slog.String("article_id", articleID),
			slog.String("error", err.Error()))
		return "", upstream(err)
	}
	if !image.Valid {
		return "", nil
	}
	return image.String, nil
}
