package binary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/onnwee/newsbias/internal/tracing"
)

// GridFSStore implements Store over GridFS buckets, reading the
// "<bucket>.files" and "<bucket>.chunks" collections directly.
type GridFSStore struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewGridFSStore creates a GridFSStore on db.
func NewGridFSStore(db *mongo.Database, logger *slog.Logger) *GridFSStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &GridFSStore{db: db, logger: logger}
}

type gridFile struct {
	Length      int64  `bson:"length"`
	ContentType string `bson:"contentType"`
	Metadata    struct {
		ContentType string `bson:"contentType"`
	} `bson:"metadata"`
}

type gridChunk struct {
	N    int    `bson:"n"`
	Data []byte `bson:"data"`
}

// fileID matches ObjectID file ids and, for other id shapes, the raw string.
func fileID(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

// GetMetadata implements Store.
func (s *GridFSStore) GetMetadata(ctx context.Context, id, bucket string) (meta *Metadata, err error) {
	coll := bucket + ".files"
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemMongoDB, coll, tracing.DBOperationGet)
	defer func() { endSpan(err) }()

	var f gridFile
	err = s.db.Collection(coll).FindOne(ctx, bson.D{{Key: "_id", Value: fileID(id)}}).Decode(&f)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, id)
	}
	if err != nil {
		return nil, err
	}

	contentType := f.ContentType
	if contentType == "" {
		contentType = f.Metadata.ContentType
	}
	return &Metadata{ContentType: contentType, Length: f.Length}, nil
}

// GetChunks implements Store.
func (s *GridFSStore) GetChunks(ctx context.Context, id, bucket string) (chunks []Chunk, err error) {
	coll := bucket + ".chunks"
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemMongoDB, coll, tracing.DBOperationFind)
	defer func() { endSpan(err) }()

	opts := options.Find().SetSort(bson.D{{Key: "n", Value: 1}})
	cursor, err := s.db.Collection(coll).Find(ctx, bson.D{{Key: "files_id", Value: fileID(id)}}, opts)
	if err != nil {
		return nil, err
	}

	var rows []gridChunk
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	chunks = make([]Chunk, 0, len(rows))
	for _, r := range rows {
		chunks = append(chunks, Chunk{Index: r.N, Data: r.Data})
	}
	return chunks, nil
}
