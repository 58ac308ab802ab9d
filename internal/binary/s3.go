package binary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/newsbias/internal/tracing"
)

// DefaultS3ChunkSize matches the GridFS default chunk size (255 KiB).
const DefaultS3ChunkSize = 255 * 1024

// maxParallelRanges bounds concurrent ranged reads per object.
const maxParallelRanges = 4

// S3API is the subset of the S3 client the store needs.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds configuration for an S3-compatible object store such as R2.
type S3Config struct {
	Bucket          string
	KeyPrefix       string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Region          string
	ChunkSize       int64
}

// S3Store implements Store over an S3-compatible bucket. Each logical bucket
// is a key prefix: "<KeyPrefix><bucket>/<id>". Chunks are ranged reads of
// ChunkSize bytes.
type S3Store struct {
	client    S3API
	bucket    string
	prefix    string
	chunkSize int64
	logger    *slog.Logger
}

// NewS3Store creates an S3Store with an R2-compatible client.
func NewS3Store(cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("access key ID is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("secret access key is required")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if cfg.Region == "" {
		cfg.Region = "auto"
	}

	client := s3.New(s3.Options{
		Region: cfg.Region,
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		BaseEndpoint: aws.String(cfg.Endpoint),
		UsePathStyle: true,
	})

	return NewS3StoreWithClient(client, cfg, logger), nil
}

// NewS3StoreWithClient creates an S3Store around an existing client.
func NewS3StoreWithClient(client S3API, cfg S3Config, logger *slog.Logger) *S3Store {
	if logger == nil {
		logger = slog.Default()
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultS3ChunkSize
	}
	return &S3Store{
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    cfg.KeyPrefix,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// ObjectKey returns the key of id within a logical bucket.
func (s *S3Store) ObjectKey(id, bucket string) string {
	return s.prefix + strings.Trim(bucket, "/") + "/" + id
}

// GetMetadata implements Store.
func (s *S3Store) GetMetadata(ctx context.Context, id, bucket string) (meta *Metadata, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemS3, bucket, tracing.DBOperationGet)
	defer func() { endSpan(err) }()

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.ObjectKey(id, bucket)),
	})
	if isS3NotFound(err) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, id)
	}
	if err != nil {
		return nil, err
	}

	return &Metadata{
		ContentType: aws.ToString(out.ContentType),
		Length:      aws.ToInt64(out.ContentLength),
	}, nil
}

// GetChunks implements Store. Ranges are fetched concurrently, so chunks
// come back in completion order.
func (s *S3Store) GetChunks(ctx context.Context, id, bucket string) (chunks []Chunk, err error) {
	meta, err := s.GetMetadata(ctx, id, bucket)
	if err != nil {
		return nil, err
	}
	if meta.Length <= 0 {
		return nil, nil
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemS3, bucket, tracing.DBOperationFind)
	defer func() { endSpan(err) }()

	n := int((meta.Length + s.chunkSize - 1) / s.chunkSize)
	results := make(chan Chunk, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelRanges)
	for i := 0; i < n; i++ {
		start := int64(i) * s.chunkSize
		end := min(start+s.chunkSize, meta.Length) - 1

		g.Go(func() error {
			data, err := s.readRange(gctx, s.ObjectKey(id, bucket), start, end)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			results <- Chunk{Index: i, Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)

	chunks = make([]Chunk, 0, n)
	for c := range results {
		chunks = append(chunks, c)
	}
	return chunks, nil
}

func (s *S3Store) readRange(ctx context.Context, key string, start, end int64) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, end)),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
