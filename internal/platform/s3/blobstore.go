package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/quilldocs/quill-api/internal/config"
	"github.com/quilldocs/quill-api/internal/platform/logger"
)

// ErrObjectNotFound is returned by FetchBytes when no object exists
// under the requested key.
var ErrObjectNotFound = errors.New("object not found in storage")

// BlobStore reads and writes document bytes in a single S3 bucket. The
// upload path uses StoreBytes and the worker pipeline uses FetchBytes,
// so one instance serves as both the document service's blob writer and
// the task processor's blob store.
type BlobStore struct {
	client *s3.Client
	bucket string
	logger *slog.Logger
}

// New creates a BlobStore for the configured bucket. The context is
// used only while loading the AWS configuration. When cfg.AccessKeyID
// is set the client authenticates with the static key pair, otherwise
// it falls back to the default credential chain. A non-empty
// cfg.Endpoint points the client at an S3-compatible service such as
// MinIO, which usually also needs cfg.UsePathStyle.
func New(ctx context.Context, log *slog.Logger, cfg config.StorageConfig) (*BlobStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket cannot be empty")
	}
	if cfg.Region == "" {
		return nil, errors.New("storage region cannot be empty")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &BlobStore{
		client: client,
		bucket: cfg.Bucket,
		logger: log.With(slog.String("component", "blob_store")),
	}, nil
}

// FetchBytes retrieves the object stored under the given key.
func (b *BlobStore) FetchBytes(ctx context.Context, storageKey string) ([]byte, error) {
	if storageKey == "" {
		return nil, errors.New("storage key cannot be empty")
	}

	log := logger.FromContextOrDefault(ctx, b.logger)

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, storageKey)
		}
		log.Error("failed to fetch object",
			slog.String("error", err.Error()),
			slog.String("storage_key", storageKey))
		return nil, fmt.Errorf("failed to fetch object %s: %w", storageKey, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		log.Error("failed to read object body",
			slog.String("error", err.Error()),
			slog.String("storage_key", storageKey))
		return nil, fmt.Errorf("failed to read object %s: %w", storageKey, err)
	}

	log.Debug("fetched object",
		slog.String("storage_key", storageKey),
		slog.Int("size_bytes", len(data)))
	return data, nil
}

// StoreBytes writes the object under the given key with the given
// content type. Storing under an existing key overwrites the object.
func (b *BlobStore) StoreBytes(ctx context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return errors.New("storage key cannot be empty")
	}

	log := logger.FromContextOrDefault(ctx, b.logger)

	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(storageKey),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		log.Error("failed to store object",
			slog.String("error", err.Error()),
			slog.String("storage_key", storageKey))
		return fmt.Errorf("failed to store object %s: %w", storageKey, err)
	}

	log.Debug("stored object",
		slog.String("storage_key", storageKey),
		slog.Int("size_bytes", len(data)))
	return nil
}
