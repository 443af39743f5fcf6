package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rickgao/quote-collector/internal/config"
	"github.com/rickgao/quote-collector/internal/model"
)

// FileWriter is an in-progress file. Close publishes it; Abort discards it.
// Calls after the first Close or Abort are no-ops.
type FileWriter interface {
	io.Writer
	Close() error
	Abort() error
}

// FS is a minimal hierarchical file store.
type FS interface {
	// MkdirAll ensures dir exists.
	MkdirAll(ctx context.Context, dir string) error
	// Create starts a new file at path, replacing any existing one on Close.
	Create(ctx context.Context, path string) (FileWriter, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// List returns the sorted names of the regular files directly under dir.
	// A missing dir yields an empty list.
	List(ctx context.Context, dir string) ([]string, error)
	Remove(ctx context.Context, path string) error
	// Location renders path as an absolute location for logs.
	Location(path string) string
}

// NewFS returns the backend for root.
func NewFS(ctx context.Context, root string, s3cfg config.S3Config, logger *slog.Logger) (FS, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch {
	case strings.HasPrefix(root, "s3://"):
		bucket, prefix, err := ParseS3URI(root)
		if err != nil {
			return nil, err
		}
		client, err := NewS3Client(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("using s3 storage", "bucket", bucket, "prefix", prefix)
		return NewS3(client, bucket, prefix), nil
	case strings.HasPrefix(root, "file://"):
		return NewLocal(strings.TrimPrefix(root, "file://")), nil
	case strings.Contains(root, "://"):
		return nil, fmt.Errorf("%w: unsupported storage root %q", model.ErrConfiguration, root)
	case root == "":
		return nil, fmt.Errorf("%w: empty storage root", model.ErrConfiguration)
	default:
		return NewLocal(root), nil
	}
}
