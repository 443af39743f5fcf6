package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/rickgao/quote-collector/internal/config"
	"github.com/rickgao/quote-collector/internal/model"
)

// S3API is the subset of *s3.Client used by S3.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// ParseS3URI splits s3://bucket/prefix.
func ParseS3URI(uri string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("%w: not an s3 uri: %q", model.ErrConfiguration, uri)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: s3 uri without bucket: %q", model.ErrConfiguration, uri)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// NewS3Client builds an S3 client from the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %w", model.ErrConfiguration, err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// S3 stores files as objects under bucket/prefix.
type S3 struct {
	client S3API
	bucket string
	prefix string
}

// NewS3 creates an S3 FS.
func NewS3(client S3API, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3) key(p string) string {
	return path.Join(s.prefix, p)
}

// Location implements FS.
func (s *S3) Location(p string) string {
	return "s3://" + s.bucket + "/" + s.key(p)
}

// MkdirAll implements FS by writing a zero-byte "dir/" marker object.
func (s *S3) MkdirAll(ctx context.Context, dir string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(dir) + "/"),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return fmt.Errorf("%w: mkdir %s: %w", model.ErrTransientIO, s.Location(dir), err)
	}
	return nil
}

// Create implements FS. The object is buffered in memory and uploaded on
// Close.
func (s *S3) Create(ctx context.Context, p string) (FileWriter, error) {
	return &s3File{ctx: ctx, fs: s, path: p}, nil
}

type s3File struct {
	ctx  context.Context
	fs   *S3
	path string
	buf  bytes.Buffer
	done bool
}

func (w *s3File) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *s3File) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	_, err := w.fs.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket:        aws.String(w.fs.bucket),
		Key:           aws.String(w.fs.key(w.path)),
		Body:          bytes.NewReader(w.buf.Bytes()),
		ContentLength: aws.Int64(int64(w.buf.Len())),
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", model.ErrTransientIO, w.fs.Location(w.path), err)
	}
	return nil
}

func (w *s3File) Abort() error {
	w.done = true
	w.buf.Reset()
	return nil
}

// Open implements FS.
func (s *S3) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("open %s: %w", s.Location(p), fs.ErrNotExist)
		}
		return nil, fmt.Errorf("%w: get %s: %w", model.ErrTransientIO, s.Location(p), err)
	}
	return out.Body, nil
}

// List implements FS. Directory markers and nested prefixes are excluded.
func (s *S3) List(ctx context.Context, dir string) ([]string, error) {
	prefix := s.key(dir) + "/"
	pager := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var names []string
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", model.ErrTransientIO, s.Location(dir), err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Remove implements FS.
func (s *S3) Remove(ctx context.Context, p string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", model.ErrTransientIO, s.Location(p), err)
	}
	return nil
}

var _ FS = (*S3)(nil)
