package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures the object-store backend.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Validate reports the first missing or malformed field.
func (c S3Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	return nil
}

// Minio stores uploads and batches in one bucket of an S3-compatible object
// store, under the key prefixes uploads/ and batches/<batch>/.
type Minio struct {
	client *minio.Client
	bucket string
	log    *slog.Logger
}

// NewMinio connects to the object store and ensures the bucket exists.
func NewMinio(ctx context.Context, cfg S3Config, log *slog.Logger) (*Minio, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("object store config: %w", err)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Minio{client: client, bucket: cfg.Bucket, log: log}, nil
}

func uploadKey(name string) string { return path.Join("uploads", name) }

func batchKey(batch, name string) string { return path.Join("batches", batch, name) }

func (s *Minio) SaveUpload(ctx context.Context, name string, r io.Reader, size int64) error {
	if err := checkName(name); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucket, uploadKey(name), r, size,
		minio.PutObjectOptions{ContentType: "application/dicom"})
	return err
}

func (s *Minio) OpenUpload(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	if err := checkName(name); err != nil {
		return nil, 0, err
	}
	key := uploadKey(name)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, 0, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, err
	}
	return obj, info.Size, nil
}

func (s *Minio) RemoveUpload(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	return s.client.RemoveObject(ctx, s.bucket, uploadKey(name), minio.RemoveObjectOptions{})
}

func (s *Minio) Put(ctx context.Context, batch, name string, r io.Reader, size int64) error {
	if err := checkName(batch); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucket, batchKey(batch, name), r, size,
		minio.PutObjectOptions{ContentType: "image/png"})
	return err
}

func (s *Minio) Open(ctx context.Context, batch, name string) (io.ReadCloser, error) {
	if err := checkName(batch); err != nil {
		return nil, err
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	key := batchKey(batch, name)
	// Stat first so a missing object fails here rather than on first read.
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, err
	}
	return s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
}

func (s *Minio) List(ctx context.Context, batch string) ([]string, error) {
	if err := checkName(batch); err != nil {
		return nil, err
	}
	prefix := path.Join("batches", batch) + "/"

	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		names = append(names, strings.TrimPrefix(obj.Key, prefix))
	}
	sort.Strings(names)
	return names, nil
}

func (s *Minio) RemoveBatch(ctx context.Context, batch string) error {
	if err := checkName(batch); err != nil {
		return err
	}
	prefix := path.Join("batches", batch) + "/"
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return obj.Err
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return err
		}
	}
	return nil
}

// Sweep removes every upload and batch object last modified before maxAge
// ago.
func (s *Minio) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, prefix := range []string{"uploads/", "batches/"} {
		for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if obj.Err != nil {
				return removed, obj.Err
			}
			if obj.LastModified.After(cutoff) {
				continue
			}
			if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
				s.logger().Warn("sweep failed", "key", obj.Key, "err", err)
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		s.logger().Info("swept stale objects", "removed", removed, "max_age", maxAge)
	}
	return removed, nil
}

// Close is a no-op: object-store contents outlive the process only until the
// next sweep, which is driven by the delivery flow.
func (s *Minio) Close() error { return nil }

func (s *Minio) logger() *slog.Logger {
	if s.log != nil {
		return s.log
	}
	return slog.Default()
}
