// Package storage provides the object store that holds uploaded EPUBs,
// synthesized chapter audio, and job manifests. It speaks to any
// S3-compatible bucket and to local file or in-memory buckets for tests.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/memblob"  // mem:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver
	"gocloud.dev/gcerrors"

	"bookcast/internal/config"
)

// ErrNotFound reports that the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Store wraps a blob bucket with the key scheme and error mapping used by
// the rest of the pipeline.
type Store struct {
	bucket *blob.Bucket
}

// Open connects to the bucket described by cfg. It returns an error when no
// store is configured; callers decide whether to run degraded.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	if !cfg.StorageConfigured() {
		return nil, errors.New("object store not configured")
	}

	bucketURL := strings.TrimSpace(cfg.Storage.BucketURL)
	if bucketURL == "" {
		bucketURL = s3URL(cfg.Storage)
		// The s3 driver reads credentials from the environment.
		if cfg.Storage.AccessKey != "" {
			os.Setenv("AWS_ACCESS_KEY_ID", cfg.Storage.AccessKey)
			os.Setenv("AWS_SECRET_ACCESS_KEY", cfg.Storage.SecretKey)
		}
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}
	return &Store{bucket: bucket}, nil
}

func s3URL(storage config.Storage) string {
	bucketURL := fmt.Sprintf("s3://%s", storage.Bucket)
	params := url.Values{}
	if storage.Region != "" {
		params.Set("region", storage.Region)
	}
	if storage.Endpoint != "" {
		params.Set("endpoint", storage.Endpoint)
		params.Set("s3ForcePathStyle", "true")
	}
	if len(params) > 0 {
		bucketURL += "?" + params.Encode()
	}
	return bucketURL
}

// NewFromBucket wraps an already opened bucket. Used by tests.
func NewFromBucket(bucket *blob.Bucket) *Store {
	return &Store{bucket: bucket}
}

// Put writes data under key with the given content type.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	opts := &blob.WriterOptions{ContentType: contentType}
	w, err := s.bucket.NewWriter(ctx, key, opts)
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", key, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", key, err)
	}
	return nil
}

// Get reads the full object under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, mapErr(err, key)
	}
	return data, nil
}

// NewRangeReader opens a reader over [offset, offset+length) of the object.
// A negative length reads to the end.
func (s *Store) NewRangeReader(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error) {
	r, err := s.bucket.NewRangeReader(ctx, key, offset, length, nil)
	if err != nil {
		return nil, mapErr(err, key)
	}
	return r, nil
}

// Stat returns metadata for the object under key.
func (s *Store) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	attrs, err := s.bucket.Attributes(ctx, key)
	if err != nil {
		return ObjectInfo{}, mapErr(err, key)
	}
	return ObjectInfo{
		Key:         key,
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		ModTime:     attrs.ModTime,
	}, nil
}

// Exists reports whether an object is present under key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.bucket.Exists(ctx, key)
	if err != nil {
		return false, mapErr(err, key)
	}
	return ok, nil
}

// Delete removes the object under key. Missing objects are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Delete(ctx, key); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil
		}
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// List returns all object keys under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		if obj.IsDir {
			continue
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// ListDirs returns the immediate sub-prefixes under prefix, without the
// trailing separator. With an empty prefix it enumerates owner namespaces.
func (s *Store) ListDirs(ctx context.Context, prefix string) ([]string, error) {
	var dirs []string
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix, Delimiter: "/"})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		if !obj.IsDir {
			continue
		}
		dir := strings.TrimSuffix(strings.TrimPrefix(obj.Key, prefix), "/")
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}

// Close releases the bucket connection.
func (s *Store) Close() error {
	if s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}

func mapErr(err error, key string) error {
	if gcerrors.Code(err) == gcerrors.NotFound {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", key, err)
}
