package animstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStore lists and fetches animation assets from a Google Cloud Storage
// bucket, authenticating via application default credentials.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore builds a client for bucket, scoping every List/Fetch call
// under prefix.
func NewGCSStore(bucket, prefix string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("animstore: gcs store requires a bucket")
	}

	client, err := storage.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("animstore: gcs client: %w", err)
	}

	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *GCSStore) List(ctx context.Context) ([]Asset, error) {
	var assets []Asset
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix})

	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("animstore: list gcs objects: %w", err)
		}
		name := strings.TrimPrefix(attrs.Name, s.prefix)
		kind, ok := kindForExt(name)
		if !ok {
			continue
		}
		assets = append(assets, Asset{Name: name, Kind: kind, Size: attrs.Size})
	}
	return assets, nil
}

func (s *GCSStore) Fetch(ctx context.Context, name string) (string, error) {
	reader, err := s.client.Bucket(s.bucket).Object(s.prefix + name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("animstore: open gcs object %s%s: %w", s.prefix, name, err)
	}
	defer reader.Close()

	f, err := os.CreateTemp("", "animstreamd-gcs-*"+filepath.Ext(name))
	if err != nil {
		return "", fmt.Errorf("animstore: create temp file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("animstore: write gcs object to temp file: %w", err)
	}
	return f.Name(), nil
}
