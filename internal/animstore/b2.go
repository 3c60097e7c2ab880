package animstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Backblaze/blazer/b2"
)

// B2Store lists and fetches animation assets from a Backblaze B2 bucket.
type B2Store struct {
	bucket *b2.Bucket
	prefix string
}

// NewB2Store authenticates to Backblaze B2 with accountID/appKey and opens
// bucketName, scoping every List/Fetch call under prefix.
func NewB2Store(bucketName, accountID, appKey, prefix string) (*B2Store, error) {
	if bucketName == "" || accountID == "" || appKey == "" {
		return nil, fmt.Errorf("animstore: b2 store requires bucket, account id, and app key")
	}

	ctx := context.Background()
	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return nil, fmt.Errorf("animstore: b2 client: %w", err)
	}

	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("animstore: b2 open bucket %s: %w", bucketName, err)
	}

	return &B2Store{bucket: bucket, prefix: prefix}, nil
}

func (s *B2Store) List(ctx context.Context) ([]Asset, error) {
	var assets []Asset
	iter := s.bucket.List(ctx, b2.ListPrefix(s.prefix))

	for iter.Next() {
		obj := iter.Object()
		attrs, err := obj.Attrs(ctx)
		if err != nil {
			continue
		}
		name := strings.TrimPrefix(obj.Name(), s.prefix)
		kind, ok := kindForExt(name)
		if !ok {
			continue
		}
		assets = append(assets, Asset{Name: name, Kind: kind, Size: attrs.Size})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("animstore: list b2 objects: %w", err)
	}
	return assets, nil
}

func (s *B2Store) Fetch(ctx context.Context, name string) (string, error) {
	obj := s.bucket.Object(s.prefix + name)
	if _, err := obj.Attrs(ctx); err != nil {
		if errors.Is(err, b2.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("animstore: stat b2 object %s%s: %w", s.prefix, name, err)
	}

	reader := obj.NewReader(ctx)
	defer reader.Close()

	f, err := os.CreateTemp("", "animstreamd-b2-*"+filepath.Ext(name))
	if err != nil {
		return "", fmt.Errorf("animstore: create temp file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("animstore: write b2 object to temp file: %w", err)
	}
	return f.Name(), nil
}
