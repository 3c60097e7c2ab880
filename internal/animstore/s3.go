package animstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store lists and fetches animation assets from an S3-compatible bucket.
// Credentials and region come from the process's standard AWS environment
// (env vars, shared config, or an attached role) — nothing vendor-specific
// is required beyond the bucket name.
type S3Store struct {
	client *s3.Client
	dl     *manager.Downloader
	bucket string
	prefix string
}

// NewS3Store builds a client for bucket/region and scopes every List/Fetch
// call under prefix.
func NewS3Store(bucket, region, prefix string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("animstore: s3 store requires a bucket")
	}

	ctx := context.Background()
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("animstore: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Store{
		client: client,
		dl:     manager.NewDownloader(client),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *S3Store) List(ctx context.Context) ([]Asset, error) {
	var assets []Asset
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("animstore: list s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			kind, ok := kindForExt(name)
			if !ok {
				continue
			}
			assets = append(assets, Asset{Name: name, Kind: kind, Size: aws.ToInt64(obj.Size)})
		}
	}
	return assets, nil
}

func (s *S3Store) Fetch(ctx context.Context, name string) (string, error) {
	f, err := os.CreateTemp("", "animstreamd-s3-*"+filepath.Ext(name))
	if err != nil {
		return "", fmt.Errorf("animstore: create temp file: %w", err)
	}
	defer f.Close()

	_, err = s.dl.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + name),
	})
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("animstore: download s3://%s/%s%s: %w", s.bucket, s.prefix, name, err)
	}
	return f.Name(), nil
}
