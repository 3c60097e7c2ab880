package animstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// AzureStore lists and fetches animation assets from an Azure Blob Storage
// container, authenticating with a shared account key.
type AzureStore struct {
	container *container.Client
	prefix    string
}

// NewAzureStore builds a client for account/accountKey scoped to
// containerName, with every List/Fetch call further scoped under prefix.
func NewAzureStore(account, accountKey, containerName, prefix string) (*AzureStore, error) {
	if account == "" || accountKey == "" || containerName == "" {
		return nil, fmt.Errorf("animstore: azure store requires account, account key, and container")
	}

	cred, err := azblob.NewSharedKeyCredential(account, accountKey)
	if err != nil {
		return nil, fmt.Errorf("animstore: azure shared key credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", account)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("animstore: azure client: %w", err)
	}

	return &AzureStore{
		container: client.ServiceClient().NewContainerClient(containerName),
		prefix:    prefix,
	}, nil
}

func (s *AzureStore) List(ctx context.Context) ([]Asset, error) {
	var assets []Asset
	pager := s.container.NewListBlobsFlatPager(&container.ListBlobsFlatOptions{
		Prefix: &s.prefix,
	})

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("animstore: list azure container blobs: %w", err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			name := strings.TrimPrefix(*item.Name, s.prefix)
			kind, ok := kindForExt(name)
			if !ok {
				continue
			}
			var size int64
			if item.Properties != nil && item.Properties.ContentLength != nil {
				size = *item.Properties.ContentLength
			}
			assets = append(assets, Asset{Name: name, Kind: kind, Size: size})
		}
	}
	return assets, nil
}

func (s *AzureStore) Fetch(ctx context.Context, name string) (string, error) {
	blob := s.container.NewBlobClient(s.prefix + name)

	f, err := os.CreateTemp("", "animstreamd-azure-*"+filepath.Ext(name))
	if err != nil {
		return "", fmt.Errorf("animstore: create temp file: %w", err)
	}
	defer f.Close()

	resp, err := blob.DownloadStream(ctx, nil)
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("animstore: download azure blob %s%s: %w", s.prefix, name, err)
	}
	body := resp.Body
	defer body.Close()

	if _, err := f.ReadFrom(body); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("animstore: write azure blob to temp file: %w", err)
	}
	return f.Name(), nil
}
