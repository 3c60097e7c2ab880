// Package animstore resolves animation source files (BVH hierarchies for
// fkanim, model bundles for vaeanim) from one of several backing stores —
// a local directory, or an S3-compatible, Azure Blob, Google Cloud Storage,
// or Backblaze B2 bucket — behind a single interface. A session never knows
// which backend it got; it only ever calls List and Fetch.
package animstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Fetch when the named asset does not exist in
// the store.
var ErrNotFound = errors.New("animstore: asset not found")

// Asset describes one entry a store can list: an animation source a
// session can be started against.
type Asset struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // "FK" or "VAE"
	Size int64  `json:"size"`
}

// Store lists and fetches animation assets of one kind (FK clips or VAE
// model bundles) from one backend.
type Store interface {
	// List returns every asset currently available.
	List(ctx context.Context) ([]Asset, error)

	// Fetch resolves name to a local filesystem path an animator.Adapter
	// can open directly. Local stores return a path into their root
	// directory; remote stores download into a new temp file on every call
	// and return that path. No store removes those temp files once it has
	// returned them.
	Fetch(ctx context.Context, name string) (string, error)
}

// NewStore builds the Store for one asset kind ("FK" or "VAE") using the
// named backend. opts.LocalDir is the directory (local backend) and
// opts.Prefix the bucket prefix (remote backends) for this kind.
func NewStore(backend string, opts BackendOptions) (Store, error) {
	switch backend {
	case "", "local":
		return NewLocalStore(opts.LocalDir)
	case "s3":
		return NewS3Store(opts.S3Bucket, opts.S3Region, opts.Prefix)
	case "azureblob":
		return NewAzureStore(opts.AzureAccount, opts.AzureAccountKey, opts.AzureContainer, opts.Prefix)
	case "gcs":
		return NewGCSStore(opts.GCSBucket, opts.Prefix)
	case "b2":
		return NewB2Store(opts.B2Bucket, opts.B2AccountID, opts.B2AppKey, opts.Prefix)
	default:
		return nil, fmt.Errorf("animstore: unknown backend %q", backend)
	}
}

// BackendOptions carries every field any backend might need; NewStore only
// reads the ones relevant to the selected backend.
type BackendOptions struct {
	LocalDir string

	S3Bucket string
	S3Region string

	AzureAccount    string
	AzureAccountKey string
	AzureContainer  string

	GCSBucket string

	B2Bucket    string
	B2AccountID string
	B2AppKey    string

	// Prefix scopes a remote backend to one kind's subtree (e.g.
	// "animations/" vs "vae/") within a shared bucket.
	Prefix string
}
