package animstore

import (
	"context"
	"fmt"

	"github.com/polymotion/animstreamd/internal/config"
)

// Manager owns the two stores a running daemon needs: one for FK clips,
// one for VAE model bundles. Both share a backend kind but are scoped to
// different roots/prefixes so they never see each other's assets.
type Manager struct {
	fk  Store
	vae Store
}

// NewManager builds both stores from cfg.
func NewManager(cfg *config.Config) (*Manager, error) {
	fk, err := NewStore(cfg.AnimStoreBackend, BackendOptions{
		LocalDir:        cfg.AnimationDir,
		S3Bucket:        cfg.S3Bucket,
		S3Region:        cfg.S3Region,
		AzureAccount:    cfg.AzureAccount,
		AzureAccountKey: cfg.AzureAccountKey,
		AzureContainer:  cfg.AzureContainer,
		GCSBucket:       cfg.GCSBucket,
		B2Bucket:        cfg.B2Bucket,
		B2AccountID:     cfg.B2AccountID,
		B2AppKey:        cfg.B2AppKey,
		Prefix:          joinPrefix(cfg.S3Prefix, "animations/"),
	})
	if err != nil {
		return nil, fmt.Errorf("animstore: build FK store: %w", err)
	}

	vae, err := NewStore(cfg.AnimStoreBackend, BackendOptions{
		LocalDir:        cfg.VAEDir,
		S3Bucket:        cfg.S3Bucket,
		S3Region:        cfg.S3Region,
		AzureAccount:    cfg.AzureAccount,
		AzureAccountKey: cfg.AzureAccountKey,
		AzureContainer:  cfg.AzureContainer,
		GCSBucket:       cfg.GCSBucket,
		B2Bucket:        cfg.B2Bucket,
		B2AccountID:     cfg.B2AccountID,
		B2AppKey:        cfg.B2AppKey,
		Prefix:          joinPrefix(cfg.S3Prefix, "vae/"),
	})
	if err != nil {
		return nil, fmt.Errorf("animstore: build VAE store: %w", err)
	}

	return &Manager{fk: fk, vae: vae}, nil
}

func joinPrefix(base, sub string) string {
	if base == "" {
		return sub
	}
	return base + "/" + sub
}

// Store returns the store for kind ("FK" or "VAE").
func (m *Manager) Store(kind string) (Store, error) {
	switch kind {
	case "FK":
		return m.fk, nil
	case "VAE":
		return m.vae, nil
	default:
		return nil, fmt.Errorf("animstore: unknown kind %q", kind)
	}
}

// List returns every asset across both stores, or just one kind's if kind
// is non-empty.
func (m *Manager) List(ctx context.Context, kind string) ([]Asset, error) {
	if kind != "" {
		store, err := m.Store(kind)
		if err != nil {
			return nil, err
		}
		return store.List(ctx)
	}

	fkAssets, err := m.fk.List(ctx)
	if err != nil {
		return nil, err
	}
	vaeAssets, err := m.vae.List(ctx)
	if err != nil {
		return nil, err
	}
	return append(fkAssets, vaeAssets...), nil
}

// Fetch resolves name under kind's store to a local path.
func (m *Manager) Fetch(ctx context.Context, kind, name string) (string, error) {
	store, err := m.Store(kind)
	if err != nil {
		return "", err
	}
	return store.Fetch(ctx, name)
}
