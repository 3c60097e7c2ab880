package animstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/polymotion/animstreamd/internal/logging"
)

var localLog = logging.L("animstore.local")

// LocalStore serves assets from a directory tree, recognizing .bvh files as
// FK clips and .fbx files as VAE model bundles. It keeps a cached listing
// refreshed by an fsnotify watcher so `list animations` reflects files added
// or removed after the store started, without re-walking the directory on
// every request.
type LocalStore struct {
	root string

	mu      sync.RWMutex
	cached  []Asset
	watcher *fsnotify.Watcher
}

// NewLocalStore opens dir (creating it if missing) and starts watching it
// for changes.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("animstore: local store requires a directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("animstore: create %s: %w", dir, err)
	}

	s := &LocalStore{root: dir}
	if err := s.rescan(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		localLog.Warn("fsnotify unavailable, local store will not auto-refresh", "error", err)
		return s, nil
	}
	if err := watcher.Add(dir); err != nil {
		localLog.Warn("failed to watch animation directory", "dir", dir, "error", err)
		watcher.Close()
		return s, nil
	}
	s.watcher = watcher
	go s.watchLoop()

	return s, nil
}

func (s *LocalStore) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			if err := s.rescan(); err != nil {
				localLog.Warn("rescan after fs event failed", "error", err)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			localLog.Warn("fsnotify watcher error", "error", err)
		}
	}
}

func (s *LocalStore) rescan() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("animstore: read %s: %w", s.root, err)
	}

	assets := make([]Asset, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		kind, ok := kindForExt(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		assets = append(assets, Asset{Name: e.Name(), Kind: kind, Size: info.Size()})
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Name < assets[j].Name })

	s.mu.Lock()
	s.cached = assets
	s.mu.Unlock()
	return nil
}

func kindForExt(name string) (string, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".bvh":
		return "FK", true
	case ".fbx":
		return "VAE", true
	default:
		return "", false
	}
}

// List returns the cached directory listing.
func (s *LocalStore) List(ctx context.Context) ([]Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Asset, len(s.cached))
	copy(out, s.cached)
	return out, nil
}

// Fetch returns the absolute path to name within the store's root. name
// must not escape the root directory.
func (s *LocalStore) Fetch(ctx context.Context, name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", fmt.Errorf("animstore: invalid asset name %q", name)
	}

	path := filepath.Join(s.root, filepath.FromSlash(name))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("animstore: stat %s: %w", path, err)
	}
	return path, nil
}

// Close stops the fsnotify watcher, if one was started.
func (s *LocalStore) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
