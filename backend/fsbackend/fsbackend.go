// Package fsbackend contains an implementation of the backend.Backend
// interface for the filesystem
package fsbackend

import (
	"path/filepath"

	"github.com/mlaplanche/microgit/backend"
	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/ginternals/object"
	"github.com/mlaplanche/microgit/internal/gitpath"
	"github.com/mlaplanche/microgit/internal/keyedmutex"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// we make sure the struct implements the interface
var _ backend.Backend = (*Backend)(nil)

// cacheNumCounters and cacheMaxCost size the object cache: objects are
// immutable and content-addressed, so a modest hot-set is enough to
// absorb the repeated lookups a tree walk or a clone's base-object
// resolution generates.
const (
	cacheNumCounters = 10_000
	cacheMaxCost     = 1 << 25 // 32MiB of cached object payloads
	cacheBufferItems = 64
)

// Backend is a Backend implementation that uses the filesystem to store data
type Backend struct {
	fs   afero.Fs
	root string

	// objectMu serializes access to a given object id so that two
	// concurrent writes of the same content, or a write racing a read,
	// can't observe a half-installed loose object.
	objectMu *keyedmutex.Mutex
	cache    *ristretto.Cache[ginternals.Oid, *object.Object]
}

// New returns a new Backend object backed by fs, rooted at dotGitPath
// (the ".git" directory).
func New(fs afero.Fs, dotGitPath string) *Backend {
	cache, err := ristretto.NewCache(&ristretto.Config[ginternals.Oid, *object.Object]{
		NumCounters: cacheNumCounters,
		MaxCost:     cacheMaxCost,
		BufferItems: cacheBufferItems,
	})
	if err != nil {
		// A cache is a performance optimization, not a correctness
		// requirement: fall back to no caching rather than failing Init.
		cache = nil
	}
	return &Backend{
		fs:       fs,
		root:     dotGitPath,
		objectMu: keyedmutex.New(),
		cache:    cache,
	}
}

// Close releases the backend's cache
func (b *Backend) Close() error {
	if b.cache != nil {
		b.cache.Close()
	}
	return nil
}

// Init initializes a repository
func (b *Backend) Init() error {
	// Create the directories
	dirs := []string{
		gitpath.ObjectsPath,
		gitpath.RefsTagsPath,
		gitpath.RefsHeadsPath,
		gitpath.ObjectsInfoPath,
		gitpath.ObjectsPackPath,
	}
	for _, d := range dirs {
		p := filepath.Join(b.root, d)
		if err := b.fs.MkdirAll(p, 0o750); err != nil {
			return xerrors.Errorf("could not create directory %s: %w", d, err)
		}
	}

	// Create the files with the default content
	// (taken from a repo created on github)
	files := []struct {
		path    string
		content []byte
	}{
		{
			path:    gitpath.DescriptionPath,
			content: []byte("Unnamed repository; edit this file 'description' to name the repository.\n"),
		},
	}
	for _, f := range files {
		p := filepath.Join(b.root, f.path)
		if err := afero.WriteFile(b.fs, p, f.content, 0o644); err != nil {
			return xerrors.Errorf("could not create file %s: %w", f.path, err)
		}
	}

	if err := b.setDefaultCfg(); err != nil {
		return xerrors.Errorf("could not set the default config: %w", err)
	}

	head := ginternals.NewSymbolicReference(ginternals.Head, ginternals.LocalBranchFullName(backend.DefaultBranch))
	if err := b.WriteReference(head); err != nil {
		return xerrors.Errorf("could not write HEAD: %w", err)
	}

	return nil
}
