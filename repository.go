// Package microgit ties the loose object store, tree codec, pack
// decoder and upload-pack v2 client together into the handful of
// end-to-end operations a command-line porcelain needs: opening or
// creating a repository, hashing a working tree, checking a commit's
// tree out, and cloning from a remote.
package microgit

import (
	"path/filepath"

	"github.com/mlaplanche/microgit/backend"
	"github.com/mlaplanche/microgit/backend/fsbackend"
	"github.com/mlaplanche/microgit/env"
	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/ginternals/config"
	"github.com/mlaplanche/microgit/ginternals/object"
	"golang.org/x/xerrors"
)

// Repository is a handle onto a repository's administrative directory
// and its working tree.
type Repository struct {
	Config *config.Config
	dotGit backend.Backend
}

// Open locates the repository containing workingDirectory (the
// process's current directory when empty, via the memoized repository
// locator) and opens its object store.
func Open(e *env.Env, workingDirectory string) (*Repository, error) {
	cfg, err := loadConfig(e, workingDirectory)
	if err != nil {
		return nil, err
	}
	return &Repository{
		Config: cfg,
		dotGit: fsbackend.New(cfg.FS, cfg.GitDirPath),
	}, nil
}

// loadConfig resolves a Config for workingDirectory. When
// workingDirectory is empty, it goes through the process-wide memoized
// repository locator rather than re-walking the ancestor chain.
func loadConfig(e *env.Env, workingDirectory string) (*config.Config, error) {
	if workingDirectory != "" {
		return config.LoadConfig(e, config.LoadConfigOptions{
			WorkingDirectory: workingDirectory,
		})
	}

	gitDir, err := ginternals.LocateRepository()
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(e, config.LoadConfigOptions{
		WorkingDirectory: filepath.Dir(gitDir),
		GitDirPath:       gitDir,
		SkipGitDirLookUp: true,
	})
}

// InitRepository creates a new repository at dir (the process's
// current directory when empty), writing its administrative directory
// and HEAD, and returns a handle to it.
func InitRepository(e *env.Env, dir string) (*Repository, error) {
	if dir == "" {
		dir = "."
	}
	cfg, err := config.LoadConfig(e, config.LoadConfigOptions{
		WorkingDirectory: dir,
		SkipGitDirLookUp: true,
	})
	if err != nil {
		return nil, err
	}

	r := &Repository{
		Config: cfg,
		dotGit: fsbackend.New(cfg.FS, cfg.GitDirPath),
	}
	if err := r.dotGit.Init(); err != nil {
		return nil, err
	}
	return r, nil
}

// Close releases the repository's underlying resources
func (r *Repository) Close() error {
	return r.dotGit.Close()
}

// GetObject returns the object stored under oid
func (r *Repository) GetObject(oid ginternals.Oid) (*object.Object, error) {
	return r.dotGit.Object(oid)
}

// HasObject returns whether oid is already present in the store
func (r *Repository) HasObject(oid ginternals.Oid) (bool, error) {
	return r.dotGit.HasObject(oid)
}

// WriteObject persists o and returns its Oid
func (r *Repository) WriteObject(o *object.Object) (ginternals.Oid, error) {
	return r.dotGit.WriteObject(o)
}

// ObjectReader opens a streaming Reader for the loose object at oid
func (r *Repository) ObjectReader(oid ginternals.Oid) (*object.Reader, error) {
	hexID := oid.String()
	p := filepath.Join(ginternals.ObjectsPath(r.Config), hexID[:2], hexID[2:])
	return object.NewReader(r.Config.FS, p, hexID)
}

// GetReference resolves name (following symbolic references) and
// returns the result
func (r *Repository) GetReference(name string) (*ginternals.Reference, error) {
	return r.dotGit.Reference(name)
}

// WriteReference writes ref to the repository, overwriting any
// existing reference of the same name
func (r *Repository) WriteReference(ref *ginternals.Reference) error {
	return r.dotGit.WriteReference(ref)
}

// treeLoader returns an object.Loader backed by this repository's
// object store, for recursive tree materialisation
func (r *Repository) treeLoader() object.Loader {
	return func(oid ginternals.Oid) (*object.Reader, error) {
		return r.ObjectReader(oid)
	}
}

// ErrNotACommit is returned when an operation expecting a commit
// object is given the Oid of something else
var ErrNotACommit = xerrors.New("not a commit object")
