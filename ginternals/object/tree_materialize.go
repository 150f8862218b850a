package object

import (
	"io"
	"os"
	"path/filepath"

	"github.com/mlaplanche/microgit/ginternals"
	"github.com/spf13/afero"
)

// ErrSubmoduleUnsupported is returned when materialising a tree entry
// of mode 160000 (a submodule gitlink)
var ErrSubmoduleUnsupported = ErrObjectInvalid

// Loader resolves an Oid to an opened Reader, so the materialiser can
// walk a tree of trees without depending on any particular backend
type Loader func(oid ginternals.Oid) (*Reader, error)

// Materialise writes t's entries into directory dest on fs, recursing
// into subtrees via load. It never deletes or overwrites anything: if
// creating a file or directory fails because the target already
// exists, that error surfaces to the caller.
func (t *Tree) Materialise(fs afero.Fs, dest string, load Loader) error {
	if err := fs.MkdirAll(dest, 0o755); err != nil {
		return ginternals.NewError(ginternals.KindIO, "tree.Materialise", dest, err)
	}

	for _, e := range t.entries {
		target := filepath.Join(dest, e.Path)

		switch e.Mode {
		case ModeDirectory:
			sub, err := load(e.ID)
			if err != nil {
				return err
			}
			subTree, err := NewTreeFromReader(sub)
			if cerr := sub.Close(); cerr != nil && err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			if err := subTree.Materialise(fs, target, load); err != nil {
				return err
			}
		case ModeFile, ModeExecutable:
			if err := materialiseBlob(fs, target, e.Mode, e.ID, load); err != nil {
				return err
			}
		case ModeSymLink:
			r, err := load(e.ID)
			if err != nil {
				return err
			}
			linkTarget, err := r.ReadAll()
			if cerr := r.Close(); cerr != nil && err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			if symlinker, ok := fs.(afero.Symlinker); ok {
				if err := symlinker.SymlinkIfPossible(string(linkTarget), target); err != nil {
					return ginternals.NewError(ginternals.KindIO, "tree.Materialise", target, err)
				}
			} else {
				return ginternals.NewError(ginternals.KindUnsupported, "tree.Materialise", target, nil)
			}
		case ModeGitLink:
			return ginternals.NewError(ginternals.KindUnsupported, "tree.Materialise", target, ErrSubmoduleUnsupported)
		default:
			return ginternals.NewError(ginternals.KindMalformed, "tree.Materialise", target, nil)
		}
	}
	return nil
}

func materialiseBlob(fs afero.Fs, target string, mode TreeObjectMode, id ginternals.Oid, load Loader) error {
	r, err := load(id)
	if err != nil {
		return err
	}
	defer r.Close() //nolint:errcheck // best effort, read error takes precedence

	perm := fileMode(mode)
	f, err := fs.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, os.FileMode(perm))
	if err != nil {
		return ginternals.NewError(ginternals.KindIO, "tree.Materialise", target, err)
	}
	defer f.Close() //nolint:errcheck // best effort, read error takes precedence

	if _, err := io.Copy(f, r); err != nil {
		return ginternals.NewError(ginternals.KindIO, "tree.Materialise", target, err)
	}
	return nil
}

func fileMode(mode TreeObjectMode) uint32 {
	perm := uint32(0o644)
	if mode == ModeExecutable {
		perm |= 0o111
	}
	return perm
}

// NewTreeFromReader parses a tree object straight from a streaming
// Reader instead of a fully buffered Object, for the recursive
// materialisation walk where subtrees are opened lazily
func NewTreeFromReader(r *Reader) (*Tree, error) {
	payload, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return NewTreeFromObject(New(TypeTree, payload))
}
