package microgit

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/ginternals/object"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// WriteWorkingTree recursively hashes the repository's working
// directory into a tree object, skipping ".git", and returns the
// resulting tree's Oid.
func (r *Repository) WriteWorkingTree() (ginternals.Oid, error) {
	return r.writeTreeDir(r.Config.WorkTreePath)
}

func (r *Repository) writeTreeDir(dir string) (ginternals.Oid, error) {
	infos, err := afero.ReadDir(r.Config.FS, dir)
	if err != nil {
		return ginternals.NullOid, ginternals.NewError(ginternals.KindIO, "microgit.writeTreeDir", dir, err)
	}
	// afero.ReadDir already sorts by name, but we don't rely on that:
	// object.NewTree re-sorts per the tree sort rule regardless.
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	// Sibling entries (files, symlinks, subdirectories) are independent
	// hashing work, so they're dispatched concurrently bounded by
	// GOMAXPROCS; each goroutine owns a distinct slot of slots so no
	// locking is needed to assemble the result in listing order.
	slots := make([]*object.TreeEntry, len(infos))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, info := range infos {
		if info.Name() == ".git" {
			continue
		}
		i, info := i, info
		g.Go(func() error {
			childPath := filepath.Join(dir, info.Name())
			entry, skip, err := r.writeTreeEntry(childPath, info)
			if err != nil {
				return err
			}
			if !skip {
				slots[i] = &entry
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ginternals.NullOid, err
	}

	entries := make([]object.TreeEntry, 0, len(infos))
	for _, entry := range slots {
		if entry != nil {
			entries = append(entries, *entry)
		}
	}

	tree := object.NewTree(entries)
	root := ginternals.ObjectsPath(r.Config)
	if _, err := object.WriteObject(r.Config.FS, root, tree.ToObject(), true); err != nil {
		return ginternals.NullOid, err
	}
	return tree.ID(), nil
}

func (r *Repository) writeTreeEntry(path string, info os.FileInfo) (entry object.TreeEntry, skip bool, err error) {
	root := ginternals.ObjectsPath(r.Config)

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, rerr := r.readLink(path)
		if rerr != nil {
			return entry, false, rerr
		}
		id, werr := object.WriteBlob(r.Config.FS, root, int64(len(target)), bytes.NewReader(target), true)
		if werr != nil {
			return entry, false, werr
		}
		return object.TreeEntry{Path: info.Name(), ID: id, Mode: object.ModeSymLink}, false, nil

	case info.IsDir():
		childID, cerr := r.writeTreeDir(path)
		if cerr != nil {
			return entry, false, cerr
		}
		if childID == object.EmptyTreeID {
			return entry, true, nil
		}
		return object.TreeEntry{Path: info.Name(), ID: childID, Mode: object.ModeDirectory}, false, nil

	case info.Mode().IsRegular():
		f, oerr := r.Config.FS.Open(path)
		if oerr != nil {
			return entry, false, ginternals.NewError(ginternals.KindIO, "microgit.writeTreeEntry", path, oerr)
		}
		defer f.Close() //nolint:errcheck // best effort, read error takes precedence

		id, werr := object.WriteBlob(r.Config.FS, root, info.Size(), f, true)
		if werr != nil {
			return entry, false, werr
		}
		mode := object.ModeFile
		if info.Mode().Perm()&0o111 != 0 {
			mode = object.ModeExecutable
		}
		return object.TreeEntry{Path: info.Name(), ID: id, Mode: mode}, false, nil

	default:
		return entry, false, ginternals.NewError(ginternals.KindUnsupported, "microgit.writeTreeEntry", path, nil)
	}
}

// readLink returns the target bytes of the symlink at path
func (r *Repository) readLink(path string) ([]byte, error) {
	linker, ok := r.Config.FS.(afero.Symlinker)
	if !ok {
		return nil, ginternals.NewError(ginternals.KindUnsupported, "microgit.readLink", path, nil)
	}
	target, err := linker.ReadlinkIfPossible(path)
	if err != nil {
		return nil, ginternals.NewError(ginternals.KindIO, "microgit.readLink", path, err)
	}
	return []byte(target), nil
}
