package fsbackend

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/mlaplanche/microgit/backend"
	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/ginternals/object"
	"github.com/mlaplanche/microgit/internal/gitpath"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Object returns the object that has given oid
// This method can be called concurrently
func (b *Backend) Object(oid ginternals.Oid) (*object.Object, error) {
	key := oid[:]
	b.objectMu.Lock(key)
	defer b.objectMu.Unlock(key)

	return b.objectUnsafe(oid)
}

func (b *Backend) objectUnsafe(oid ginternals.Oid) (*object.Object, error) {
	if b.cache != nil {
		if o, found := b.cache.Get(oid); found {
			return o, nil
		}
	}

	o, err := b.looseObject(oid)
	if err != nil {
		return nil, err
	}
	if b.cache != nil {
		b.cache.Set(oid, o, int64(o.Size()))
	}
	return o, nil
}

// looseObjectPath returns the absolute path of an object
// .git/objects/first_2_chars_of_sha/remaining_chars_of_sha
// Ex. path of fcfe68a0e44e04bd7fd564fc0b75f1ae457e18b3 is:
// .git/objects/fc/fe68a0e44e04bd7fd564fc0b75f1ae457e18b3
func (b *Backend) looseObjectPath(sha string) string {
	return filepath.Join(b.root, gitpath.ObjectsPath, sha[:2], sha[2:])
}

// looseObject returns the object matching the given OID, reading its
// declared-size, zlib-compressed, header-prefixed body through
// object.Reader.
func (b *Backend) looseObject(oid ginternals.Oid) (*object.Object, error) {
	strOid := oid.String()
	p := b.looseObjectPath(strOid)

	r, err := object.NewReader(b.fs, p, strOid)
	if err != nil {
		if ginternals.IsKind(err, ginternals.KindNotFound) {
			return nil, xerrors.Errorf("object %s: %w", strOid, ginternals.ErrObjectNotFound)
		}
		return nil, xerrors.Errorf("could not open object %s at path %s: %w", strOid, p, err)
	}
	defer func() { _ = r.Close() }()

	data, err := r.ReadAll()
	if err != nil {
		return nil, xerrors.Errorf("could not read object %s at path %s: %w", strOid, p, err)
	}

	return object.New(r.Type(), data), nil
}

// HasObject returns whether an object exists in the odb
// This method can be called concurrently
func (b *Backend) HasObject(oid ginternals.Oid) (bool, error) {
	key := oid[:]
	b.objectMu.Lock(key)
	defer b.objectMu.Unlock(key)

	return b.hasObjectUnsafe(oid)
}

func (b *Backend) hasObjectUnsafe(oid ginternals.Oid) (bool, error) {
	if b.cache != nil {
		if _, found := b.cache.Get(oid); found {
			return true, nil
		}
	}
	_, err := b.fs.Stat(b.looseObjectPath(oid.String()))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, xerrors.Errorf("could not check if object exists: %w", err)
}

// WriteObject adds an object to the odb
// This method can be called concurrently
func (b *Backend) WriteObject(o *object.Object) (ginternals.Oid, error) {
	oid := o.ID()
	b.objectMu.Lock(oid[:])
	defer b.objectMu.Unlock(oid[:])

	found, err := b.hasObjectUnsafe(oid)
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not check if object (%s) already exists: %w", oid.String(), err)
	}
	if found {
		return oid, nil
	}

	persistedOid, err := object.WriteObject(b.fs, filepath.Join(b.root, gitpath.ObjectsPath), o, true)
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not persist object %s: %w", oid.String(), err)
	}

	if b.cache != nil {
		b.cache.Set(persistedOid, o, int64(o.Size()))
	}
	return persistedOid, nil
}

// WalkLooseObjectIDs runs the provided method on all the oids stored
// in the objects directory. There is no packed object storage: every
// object the backend holds is a loose one.
func (b *Backend) WalkLooseObjectIDs(f backend.OidWalkFunc) error {
	p := filepath.Join(b.root, gitpath.ObjectsPath)
	err := afero.Walk(b.fs, p, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// the repo might not have an objects directory yet
			return nil
		}
		if path == p {
			return nil
		}

		if info.IsDir() {
			if !b.isLooseObjectDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		prefix := filepath.Base(filepath.Dir(path))
		if !b.isLooseObjectDir(prefix) {
			return nil
		}
		if filepath.Ext(info.Name()) != "" {
			return nil
		}

		sha := prefix + info.Name()
		oid, oErr := ginternals.NewOidFromStr(sha)
		if oErr != nil {
			return xerrors.Errorf("could not get oid from %s: %w", sha, oErr)
		}
		return f(oid)
	})
	if err == backend.WalkStop { //nolint:errorlint,goerr113 // it's a fake error so no need to use Error.Is()
		return nil
	}
	return err
}

// isLooseObjectDir checks if a directory name is anything between 00 and ff
func (b *Backend) isLooseObjectDir(name string) bool {
	if len(name) != 2 {
		return false
	}
	dirNum, parseErr := strconv.ParseInt(name, 16, 64)
	if parseErr != nil || dirNum < 0x00 || dirNum > 0xff {
		return false
	}
	return true
}
