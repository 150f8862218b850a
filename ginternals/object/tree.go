package object

import (
	"bytes"
	"strconv"

	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/internal/readutil"
	"github.com/emirpasic/gods/maps/treemap"
	"golang.org/x/xerrors"
)

// TreeObjectMode represents the mode of an object inside a tree
// Non-standard modes (like 0o100664) are not supported
type TreeObjectMode int32

const (
	// ModeFile represents the mode to use for a regular file
	ModeFile TreeObjectMode = 0o100644
	// ModeExecutable represents the mode to use for a executable file
	ModeExecutable TreeObjectMode = 0o100755
	// ModeDirectory represents the mode to use for a directory
	ModeDirectory TreeObjectMode = 0o040000
	// ModeSymLink represents the mode to use for a symbolic link
	ModeSymLink TreeObjectMode = 0o120000
	// ModeGitLink represents the mode to use for a gitlink (submodule)
	ModeGitLink TreeObjectMode = 0o160000
)

// IsValid reports whether m is one of the five modes this module
// writes or can read back: file, executable, directory, symlink, or
// gitlink. Anything else isn't a mode writeTreeDir or a pack decode
// ever produces.
func (m TreeObjectMode) IsValid() bool {
	switch m {
	case ModeFile, ModeExecutable, ModeDirectory, ModeSymLink, ModeGitLink:
		return true
	default:
		return false
	}
}

// ObjectType returns the kind of object m's entry points at: a tree
// for a directory, a commit for a gitlink (the submodule's own
// history, never resolved by this module), or a blob for everything
// else.
func (m TreeObjectMode) ObjectType() Type {
	switch m {
	case ModeDirectory:
		return TypeTree
	case ModeGitLink:
		return TypeCommit
	default:
		return TypeBlob
	}
}

// EmptyTreeID is the digest of the zero-entry tree. Directories whose
// recursive content hashes to this value carry nothing worth tracking
// and are omitted from their parent tree.
var EmptyTreeID = NewTree(nil).ID()

// Tree represents a git tree object
type Tree struct {
	rawObject *Object
	// we don't use pointers to make sure entries are immutable
	entries []TreeEntry
}

// TreeEntry represents an entry inside a git tree
type TreeEntry struct {
	Path string
	ID   ginternals.Oid
	Mode TreeObjectMode
}

// treeSortKey is the byte-lexicographic sort key for a tree entry: its
// name, with a virtual trailing '/' appended for directory entries.
// This is what makes a built tree's digest match the canonical one -
// git sorts tree entries as if directories were named "dir/", not "dir".
func treeSortKey(e TreeEntry) string {
	if e.Mode == ModeDirectory {
		return e.Path + "/"
	}
	return e.Path
}

// sortEntries orders entries per the tree sort rule using a gods
// treemap: inserting under the byte-lexicographic key and walking the
// map in order is equivalent to sorting a slice with a custom
// comparator, without hand-rolling the sort ourselves.
func sortEntries(entries []TreeEntry) []TreeEntry {
	m := treemap.NewWithStringComparator()
	for _, e := range entries {
		m.Put(treeSortKey(e), e)
	}
	out := make([]TreeEntry, 0, len(entries))
	it := m.Iterator()
	for it.Next() {
		out = append(out, it.Value().(TreeEntry))
	}
	return out
}

// NewTree returns a new tree with the given entries, sorted per the
// tree sort rule regardless of the order they were provided in
func NewTree(entries []TreeEntry) *Tree {
	t := &Tree{
		entries: sortEntries(entries),
	}
	t.rawObject = t.ToObject()
	return t
}

// NewTreeFromObject decodes a tree object's payload back into entries.
// Each entry is packed back-to-back with no separator between them:
//
//	<octal mode> SP <path> NUL <20-byte oid>
//
// A tree walks this exact layout whether it came from a loose object
// or was just reconstructed by the packfile decoder, so there's no
// separate parser for either path.
func NewTreeFromObject(o *Object) (*Tree, error) {
	if o.Type() != TypeTree {
		return nil, ginternals.NewError(ginternals.KindMalformed, "object.NewTreeFromObject", "",
			xerrors.Errorf("type %s: %w", o.typ, ErrObjectInvalid))
	}

	entries := []TreeEntry{}

	objData := o.Bytes()
	if len(objData) > 0 {
		offset := 0
		for i := 1; ; i++ { // i only labels entries in error messages
			entry := TreeEntry{}
			data := readutil.ReadTo(objData[offset:], ' ')
			if len(data) == 0 {
				return nil, ginternals.NewError(ginternals.KindMalformed, "object.NewTreeFromObject", "",
					xerrors.Errorf("entry %d: missing mode: %w", i, ErrTreeInvalid))
			}
			offset += len(data) + 1 // +1 for the space
			mode, err := strconv.ParseInt(string(data), 8, 32)
			if err != nil {
				return nil, ginternals.NewError(ginternals.KindMalformed, "object.NewTreeFromObject", "",
					xerrors.Errorf("entry %d: mode %q: %w", i, data, ErrTreeInvalid))
			}
			entry.Mode = TreeObjectMode(mode)

			data = readutil.ReadTo(objData[offset:], 0)
			if len(data) == 0 {
				return nil, ginternals.NewError(ginternals.KindMalformed, "object.NewTreeFromObject", "",
					xerrors.Errorf("entry %d: missing path: %w", i, ErrTreeInvalid))
			}
			offset += len(data) + 1 // +1 for the \0
			entry.Path = string(data)

			if offset+ginternals.OidSize > len(objData) {
				return nil, ginternals.NewError(ginternals.KindMalformed, "object.NewTreeFromObject", "",
					xerrors.Errorf("entry %d: truncated before its oid: %w", i, ErrTreeInvalid))
			}
			entry.ID, err = ginternals.NewOidFromHex(objData[offset : offset+ginternals.OidSize])
			if err != nil {
				// any 20 raw bytes decode into a valid Oid, so this
				// path is effectively unreachable
				return nil, ginternals.NewError(ginternals.KindMalformed, "object.NewTreeFromObject", "",
					xerrors.Errorf("entry %d: oid: %w", i, ErrTreeInvalid))
			}
			offset += ginternals.OidSize

			entries = append(entries, entry)
			if len(objData) == offset {
				break
			}
		}
	}
	return &Tree{
		rawObject: o,
		entries:   entries,
	}, nil
}

// Entries returns a copy of tree entries
func (t *Tree) Entries() []TreeEntry {
	out := make([]TreeEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// ID returns the object's ID
// ginternals.NullOid is returned if the object doesn't have
// an ID yet
func (t *Tree) ID() ginternals.Oid {
	return t.rawObject.ID()
}

// ToObject serializes the tree back to its on-disk payload: entries
// in tree-sort order, each "<mode> <path>\0<oid>" back to back.
//
// t.entries is already sorted by the time a Tree exists (NewTree
// sorts at construction, NewTreeFromObject reads back an
// already-sorted payload), but ToObject re-derives the order from
// sortEntries rather than trusting the stored slice, so a Tree built
// by mutating entries directly still round-trips to the canonical
// digest.
func (t *Tree) ToObject() *Object {
	buf := new(bytes.Buffer)
	for _, e := range sortEntries(t.entries) {
		buf.WriteString(strconv.FormatInt(int64(e.Mode), 8))
		buf.WriteByte(' ')
		buf.WriteString(e.Path)
		buf.WriteByte(0)
		buf.Write(e.ID.Bytes())
	}
	return New(TypeTree, buf.Bytes())
}
