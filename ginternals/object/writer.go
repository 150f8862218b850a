package object

import (
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // the digest algorithm is part of git's wire format
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"

	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/internal/errutil"
	"github.com/klauspost/compress/zlib"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Writer streams an object's payload straight into a hasher and, when
// persistence is requested, a zlib encoder writing to a randomly named
// temporary file. Finish() verifies the declared size and, on success,
// atomically installs the temp file at its content-addressed path.
type Writer struct {
	fs   afero.Fs
	root string

	typ      Type
	declared int
	written  int

	hasher hash.Hash

	persist bool
	tmp     afero.File
	tmpPath string
	zw      *zlib.Writer

	finished bool
}

// NewWriter creates a Writer for an object of the given type and
// declared payload size. When persist is true, the object is staged at
// <root>/tmpobj<40-hex-nonce> and installed on Finish(); when false,
// Finish() only computes the digest (used to hash content that the
// caller will embed elsewhere, e.g. a tree entry for a file that's
// already on disk).
func NewWriter(fs afero.Fs, root string, typ Type, declaredSize int, persist bool) (w *Writer, err error) {
	h := sha1.New() //nolint:gosec
	wr := &Writer{
		fs:       fs,
		root:     root,
		typ:      typ,
		declared: declaredSize,
		hasher:   h,
		persist:  persist,
	}

	header := fmt.Sprintf("%s %d\x00", typ.String(), declaredSize)
	if _, err = h.Write([]byte(header)); err != nil {
		return nil, ginternals.NewError(ginternals.KindIO, "object.Writer.header", "", err)
	}

	if persist {
		var nonce [20]byte
		if _, err = rand.Read(nonce[:]); err != nil {
			return nil, ginternals.NewError(ginternals.KindIO, "object.Writer.nonce", "", err)
		}
		wr.tmpPath = filepath.Join(root, "tmpobj"+hex.EncodeToString(nonce[:]))
		wr.tmp, err = fs.OpenFile(wr.tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, ginternals.NewError(ginternals.KindIO, "object.Writer.tmpfile", wr.tmpPath, err)
		}
		wr.zw = zlib.NewWriter(wr.tmp)
		if _, err = wr.zw.Write([]byte(header)); err != nil {
			return nil, ginternals.NewError(ginternals.KindIO, "object.Writer.header", "", err)
		}
	}

	return wr, nil
}

// Write streams payload bytes into the hasher and (if persisting) the
// zlib encoder. Writing beyond the declared size is a SizeMismatch error.
func (w *Writer) Write(p []byte) (int, error) {
	if w.written+len(p) > w.declared {
		return 0, ginternals.NewError(ginternals.KindSizeMismatch, "object.Writer.write", "",
			xerrors.Errorf("wrote %d bytes, exceeding declared size %d", w.written+len(p), w.declared))
	}
	if _, err := w.hasher.Write(p); err != nil {
		return 0, ginternals.NewError(ginternals.KindIO, "object.Writer.write", "", err)
	}
	if w.persist {
		if _, err := w.zw.Write(p); err != nil {
			return 0, ginternals.NewError(ginternals.KindIO, "object.Writer.write", "", err)
		}
	}
	w.written += len(p)
	return len(p), nil
}

// Finish must be called exactly once. It verifies the payload length
// equals the declared size, computes the final digest, and, if
// persistence was requested, finalises and atomically installs the
// object file. It returns the object's Oid.
func (w *Writer) Finish() (oid ginternals.Oid, err error) {
	if w.finished {
		return ginternals.NullOid, ginternals.NewError(ginternals.KindIO, "object.Writer.finish", "",
			xerrors.New("finish called twice"))
	}
	w.finished = true

	if w.written != w.declared {
		return ginternals.NullOid, ginternals.NewError(ginternals.KindSizeMismatch, "object.Writer.finish", "",
			xerrors.Errorf("wrote %d bytes, declared %d", w.written, w.declared))
	}

	sum := w.hasher.Sum(nil)
	oid, oerr := ginternals.NewOidFromHex(sum)
	if oerr != nil {
		return ginternals.NullOid, ginternals.NewError(ginternals.KindIO, "object.Writer.finish", "", oerr)
	}

	if !w.persist {
		return oid, nil
	}

	if err = w.zw.Close(); err != nil {
		return ginternals.NullOid, ginternals.NewError(ginternals.KindIO, "object.Writer.finish", w.tmpPath, err)
	}
	defer errutil.Close(w.tmp, &err)

	if err = w.fs.Chmod(w.tmpPath, 0o444); err != nil {
		return ginternals.NullOid, ginternals.NewError(ginternals.KindIO, "object.Writer.finish", w.tmpPath, err)
	}

	hexID := oid.String()
	dest := filepath.Join(w.root, hexID[:2], hexID[2:])
	if err = w.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return ginternals.NullOid, ginternals.NewError(ginternals.KindIO, "object.Writer.finish", dest, err)
	}
	if err = w.fs.Rename(w.tmpPath, dest); err != nil {
		return ginternals.NullOid, ginternals.NewError(ginternals.KindIO, "object.Writer.finish", dest, err)
	}

	return oid, nil
}

// Abort discards a writer that won't be Finish()ed, cleaning up any
// temporary file it created
func (w *Writer) Abort() {
	if w.tmp != nil {
		_ = w.tmp.Close()
		_ = w.fs.Remove(w.tmpPath)
	}
}

// WriteBlob is a convenience that streams all of r's bytes (of the
// given size) as a blob object and returns its Oid
func WriteBlob(fs afero.Fs, root string, size int64, r io.Reader, persist bool) (ginternals.Oid, error) {
	w, err := NewWriter(fs, root, TypeBlob, int(size), persist)
	if err != nil {
		return ginternals.NullOid, err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Abort()
		return ginternals.NullOid, err
	}
	return w.Finish()
}

// WriteObject streams an already-built *Object (tree, commit, blob) to
// storage using the declared-size Writer contract, returning its Oid.
func WriteObject(fs afero.Fs, root string, o *Object, persist bool) (ginternals.Oid, error) {
	w, err := NewWriter(fs, root, o.Type(), o.Size(), persist)
	if err != nil {
		return ginternals.NullOid, err
	}
	if _, err := w.Write(o.Bytes()); err != nil {
		w.Abort()
		return ginternals.NullOid, err
	}
	return w.Finish()
}
