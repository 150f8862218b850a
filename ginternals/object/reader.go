package object

import (
	"io"
	"strconv"

	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/internal/errutil"
	"github.com/mlaplanche/microgit/internal/readutil"
	"github.com/klauspost/compress/zlib"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Reader streams the payload of a loose object: it opens the file,
// pipes it through a zlib decoder, parses the "<type> <size>\0" header,
// and hands out exactly size bytes of payload, enforcing the declared
// length against what the decompressor actually produces.
type Reader struct {
	f    afero.File
	zr   io.ReadCloser
	br   *readutil.Buffer
	typ  Type
	size int
	read int
	name string
}

// NewReader opens the loose object stored at path and validates its
// header. name is used only for error messages (typically the hex
// digest the caller asked for).
func NewReader(fs afero.Fs, path, name string) (r *Reader, err error) {
	if len(name) < 4 {
		return nil, ginternals.NewError(ginternals.KindBadName, "object.Reader", name, nil)
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, ginternals.NewError(ginternals.KindNotFound, "object.Reader.open", name, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
		}
	}()

	zr, err := zlib.NewReader(f)
	if err != nil {
		return nil, ginternals.NewError(ginternals.KindMalformed, "object.Reader.zlib", name, err)
	}

	br := readutil.NewBuffer(zr)

	typB, err := br.ReadTo(' ')
	if err != nil {
		return nil, ginternals.NewError(ginternals.KindMalformed, "object.Reader.header", name, err)
	}
	typ, err := NewTypeFromString(string(typB))
	if err != nil {
		return nil, ginternals.NewError(ginternals.KindMalformed, "object.Reader.type", name, err)
	}

	sizeB, err := br.ReadTo(0)
	if err != nil {
		return nil, ginternals.NewError(ginternals.KindMalformed, "object.Reader.size", name, err)
	}
	size, err := strconv.Atoi(string(sizeB))
	if err != nil {
		return nil, ginternals.NewError(ginternals.KindMalformed, "object.Reader.size", name, err)
	}

	return &Reader{
		f:    f,
		zr:   zr,
		br:   br,
		typ:  typ,
		size: size,
		name: name,
	}, nil
}

// Type returns the object's type, available immediately after open
func (r *Reader) Type() Type { return r.typ }

// Size returns the declared payload size, available immediately after open
func (r *Reader) Size() int { return r.size }

// Read streams payload bytes. It never returns more than Size()-bytes-
// read-so-far across all calls, and fails SizeMismatch/UnexpectedEof if
// the underlying stream disagrees with the declared size.
func (r *Reader) Read(p []byte) (int, error) {
	remaining := r.size - r.read
	if remaining <= 0 {
		return 0, io.EOF
	}
	if len(p) > remaining {
		p = p[:remaining]
	}
	n, err := r.br.Read(p)
	r.read += n
	if err == io.EOF {
		if r.read < r.size {
			return n, ginternals.NewError(ginternals.KindIO, "object.Reader.read", r.name,
				xerrors.Errorf("unexpected EOF after %d/%d bytes: %w", r.read, r.size, io.ErrUnexpectedEOF))
		}
		return n, nil
	}
	if err != nil {
		return n, ginternals.NewError(ginternals.KindIO, "object.Reader.read", r.name, err)
	}
	return n, nil
}

// ReadUntil reads and returns bytes up to (excluding) the first
// occurrence of delim
func (r *Reader) ReadUntil(delim byte) ([]byte, error) {
	data, err := r.br.ReadTo(delim)
	if err != nil {
		return nil, ginternals.NewError(ginternals.KindMalformed, "object.Reader.readUntil", r.name, err)
	}
	r.read += len(data) + 1
	return data, nil
}

// EOF returns true iff exactly Size() bytes have been delivered and the
// underlying zlib stream has nothing further to offer. Extra trailing
// bytes are reported as a SizeMismatch error.
func (r *Reader) EOF() (bool, error) {
	if r.read < r.size {
		return false, nil
	}
	var probe [1]byte
	n, err := r.br.Read(probe[:])
	if err == io.EOF {
		return true, nil
	}
	if err != nil {
		return false, ginternals.NewError(ginternals.KindIO, "object.Reader.eof", r.name, err)
	}
	if n > 0 {
		return false, ginternals.NewError(ginternals.KindSizeMismatch, "object.Reader.eof", r.name,
			xerrors.New("decompressed stream yielded more bytes than the declared size"))
	}
	return true, nil
}

// ReadAll drains and returns the remaining payload bytes
func (r *Reader) ReadAll() ([]byte, error) {
	buf := make([]byte, r.size-r.read)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close releases the zlib decoder and the underlying file descriptor
func (r *Reader) Close() (err error) {
	defer errutil.Close(r.f, &err)
	return r.zr.Close()
}
