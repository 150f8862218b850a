// Package packfile decodes a git pack stream into loose objects.
//
// The decoder never keeps a pack on disk: it reads the stream once,
// installing each entry as a loose object via object.Writer before
// moving on to the next, so that a reference-delta entry can always
// reopen an earlier entry of the same pack as its base.
package packfile

import (
	"bufio"
	"bytes"
	"crypto/sha1" //nolint:gosec // the digest algorithm is part of git's wire format
	"io"
	"path/filepath"

	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/ginternals/object"
	"github.com/mlaplanche/microgit/internal/errutil"
	"github.com/klauspost/compress/zlib"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

const (
	packHeaderSize = 12
	footerSize     = ginternals.OidSize

	typeCommit   = 1
	typeTree     = 2
	typeBlob     = 3
	typeTag      = 4
	typeOfsDelta = 6
	typeRefDelta = 7
)

var packMagic = [4]byte{'P', 'A', 'C', 'K'}

// Decoder reads a pack stream and installs its entries as loose
// objects under root.
type Decoder struct {
	fs   afero.Fs
	root string
}

// NewDecoder returns a Decoder that installs objects at root on fs.
func NewDecoder(fs afero.Fs, root string) *Decoder {
	return &Decoder{fs: fs, root: root}
}

// Decode reads one pack from r, installing every entry as a loose
// object, and returns the number of objects installed. Any error is
// terminal; objects already installed via atomic rename stay put,
// since they're content-addressed and re-derivable.
//
// The whole stream is buffered up front so the trailing SHA-1 footer
// can be carved off and verified against a digest of exactly the
// bytes that precede it. A bufio.Reader shared across header, entries
// and footer would fill its buffer from the underlying reader in one
// physical Read on small packs, pulling the footer itself through the
// hash before Sum() is taken.
func (d *Decoder) Decode(r io.Reader) (count int, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, ginternals.NewError(ginternals.KindProtocol, "packfile.Decode.read", "", err)
	}
	if len(data) < packHeaderSize+footerSize {
		return 0, ginternals.NewError(ginternals.KindMalformed, "packfile.Decode.header", "", xerrors.New("pack too short"))
	}

	body, footer := data[:len(data)-footerSize], data[len(data)-footerSize:]
	sum := sha1.Sum(body) //nolint:gosec
	for i := range sum {
		if sum[i] != footer[i] {
			return 0, ginternals.NewError(ginternals.KindChecksumMismatch, "packfile.Decode.footer", "", nil)
		}
	}

	br := bufio.NewReader(bytes.NewReader(body))

	hdr := make([]byte, packHeaderSize)
	if _, err := io.ReadFull(br, hdr); err != nil {
		return 0, ginternals.NewError(ginternals.KindProtocol, "packfile.Decode.header", "", err)
	}
	if [4]byte(hdr[0:4]) != packMagic {
		return 0, ginternals.NewError(ginternals.KindMalformed, "packfile.Decode.header", "", xerrors.New("bad magic"))
	}
	version := be32(hdr[4:8])
	if version != 2 {
		return 0, ginternals.NewError(ginternals.KindUnsupported, "packfile.Decode.header", "",
			xerrors.Errorf("unsupported pack version %d", version))
	}
	n := be32(hdr[8:12])

	for i := uint32(0); i < n; i++ {
		if err := d.decodeEntry(br); err != nil {
			return int(i), err
		}
		count++
	}

	var probe [1]byte
	if _, err := br.Read(probe[:]); err != io.EOF {
		return count, ginternals.NewError(ginternals.KindProtocol, "packfile.Decode.trailer", "",
			xerrors.New("surplus bytes between last entry and pack footer"))
	}

	return count, nil
}

// decodeEntry reads one entry's variable-length header plus payload
// from br and installs the result as a loose object.
func (d *Decoder) decodeEntry(br *bufio.Reader) error {
	typeID, size, err := readEntryHeader(br)
	if err != nil {
		return ginternals.NewError(ginternals.KindMalformed, "packfile.decodeEntry.header", "", err)
	}

	switch typeID {
	case typeCommit, typeTree, typeBlob, typeTag:
		return d.decodeUndeltified(br, object.Type(typeID), size)
	case typeRefDelta:
		return d.decodeRefDelta(br, size)
	case typeOfsDelta:
		return ginternals.NewError(ginternals.KindUnsupported, "packfile.decodeEntry", "", xerrors.New("ofs-delta is not supported"))
	default:
		return ginternals.NewError(ginternals.KindMalformed, "packfile.decodeEntry", "",
			xerrors.Errorf("unknown entry type %d", typeID))
	}
}

func (d *Decoder) decodeUndeltified(br *bufio.Reader, typ object.Type, size uint64) (err error) {
	zr, err := zlib.NewReader(br)
	if err != nil {
		return ginternals.NewError(ginternals.KindMalformed, "packfile.decodeUndeltified.zlib", "", err)
	}
	defer errutil.Close(zr, &err)

	w, err := object.NewWriter(d.fs, d.root, typ, int(size), true)
	if err != nil {
		return err
	}
	if _, err = io.CopyN(w, zr, int64(size)); err != nil {
		w.Abort()
		return ginternals.NewError(ginternals.KindMalformed, "packfile.decodeUndeltified.payload", "", err)
	}
	if _, err = w.Finish(); err != nil {
		return err
	}
	return nil
}

// decodeRefDelta reads a 20-byte base digest, then a zlib-compressed
// instruction stream, and reconstructs the target object against the
// already-installed base.
func (d *Decoder) decodeRefDelta(br *bufio.Reader, declaredSize uint64) (err error) {
	baseRaw := make([]byte, ginternals.OidSize)
	if _, err = io.ReadFull(br, baseRaw); err != nil {
		return ginternals.NewError(ginternals.KindMalformed, "packfile.decodeRefDelta.base", "", err)
	}
	baseOid, err := ginternals.NewOidFromHex(baseRaw)
	if err != nil {
		return ginternals.NewError(ginternals.KindMalformed, "packfile.decodeRefDelta.base", "", err)
	}

	base, err := d.openObject(baseOid)
	if err != nil {
		return ginternals.NewError(ginternals.KindChecksumMismatch, "packfile.decodeRefDelta.base", baseOid.String(), err)
	}

	zr, err := zlib.NewReader(br)
	if err != nil {
		return ginternals.NewError(ginternals.KindMalformed, "packfile.decodeRefDelta.zlib", "", err)
	}
	defer errutil.Close(zr, &err)
	instr := bufio.NewReader(zr)

	if _, err = readVarint(instr); err != nil { // base size, unused: we trust the stored base
		return ginternals.NewError(ginternals.KindMalformed, "packfile.decodeRefDelta.baseSize", "", err)
	}
	targetSize, err := readVarint(instr)
	if err != nil {
		return ginternals.NewError(ginternals.KindMalformed, "packfile.decodeRefDelta.targetSize", "", err)
	}
	_ = declaredSize // the declared entry size describes the inflated instruction stream, not the target payload

	w, err := object.NewWriter(d.fs, d.root, base.Type(), int(targetSize), true)
	if err != nil {
		return err
	}

	if err = applyDelta(w, instr, base.Bytes(), targetSize); err != nil {
		w.Abort()
		return err
	}
	if _, err = w.Finish(); err != nil {
		return err
	}
	return nil
}

// applyDelta runs the copy/insert instruction stream in instr against
// base, writing the reconstructed payload to w until exactly want
// bytes have been produced.
func applyDelta(w io.Writer, instr *bufio.Reader, base []byte, want uint64) error {
	var written uint64
	for written < want {
		op, err := instr.ReadByte()
		if err != nil {
			return ginternals.NewError(ginternals.KindMalformed, "packfile.applyDelta", "",
				xerrors.Errorf("instruction stream ended after %d/%d bytes: %w", written, want, err))
		}

		if op&0x80 == 0 {
			k := int(op)
			if k == 0 {
				return ginternals.NewError(ginternals.KindMalformed, "packfile.applyDelta", "", xerrors.New("zero-length insert"))
			}
			buf := make([]byte, k)
			if _, err := io.ReadFull(instr, buf); err != nil {
				return ginternals.NewError(ginternals.KindMalformed, "packfile.applyDelta", "", err)
			}
			if _, err := w.Write(buf); err != nil {
				return err
			}
			written += uint64(k)
			continue
		}

		var offset uint32
		for i := 0; i < 4; i++ {
			if op&(1<<uint(i)) != 0 {
				b, err := instr.ReadByte()
				if err != nil {
					return ginternals.NewError(ginternals.KindMalformed, "packfile.applyDelta", "", err)
				}
				offset |= uint32(b) << (8 * uint(i))
			}
		}
		var size uint32
		for j := 0; j < 3; j++ {
			if op&(1<<uint(4+j)) != 0 {
				b, err := instr.ReadByte()
				if err != nil {
					return ginternals.NewError(ginternals.KindMalformed, "packfile.applyDelta", "", err)
				}
				size |= uint32(b) << (8 * uint(j))
			}
		}
		if size == 0 {
			size = 0x10000
		}
		if uint64(offset)+uint64(size) > uint64(len(base)) {
			return ginternals.NewError(ginternals.KindMalformed, "packfile.applyDelta", "",
				xerrors.New("copy instruction reaches past the base object"))
		}
		if _, err := w.Write(base[offset : offset+size]); err != nil {
			return err
		}
		written += uint64(size)
	}
	return nil
}

func (d *Decoder) openObject(oid ginternals.Oid) (*object.Object, error) {
	hexID := oid.String()
	path := filepath.Join(d.root, hexID[:2], hexID[2:])
	r, err := object.NewReader(d.fs, path, hexID)
	if err != nil {
		return nil, err
	}
	defer r.Close() //nolint:errcheck // best effort, read error takes precedence

	payload, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return object.New(r.Type(), payload), nil
}

// readEntryHeader parses a pack entry's variable-length (type, size)
// header: the first byte holds a continuation bit, 3 type bits and 4
// low size bits; each further byte (while the continuation bit is
// set) contributes 7 more size bits, little-endian.
func readEntryHeader(br *bufio.Reader) (typeID int, size uint64, err error) {
	b, err := br.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	typeID = int((b >> 4) & 0x7)
	size = uint64(b & 0x0f)
	shift := uint(4)
	for isMSBSet(b) {
		b, err = br.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		size |= uint64(unsetMSB(b)) << shift
		shift += 7
	}
	return typeID, size, nil
}

// readVarint reads the delta-header's size encoding: the same
// continuation-byte scheme as the entry header, but with no reserved
// bits in the first byte.
func readVarint(r io.ByteReader) (uint64, error) {
	var val uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		val |= uint64(unsetMSB(b)) << shift
		if !isMSBSet(b) {
			break
		}
		shift += 7
	}
	return val, nil
}

// isMSBSet checks if the MSB of a byte is set to 1.
func isMSBSet(b byte) bool {
	return b >= 0b_1000_0000
}

// unsetMSB sets the most significant bit of the byte to 0.
func unsetMSB(b byte) byte {
	return b & 0b_0111_1111
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
