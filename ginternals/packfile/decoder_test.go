package packfile_test

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // test fixtures use the wire digest algorithm
	"testing"

	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/ginternals/object"
	"github.com/mlaplanche/microgit/ginternals/packfile"
	"github.com/klauspost/compress/zlib"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// packBuilder assembles a pack stream byte by byte so tests can
// exercise the decoder without a real upload-pack server.
type packBuilder struct {
	buf   bytes.Buffer
	count uint32
}

func (b *packBuilder) header(count uint32) {
	b.count = count
	b.buf.WriteString("PACK")
	b.buf.Write([]byte{0, 0, 0, 2})
	b.buf.Write([]byte{byte(count >> 24), byte(count >> 16), byte(count >> 8), byte(count)})
}

func entryHeader(typeID int, size uint64) []byte {
	out := []byte{}
	first := byte(typeID<<4) | byte(size&0x0f)
	size >>= 4
	if size > 0 {
		first |= 0x80
	}
	out = append(out, first)
	for size > 0 {
		b := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

func varint(v uint64) []byte {
	out := []byte{}
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v > 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

func (b *packBuilder) undeltified(typeID int, payload []byte) {
	b.buf.Write(entryHeader(typeID, uint64(len(payload))))
	zbuf := new(bytes.Buffer)
	zw := zlib.NewWriter(zbuf)
	_, _ = zw.Write(payload)
	_ = zw.Close()
	b.buf.Write(zbuf.Bytes())
}

func (b *packBuilder) refDelta(baseOid ginternals.Oid, baseSize, targetSize uint64, instructions []byte) {
	instr := new(bytes.Buffer)
	instr.Write(varint(baseSize))
	instr.Write(varint(targetSize))
	instr.Write(instructions)

	b.buf.Write(entryHeader(7, uint64(instr.Len())))
	b.buf.Write(baseOid.Bytes())
	zbuf := new(bytes.Buffer)
	zw := zlib.NewWriter(zbuf)
	_, _ = zw.Write(instr.Bytes())
	_ = zw.Close()
	b.buf.Write(zbuf.Bytes())
}

func (b *packBuilder) finish() []byte {
	sum := sha1.Sum(b.buf.Bytes()) //nolint:gosec
	b.buf.Write(sum[:])
	return b.buf.Bytes()
}

func TestDecodeEmptyPack(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/repo/objects", 0o755))

	var b packBuilder
	b.header(0)
	data := b.finish()

	d := packfile.NewDecoder(fs, "/repo/objects")
	n, err := d.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDecodeUndeltifiedBlob(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/repo/objects", 0o755))

	payload := []byte("hello, pack\n")
	var b packBuilder
	b.header(1)
	b.undeltified(3, payload) // 3 == blob
	data := b.finish()

	d := packfile.NewDecoder(fs, "/repo/objects")
	n, err := d.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	want := object.New(object.TypeBlob, payload)
	hexID := want.ID().String()
	path := "/repo/objects/" + hexID[:2] + "/" + hexID[2:]
	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	assert.True(t, exists, "expected loose object at %s", path)
}

func TestDecodeRefDelta(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/repo/objects", 0o755))

	base := []byte("the quick brown fox")
	baseOid, err := object.WriteObject(fs, "/repo/objects", object.New(object.TypeBlob, base), true)
	require.NoError(t, err)

	// reconstruct "the slow brown fox" from the base via copy+insert
	target := []byte("the slow brown fox")
	var instr bytes.Buffer
	// copy "the " (offset 0, size 4): op with offset byte 0 present, size byte 0 present
	instr.WriteByte(0b1001_0001)
	instr.WriteByte(0x00) // offset byte 0
	instr.WriteByte(0x04) // size byte 0
	// insert "slow" (4 literal bytes)
	instr.WriteByte(4)
	instr.WriteString("slow")
	// copy " brown fox" (offset 9, size 10)
	instr.WriteByte(0b1001_0001)
	instr.WriteByte(0x09)
	instr.WriteByte(0x0a)

	var b packBuilder
	b.header(1)
	b.refDelta(baseOid, uint64(len(base)), uint64(len(target)), instr.Bytes())
	data := b.finish()

	d := packfile.NewDecoder(fs, "/repo/objects")
	n, err := d.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	want := object.New(object.TypeBlob, target)
	hexID := want.ID().String()
	path := "/repo/objects/" + hexID[:2] + "/" + hexID[2:]
	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	assert.True(t, exists, "expected reconstructed object at %s", path)
}

func TestDecodeRejectsOfsDelta(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/repo/objects", 0o755))

	var b packBuilder
	b.header(1)
	b.buf.Write(entryHeader(6, 5)) // ofs-delta
	b.buf.Write([]byte{0x01})      // bogus offset byte, never read because of early rejection
	data := b.finish()

	d := packfile.NewDecoder(fs, "/repo/objects")
	_, err := d.Decode(bytes.NewReader(data))
	require.Error(t, err)
	assert.True(t, ginternals.IsKind(err, ginternals.KindUnsupported))
}

func TestDecodeFooterMismatch(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/repo/objects", 0o755))

	var b packBuilder
	b.header(0)
	data := b.finish()
	data[len(data)-1] ^= 0xff // corrupt the footer digest

	d := packfile.NewDecoder(fs, "/repo/objects")
	_, err := d.Decode(bytes.NewReader(data))
	require.Error(t, err)
	assert.True(t, ginternals.IsKind(err, ginternals.KindChecksumMismatch))
}

func TestDecodeSurplusBytes(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/repo/objects", 0o755))

	var b packBuilder
	b.header(0)
	data := append(b.finish(), 0x00)

	d := packfile.NewDecoder(fs, "/repo/objects")
	_, err := d.Decode(bytes.NewReader(data))
	require.Error(t, err)
	assert.True(t, ginternals.IsKind(err, ginternals.KindProtocol))
}
