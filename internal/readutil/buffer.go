package readutil

import (
	"bufio"
	"io"
)

// Buffer wraps a bufio.Reader and exposes the BufferedReader contract
// plus a delimiter-scanning read used to parse header fields out of a
// streaming source without buffering the whole thing.
type Buffer struct {
	r *bufio.Reader
}

// NewBuffer wraps r in a buffered reader
func NewBuffer(r io.Reader) *Buffer {
	return &Buffer{r: bufio.NewReader(r)}
}

// Read implements io.Reader
func (b *Buffer) Read(p []byte) (int, error) {
	return b.r.Read(p)
}

// Discard skips n bytes, implementing BufferedReader
func (b *Buffer) Discard(n int) (int, error) {
	return b.r.Discard(n)
}

// ReadTo reads and returns the bytes up to (and excluding) the first
// occurrence of delim, consuming the delimiter itself
func (b *Buffer) ReadTo(delim byte) ([]byte, error) {
	data, err := b.r.ReadBytes(delim)
	if err != nil {
		return nil, err
	}
	return data[:len(data)-1], nil
}
