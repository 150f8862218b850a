// Package pktline implements git's pkt-line framing
// (gitprotocol-common(5)) and the side-band channel demultiplexer used
// by the smart HTTP v2 fetch response.
package pktline

import (
	"encoding/hex"
	"io"

	"github.com/mlaplanche/microgit/ginternals"
	"golang.org/x/xerrors"
)

const (
	lenPrefixSize = 4
	maxLineLen    = 65520 // 0xfff0, the largest pkt-line (length prefix included) git itself emits

	channelPack     = 1
	channelProgress = 2
	channelError    = 3
)

// ReadLine reads one pkt-line from r. flush is true for the special
// "0000" length (end of stream); delim is true for "0001" (section
// separator in v2 command responses). payload is nil for both.
func ReadLine(r io.Reader) (payload []byte, flush, delim bool, err error) {
	var lenBuf [lenPrefixSize]byte
	if _, err = io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, false, false, ginternals.NewError(ginternals.KindProtocol, "pktline.ReadLine", "", err)
	}

	length, err := parseHexLen(lenBuf[:])
	if err != nil {
		return nil, false, false, ginternals.NewError(ginternals.KindMalformed, "pktline.ReadLine", "", err)
	}

	switch length {
	case 0:
		return nil, true, false, nil
	case 1:
		return nil, false, true, nil
	}
	if length < lenPrefixSize {
		return nil, false, false, ginternals.NewError(ginternals.KindMalformed, "pktline.ReadLine", "",
			xerrors.Errorf("invalid pkt-line length %d", length))
	}

	payload = make([]byte, length-lenPrefixSize)
	if _, err = io.ReadFull(r, payload); err != nil {
		return nil, false, false, ginternals.NewError(ginternals.KindProtocol, "pktline.ReadLine", "", err)
	}
	return payload, false, false, nil
}

func parseHexLen(b []byte) (int, error) {
	n, err := hex.DecodeString(string(b))
	if err != nil {
		return 0, err
	}
	return int(n[0])<<8 | int(n[1]), nil
}

// WriteLine writes payload as a single pkt-line, length-prefixed with
// its own 4 bytes included in the count.
func WriteLine(w io.Writer, payload []byte) error {
	total := lenPrefixSize + len(payload)
	if total > maxLineLen {
		return ginternals.NewError(ginternals.KindMalformed, "pktline.WriteLine", "",
			xerrors.Errorf("payload too long: %d bytes", len(payload)))
	}
	if _, err := w.Write([]byte(hex.EncodeToString([]byte{byte(total >> 8), byte(total)}))); err != nil {
		return ginternals.NewError(ginternals.KindIO, "pktline.WriteLine", "", err)
	}
	if _, err := w.Write(payload); err != nil {
		return ginternals.NewError(ginternals.KindIO, "pktline.WriteLine", "", err)
	}
	return nil
}

// WriteFlush writes the special "0000" flush marker.
func WriteFlush(w io.Writer) error {
	_, err := w.Write([]byte("0000"))
	if err != nil {
		return ginternals.NewError(ginternals.KindIO, "pktline.WriteFlush", "", err)
	}
	return nil
}

// WriteDelim writes the special "0001" delimiter marker.
func WriteDelim(w io.Writer) error {
	_, err := w.Write([]byte("0001"))
	if err != nil {
		return ginternals.NewError(ginternals.KindIO, "pktline.WriteDelim", "", err)
	}
	return nil
}
