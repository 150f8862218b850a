package pktline

import (
	"io"

	"github.com/mlaplanche/microgit/ginternals"
	"golang.org/x/xerrors"
)

// PackReader extracts channel #1 (packfile bytes) of a side-band-
// demultiplexed fetch response, under the assumption that the request
// asked for no-progress so channel #2 never appears. It satisfies
// io.Reader, and is buffered internally so the pack decoder's zlib
// layer can pull from it efficiently even though a pkt-line payload
// may span multiple internal fills.
type PackReader struct {
	src  io.Reader
	cur  []byte // remaining bytes of the current pkt-line's payload
	done bool
}

// NewPackReader consumes and validates the response's first pkt-line,
// which for a `fetch` with no-progress must read exactly "packfile"
// (with an optional trailing newline), then returns a reader over the
// subsequent channel-1 bytes.
func NewPackReader(src io.Reader) (*PackReader, error) {
	payload, flush, delim, err := ReadLine(src)
	if err != nil {
		return nil, err
	}
	if flush || delim {
		return nil, ginternals.NewError(ginternals.KindProtocol, "pktline.NewPackReader", "",
			xerrors.New("expected a 'packfile' line, got flush/delimiter"))
	}
	trimmed := payload
	if len(trimmed) > 0 && trimmed[len(trimmed)-1] == '\n' {
		trimmed = trimmed[:len(trimmed)-1]
	}
	if string(trimmed) != "packfile" {
		return nil, ginternals.NewError(ginternals.KindProtocol, "pktline.NewPackReader", "",
			xerrors.Errorf("expected 'packfile', got %q", trimmed))
	}
	return &PackReader{src: src}, nil
}

// Read implements io.Reader, pulling fresh pkt-lines from the
// underlying stream as needed and stripping each one's leading
// channel byte.
func (p *PackReader) Read(buf []byte) (int, error) {
	for len(p.cur) == 0 {
		if p.done {
			return 0, io.EOF
		}
		payload, flush, delim, err := ReadLine(p.src)
		if err != nil {
			return 0, err
		}
		if flush {
			p.done = true
			return 0, io.EOF
		}
		if delim {
			return 0, ginternals.NewError(ginternals.KindProtocol, "pktline.PackReader.Read", "",
				xerrors.New("unexpected delimiter inside packfile stream"))
		}
		if len(payload) == 0 {
			return 0, ginternals.NewError(ginternals.KindProtocol, "pktline.PackReader.Read", "",
				xerrors.New("pkt-line has no channel id"))
		}
		switch payload[0] {
		case channelPack:
			p.cur = payload[1:]
		case channelProgress:
			return 0, ginternals.NewError(ginternals.KindProtocol, "pktline.PackReader.Read", "",
				xerrors.New("unexpected progress channel under no-progress"))
		case channelError:
			return 0, ginternals.NewError(ginternals.KindProtocol, "pktline.PackReader.Read", "",
				xerrors.Errorf("remote error: %s", string(payload[1:])))
		default:
			return 0, ginternals.NewError(ginternals.KindProtocol, "pktline.PackReader.Read", "",
				xerrors.Errorf("unknown side-band channel %d", payload[0]))
		}
	}

	n := copy(buf, p.cur)
	p.cur = p.cur[n:]
	return n, nil
}
