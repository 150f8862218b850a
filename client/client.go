// Package client implements the client side of git's smart HTTP v2
// upload-pack protocol, restricted to the two requests a clone needs:
// ls-refs (to find HEAD) and fetch (to retrieve its pack).
package client

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/ginternals/pktline"
	"golang.org/x/xerrors"
)

// lsRefsBody and fetchBodyPrefix/Suffix are the literal pkt-line
// encoded request bodies for ls-refs/fetch. Their length prefixes are
// fixed because every field they frame has a fixed length, except the
// "want" line in fetch, whose length is constant too since it always
// frames a 40-char hex digest.
const (
	lsRefsBody       = "0013command=ls-refs0001000bsymrefs0013ref-prefix HEAD0000"
	fetchBodyPrefix  = "0011command=fetch0001000fno-progress0031want "
	fetchBodySuffix  = "0000"
	symrefHeadPrefix = "symref-target:refs/heads/"
)

// Client talks to a single remote's git-upload-pack endpoint using
// smart HTTP protocol version 2.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for the upload-pack endpoint at baseURL (the
// repository URL, without the "/git-upload-pack" suffix).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    http.DefaultClient,
	}
}

func (c *Client) post(body string) (io.ReadCloser, error) {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/git-upload-pack", bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, ginternals.NewError(ginternals.KindIO, "client.post", c.baseURL, err)
	}
	req.Header.Set("Git-Protocol", "version=2")
	req.Header.Set("Content-Type", "application/x-git-upload-pack-request")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ginternals.NewError(ginternals.KindIO, "client.post", c.baseURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, ginternals.NewError(ginternals.KindProtocol, "client.post", c.baseURL,
			xerrors.Errorf("unexpected status %s", resp.Status))
	}
	return resp.Body, nil
}

// LsRefs asks the remote to list its refs with HEAD's symref target,
// and returns HEAD's Oid and the short name of the branch it points
// to. Only the first advertised line is consumed.
func (c *Client) LsRefs() (head ginternals.Oid, branch string, err error) {
	body, err := c.post(lsRefsBody)
	if err != nil {
		return ginternals.NullOid, "", err
	}
	defer body.Close() //nolint:errcheck // best effort, read error takes precedence

	payload, flush, delim, err := pktline.ReadLine(body)
	if err != nil {
		return ginternals.NullOid, "", err
	}
	if flush || delim || len(payload) == 0 {
		return ginternals.NullOid, "", ginternals.NewError(ginternals.KindProtocol, "client.LsRefs", "",
			xerrors.New("remote advertised no HEAD ref"))
	}

	line := strings.TrimRight(string(payload), "\n")
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[1] != "HEAD" {
		return ginternals.NullOid, "", ginternals.NewError(ginternals.KindProtocol, "client.LsRefs", line,
			xerrors.New("expected a HEAD ls-refs line"))
	}

	head, err = ginternals.NewOidFromStr(fields[0])
	if err != nil {
		return ginternals.NullOid, "", ginternals.NewError(ginternals.KindProtocol, "client.LsRefs", line, err)
	}

	for _, f := range fields[2:] {
		if strings.HasPrefix(f, symrefHeadPrefix) {
			return head, strings.TrimPrefix(f, symrefHeadPrefix), nil
		}
	}
	return ginternals.NullOid, "", ginternals.NewError(ginternals.KindProtocol, "client.LsRefs", line,
		xerrors.New("HEAD line has no symref-target"))
}

// Fetch requests the pack reachable from head with no-progress, and
// returns a reader over the decoded channel-1 (packfile) bytes. The
// caller must Close it.
func (c *Client) Fetch(head ginternals.Oid) (io.ReadCloser, error) {
	body := fetchBodyPrefix + head.String() + fetchBodySuffix
	resp, err := c.post(body)
	if err != nil {
		return nil, err
	}

	pr, err := pktline.NewPackReader(resp)
	if err != nil {
		_ = resp.Close()
		return nil, err
	}
	return &packStream{PackReader: pr, body: resp}, nil
}

// packStream adapts a *pktline.PackReader (io.Reader only) into an
// io.ReadCloser by closing the underlying HTTP response body.
type packStream struct {
	*pktline.PackReader
	body io.Closer
}

func (p *packStream) Close() error {
	return p.body.Close()
}
