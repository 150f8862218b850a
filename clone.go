package microgit

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/mlaplanche/microgit/backend"
	"github.com/mlaplanche/microgit/client"
	"github.com/mlaplanche/microgit/env"
	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/ginternals/packfile"
)

// DirNameFromURL derives the destination directory of a clone from the
// last segment of a repository URL, stripping a trailing ".git".
func DirNameFromURL(url string) string {
	name := path.Base(strings.TrimSuffix(url, "/"))
	return strings.TrimSuffix(name, ".git")
}

// Clone creates a new repository at dir, fetches url's default branch
// over the smart HTTP v2 protocol, unpacks the resulting pack into
// loose objects, writes HEAD and the branch ref, and checks the
// fetched commit's tree out onto the working tree.
func Clone(e *env.Env, url, dir string) (*Repository, error) {
	if dir == "" {
		dir = DirNameFromURL(url)
	}

	r, err := InitRepository(e, dir)
	if err != nil {
		return nil, err
	}

	c := client.New(url)
	head, branch, err := c.LsRefs()
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	if branch == "" {
		branch = backend.DefaultBranch
	}

	pack, err := c.Fetch(head)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	defer pack.Close() //nolint:errcheck // best effort, read error takes precedence

	dec := packfile.NewDecoder(r.Config.FS, filepath.Clean(ginternals.ObjectsPath(r.Config)))
	if _, err := dec.Decode(pack); err != nil {
		_ = r.Close()
		return nil, err
	}

	branchRef := ginternals.LocalBranchFullName(branch)
	if err := r.WriteReference(ginternals.NewSymbolicReference(ginternals.Head, branchRef)); err != nil {
		_ = r.Close()
		return nil, err
	}
	if err := r.WriteReference(ginternals.NewReference(branchRef, head)); err != nil {
		_ = r.Close()
		return nil, err
	}

	if err := r.CheckoutEmpty(head); err != nil {
		_ = r.Close()
		return nil, err
	}

	return r, nil
}
