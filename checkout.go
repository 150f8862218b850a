package microgit

import (
	"bytes"

	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/ginternals/object"
	"golang.org/x/xerrors"
)

// CheckoutEmpty materialises the tree of the commit at commitID onto
// the repository's working tree. It doesn't resolve or validate the
// whole commit: it only needs the "tree <hex>" first line, which lets
// it work even against a commit whose remaining fields this tree
// doesn't care to parse.
func (r *Repository) CheckoutEmpty(commitID ginternals.Oid) error {
	o, err := r.GetObject(commitID)
	if err != nil {
		return err
	}
	if o.Type() != object.TypeCommit {
		return ginternals.NewError(ginternals.KindMalformed, "microgit.CheckoutEmpty", commitID.String(), ErrNotACommit)
	}

	data := o.Bytes()
	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}
	const prefix = "tree "
	if !bytes.HasPrefix(firstLine, []byte(prefix)) {
		return ginternals.NewError(ginternals.KindMalformed, "microgit.CheckoutEmpty", commitID.String(),
			xerrors.New("commit's first line doesn't start with 'tree '"))
	}

	treeID, err := ginternals.NewOidFromStr(string(firstLine[len(prefix):]))
	if err != nil {
		return ginternals.NewError(ginternals.KindMalformed, "microgit.CheckoutEmpty", commitID.String(), err)
	}

	treeReader, err := r.ObjectReader(treeID)
	if err != nil {
		return err
	}
	tree, err := object.NewTreeFromReader(treeReader)
	closeErr := treeReader.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return closeErr
	}

	return tree.Materialise(r.Config.FS, r.Config.WorkTreePath, r.treeLoader())
}
