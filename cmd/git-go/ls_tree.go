package main

import (
	"fmt"
	"io"

	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/internal/errutil"
	"github.com/spf13/cobra"
)

func newLsTreeCmd(cfg *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls-tree TREE",
		Short: "List the contents of a tree object",
		Args:  cobra.ExactArgs(1),
	}

	nameOnly := cmd.Flags().Bool("name-only", false, "List only the names of the entries.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return lsTreeCmd(cmd.OutOrStdout(), cfg, args[0], *nameOnly)
	}
	return cmd
}

func lsTreeCmd(out io.Writer, cfg *flags, treeName string, nameOnly bool) (err error) {
	oid, err := ginternals.NewOidFromStr(treeName)
	if err != nil {
		return err
	}

	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	o, err := r.GetObject(oid)
	if err != nil {
		return err
	}
	tree, err := o.AsTree()
	if err != nil {
		return err
	}

	for _, e := range tree.Entries() {
		if nameOnly {
			fmt.Fprintln(out, e.Path)
			continue
		}
		fmt.Fprintf(out, "%06o %s %s\t%s\n", e.Mode, e.Mode.ObjectType().String(), e.ID.String(), e.Path)
	}
	return nil
}
