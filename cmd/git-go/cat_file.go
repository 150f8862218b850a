package main

import (
	"fmt"
	"io"

	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/ginternals/object"
	"github.com/mlaplanche/microgit/internal/errutil"
	"github.com/spf13/cobra"
)

func newCatFileCmd(cfg *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat-file -p OBJECT",
		Short: "Provide content for a repository object",
		Args:  cobra.ExactArgs(1),
	}

	prettyPrint := cmd.Flags().BoolP("p", "p", false, "Pretty-print the contents of <object> based on its type.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if !*prettyPrint {
			return fmt.Errorf("-p is required")
		}
		return catFileCmd(cmd.OutOrStdout(), cfg, args[0])
	}
	return cmd
}

func catFileCmd(out io.Writer, cfg *flags, objectName string) (err error) {
	oid, err := ginternals.NewOidFromStr(objectName)
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

	if o.Type() != object.TypeTree {
		_, err = out.Write(o.Bytes())
		return err
	}

	tree, err := o.AsTree()
	if err != nil {
		return err
	}
	for _, e := range tree.Entries() {
		fmt.Fprintf(out, "%06o %s %s\t%s\n", e.Mode, e.Mode.ObjectType().String(), e.ID.String(), e.Path)
	}
	return nil
}
