package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/ginternals/object"
	"github.com/mlaplanche/microgit/internal/errutil"
	"github.com/spf13/cobra"
)

func newHashObjectCmd(cfg *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-object [-w] FILE",
		Short: "Compute the object ID for a file, optionally writing it",
		Args:  cobra.ExactArgs(1),
	}

	write := cmd.Flags().BoolP("write", "w", false, "Actually write the object into the object database.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return hashObjectCmd(cmd.OutOrStdout(), cfg, args[0], *write)
	}
	return cmd
}

func hashObjectCmd(out io.Writer, cfg *flags, filePath string, write bool) (err error) {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // read-only, nothing to flush

	info, err := f.Stat()
	if err != nil {
		return err
	}

	if !write {
		oid, err := object.WriteBlob(nil, "", info.Size(), f, false)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, oid.String())
		return nil
	}

	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	root := ginternals.ObjectsPath(r.Config)
	oid, err := object.WriteBlob(r.Config.FS, root, info.Size(), f, true)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, oid.String())
	return nil
}
