package main

import (
	"fmt"
	"io"

	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/ginternals/packfile"
	"github.com/mlaplanche/microgit/internal/errutil"
	"github.com/spf13/cobra"
)

func newUnpackObjectsCmd(cfg *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unpack-objects",
		Short: "Unpack a packfile read from stdin into loose objects",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return unpackObjectsCmd(cmd.OutOrStdout(), cmd.InOrStdin(), cfg)
	}
	return cmd
}

func unpackObjectsCmd(out io.Writer, in io.Reader, cfg *flags) (err error) {
	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	dec := packfile.NewDecoder(r.Config.FS, ginternals.ObjectsPath(r.Config))
	count, err := dec.Decode(in)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Unpacked %d objects\n", count)
	return nil
}
