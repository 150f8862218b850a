package main

import (
	"fmt"
	"io"

	"github.com/mlaplanche/microgit/client"
	"github.com/mlaplanche/microgit/ginternals"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newLsRemoteCmd(cfg *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls-remote URL HEAD",
		Short: "List references advertised by a remote",
		Args:  cobra.ExactArgs(2),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return lsRemoteCmd(cmd.OutOrStdout(), args[0], args[1])
	}
	return cmd
}

func lsRemoteCmd(out io.Writer, url, ref string) error {
	if ref != ginternals.Head {
		return ginternals.NewError(ginternals.KindUnsupported, "ls-remote", ref,
			xerrors.New("only HEAD is supported"))
	}

	head, _, err := client.New(url).LsRefs()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\t%s\n", head.String(), ginternals.Head)
	return nil
}
