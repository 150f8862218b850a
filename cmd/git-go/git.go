package main

import (
	"github.com/mlaplanche/microgit/env"
	"github.com/mlaplanche/microgit/internal/pathutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type flags struct {
	C pflag.Value // simpler version of git's -C: https://git-scm.com/docs/git#Documentation/git.txt--Cltpathgt

	env *env.Env
}

func newRootCmd(cwd string, e *env.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "git-go",
		Short:         "git implementation in pure Go",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(cmd)
		},
	}

	cfg := &flags{
		env: e,
	}
	cfg.C = pathutil.NewDirPathFlagWithDefault(cwd)
	cmd.PersistentFlags().VarP(cfg.C, "C", "C", "Run as if git was started in the provided path instead of the current working directory.")
	cmd.PersistentFlags().Bool("verbose", false, "Print debug-level tracing for networked operations.")

	// porcelain
	cmd.AddCommand(newInitCmd(cfg))
	cmd.AddCommand(newCloneCmd(cfg))
	cmd.AddCommand(newCheckoutEmptyCmd(cfg))

	// plumbing
	cmd.AddCommand(newCatFileCmd(cfg))
	cmd.AddCommand(newHashObjectCmd(cfg))
	cmd.AddCommand(newLsTreeCmd(cfg))
	cmd.AddCommand(newWriteTreeCmd(cfg))
	cmd.AddCommand(newCommitTreeCmd(cfg))
	cmd.AddCommand(newUnpackObjectsCmd(cfg))
	cmd.AddCommand(newLsRemoteCmd(cfg))

	return cmd
}
