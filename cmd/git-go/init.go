package main

import (
	"io"
	"os"
	"path/filepath"

	git "github.com/mlaplanche/microgit"
	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/internal/gitpath"
	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
)

func newInitCmd(cfg *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create an empty Git repository",
		Args:  cobra.MaximumNArgs(1),
	}

	quiet := cmd.Flags().BoolP("quiet", "q", false, "Only print error and warning messages; all other output will be suppressed.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) > 0 {
			dir = args[0]
		}
		return initCmd(cmd.OutOrStdout(), cfg, *quiet, dir)
	}

	return cmd
}

func initCmd(out io.Writer, cfg *flags, quiet bool, optionalDirectory string) error {
	target := resolveDir(cfg, optionalDirectory)

	// A repo is considered pre-existing if it already has a HEAD,
	// which init() always (re)writes.
	newRepo := true
	if _, err := os.Stat(filepath.Join(target, gitpath.DotGitPath, ginternals.Head)); err == nil {
		newRepo = false
	}

	r, err := git.InitRepository(cfg.env, target)
	if err != nil {
		return err
	}
	defer r.Close() //nolint:errcheck // best effort, init error takes precedence

	gitDir := r.Config.GitDirPath
	verb := "Initialized empty"
	if !newRepo {
		verb = "Reinitialized existing"
	}
	fprintln(quiet, out, ansi.Color(verb+" Git repository in", "green"), gitDir)
	return nil
}
