package main

import (
	"fmt"
	"io"
	"path/filepath"

	git "github.com/mlaplanche/microgit"
)

// loadRepository opens the repository rooted at (or above) the -C
// directory.
func loadRepository(cfg *flags) (*git.Repository, error) {
	return git.Open(cfg.env, cfg.C.String())
}

// resolveDir joins a command's optional positional directory argument
// against the effective -C directory, the way git resolves pathspecs
// relative to the directory -C moved it into.
func resolveDir(cfg *flags, dir string) string {
	if dir == "" {
		return cfg.C.String()
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(cfg.C.String(), dir)
}

func fprintln(quiet bool, out io.Writer, msg ...interface{}) {
	if !quiet {
		fmt.Fprintln(out, msg...)
	}
}

func fprintf(quiet bool, out io.Writer, format string, a ...interface{}) {
	if !quiet {
		fmt.Fprintf(out, format, a...)
	}
}
