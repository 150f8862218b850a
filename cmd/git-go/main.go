// Command git-go is a minimal, interoperable re-implementation of a
// handful of plumbing verbs: enough to create a repository, hash and
// read loose objects, build and materialise trees, build commits,
// unpack a packfile, and clone a remote over the smart HTTP v2
// protocol.
package main

import (
	"fmt"
	"os"

	"github.com/mlaplanche/microgit/env"
	"github.com/mgutz/ansi"
	"golang.org/x/term"
)

func main() {
	ansi.DisableColors(!term.IsTerminal(int(os.Stdout.Fd())))

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cmd := newRootCmd(cwd, env.NewFromOs())
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
