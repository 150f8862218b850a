package main

import (
	"fmt"
	"io"
	"strings"

	git "github.com/mlaplanche/microgit"
	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/ginternals/object"
	"github.com/mlaplanche/microgit/internal/errutil"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newCommitTreeCmd(cfg *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit-tree TREE -m MESSAGE [-p PARENT]...",
		Short: "Create a commit object from a tree",
		Args:  cobra.ExactArgs(1),
	}

	parents := cmd.Flags().StringArrayP("parent", "p", nil, "A parent commit, may be given multiple times.")
	messages := cmd.Flags().StringArrayP("message", "m", nil, "A message paragraph, may be given multiple times.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(*messages) == 0 {
			return xerrors.New("a commit message is required")
		}
		return commitTreeCmd(cmd.OutOrStdout(), cfg, args[0], *parents, *messages)
	}
	return cmd
}

func commitTreeCmd(out io.Writer, cfg *flags, treeName string, parentNames, messages []string) (err error) {
	treeID, err := ginternals.NewOidFromStr(treeName)
	if err != nil {
		return err
	}

	parentIDs := make([]ginternals.Oid, len(parentNames))
	for i, p := range parentNames {
		parentIDs[i], err = ginternals.NewOidFromStr(p)
		if err != nil {
			return err
		}
	}

	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	author, err := git.AuthorSignature(cfg.env)
	if err != nil {
		return err
	}
	committer, err := git.CommitterSignature(cfg.env)
	if err != nil {
		return err
	}

	c := object.NewCommit(treeID, author, &object.CommitOptions{
		Message:   strings.Join(messages, "\n\n"),
		Committer: committer,
		ParentsID: parentIDs,
	})

	root := ginternals.ObjectsPath(r.Config)
	oid, err := object.WriteObject(r.Config.FS, root, c.ToObject(), true)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, oid.String())
	return nil
}
