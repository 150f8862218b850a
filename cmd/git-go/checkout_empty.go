package main

import (
	"io"

	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/internal/errutil"
	"github.com/spf13/cobra"
)

func newCheckoutEmptyCmd(cfg *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout-empty COMMIT",
		Short: "Materialise a commit's tree onto the working tree",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return checkoutEmptyCmd(cmd.OutOrStdout(), cfg, args[0])
	}
	return cmd
}

func checkoutEmptyCmd(_ io.Writer, cfg *flags, commitName string) (err error) {
	commitID, err := ginternals.NewOidFromStr(commitName)
	if err != nil {
		return err
	}

	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	return r.CheckoutEmpty(commitID)
}
