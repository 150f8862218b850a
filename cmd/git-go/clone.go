package main

import (
	"io"
	"time"

	git "github.com/mlaplanche/microgit"
	"github.com/mlaplanche/microgit/internal/errutil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

func newCloneCmd(cfg *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clone URL [dir]",
		Short: "Clone a remote repository over the smart HTTP v2 protocol",
		Args:  cobra.RangeArgs(1, 2),
	}

	quiet := cmd.Flags().BoolP("quiet", "q", false, "Suppress the progress indicator.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) == 2 {
			dir = args[1]
		}
		return cloneCmd(cmd.OutOrStdout(), cfg, args[0], dir, *quiet)
	}
	return cmd
}

func cloneCmd(out io.Writer, cfg *flags, url, dir string, quiet bool) (err error) {
	if dir == "" {
		dir = git.DirNameFromURL(url)
	}
	target := resolveDir(cfg, dir)
	logrus.Debugf("cloning %s into %s", url, target)

	stop := startCloneSpinner(out, quiet, url)
	r, err := git.Clone(cfg.env, url, target)
	stop()
	if err != nil {
		logrus.Debugf("clone of %s failed: %v", url, err)
		return err
	}
	defer errutil.Close(r, &err)

	logrus.Debugf("clone of %s complete", url)
	return nil
}

// startCloneSpinner renders an indeterminate progress bar for the
// duration of the blocking Clone call, since the smart HTTP v2 client
// doesn't expose byte-level progress callbacks. The returned func stops
// and clears the bar.
func startCloneSpinner(out io.Writer, quiet bool, url string) func() {
	if quiet {
		return func() {}
	}

	p := mpb.New(mpb.WithOutput(out), mpb.WithAutoRefresh())
	bar := p.New(-1,
		mpb.BarStyle().Filler("#").Padding(" "),
		mpb.PrependDecorators(decor.Name("Cloning "+url)),
		mpb.BarWidth(20),
	)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				bar.Increment()
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		bar.SetTotal(-1, true)
		p.Wait()
	}
}
