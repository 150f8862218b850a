package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// configureLogging sets logrus's level from the root command's
// --verbose flag. Plumbing verbs stay silent unless asked; debug-level
// tracing is reserved for operations with real protocol chatter to
// report, namely clone.
func configureLogging(cmd *cobra.Command) {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil || !verbose {
		logrus.SetLevel(logrus.WarnLevel)
		return
	}
	logrus.SetLevel(logrus.DebugLevel)
}
