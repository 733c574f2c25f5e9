// Package main is the entry point for the appversion CLI application.
// appversion bumps the application version, writes the changelog, and
// commits, pushes and tags the release.
package main

import (
	"fmt"
	"os"

	"github.com/appversion/appversion/internal/cmd"
	apperrors "github.com/appversion/appversion/internal/pkg/errors"
)

// Version information - set via ldflags during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := cmd.NewRootCmd(version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		if apperrors.IsVerbose() {
			fmt.Fprintln(os.Stderr, apperrors.FormatErrorVerbose(err))
		} else {
			fmt.Fprintln(os.Stderr, apperrors.FormatError(err))
		}
		os.Exit(apperrors.GetExitCode(err))
	}
}
