package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hostwright/hostwright/internal/adapters/logging"
	"github.com/hostwright/hostwright/internal/app"
	"github.com/hostwright/hostwright/internal/domain/manifest"
	"github.com/hostwright/hostwright/internal/ports"
)

var (
	// Global flags
	manifestPath string
	stateDir     string
	verbose      bool
	logJSON      bool
	yesFlag      bool
)

var rootCmd = &cobra.Command{
	Use:   "hostwright",
	Short: "An idempotent host provisioner for self-hosted file sharing",
	Long: `Hostwright provisions a Debian/Ubuntu host to serve a self-hosted
file-sharing application: packages, database, storage mounts, PHP
tuning, the web app itself, and an optional TLS certificate.

Every operation is idempotent. Hostwright probes the host, plans only
the steps whose preconditions are not yet satisfied, and re-running it
against an already provisioned host changes nothing.`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "m", "hostwright.yaml", "path to the host manifest")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", app.DefaultStateDir, "directory for the journal and generated secrets")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON")
	rootCmd.PersistentFlags().BoolVarP(&yesFlag, "yes", "y", false, "auto-confirm all prompts")

	// Flag errors are operator errors, not runtime failures.
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &manifest.UserError{
			Message:    err.Error(),
			Suggestion: "run 'hostwright --help' for usage",
		}
	})

	rootCmd.AddCommand(versionCmd)
}

// newClient builds the application from the global flags,
// injectable for tests.
var newClient = func(out io.Writer) *app.Hostwright {
	level := ports.LevelInfo
	if verbose {
		level = ports.LevelDebug
	}
	logger := logging.NewConsoleLogger(
		logging.WithLevel(level),
		logging.WithJSONFormat(logJSON),
	)
	return app.New(out,
		app.WithLogger(logger),
		app.WithStateDir(stateDir),
	)
}

// exitCode maps an error to the process exit code: 2 for operator
// errors (bad arguments or manifest), 1 for everything else.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var userErr *manifest.UserError
	if errors.As(err, &userErr) {
		return 2
	}
	return 1
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	var userErr *manifest.UserError
	if errors.As(err, &userErr) {
		msg := userErr.Message
		if userErr.Context != "" {
			msg += fmt.Sprintf(" (at %s)", userErr.Context)
		}
		if userErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", userErr.Suggestion)
		}
		if verbose && userErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", userErr.Underlying)
		}
		return msg
	}
	return err.Error()
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}
