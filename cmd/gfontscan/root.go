package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/gfontscan/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for gfontscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gfontscan",
		Short: "Detect Google Fonts usage on web pages",
		Long: `gfontscan checks whether a web page loads fonts from Google servers
(fonts.googleapis.com stylesheets or fonts.gstatic.com font files).

It fetches the page, follows stylesheet links and @import chains, rescans
external scripts for hidden references and decodes escaped or encoded URLs
before matching. The report ends with a machine-readable line:

  GOOGLE_FONTS_PRESENT=YES|NO|UNKNOWN`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Print progress lines and debug logs to stderr")
	cmd.PersistentFlags().Bool("log-json", false, "Write stderr logs as JSON lines")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
// SIGINT and SIGTERM cancel the running scan.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	return getGlobalBool(cmd, "verbose")
}

// getLogJSONFlag retrieves the log-json flag from the command or its parent.
func getLogJSONFlag(cmd *cobra.Command) bool {
	return getGlobalBool(cmd, "log-json")
}

func getGlobalBool(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return value
}

// setupLogger creates the sanitizing stderr logger for the given verbosity,
// as text or as JSON lines.
func setupLogger(verbose, jsonFormat bool) *slog.Logger {
	if jsonFormat {
		return log.NewSecureJSONLogger(os.Stderr, verbose)
	}
	return log.NewSecureLogger(os.Stderr, verbose)
}
