package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nao1215/gfontscan/internal/config"
	"github.com/nao1215/gfontscan/internal/database"
	"github.com/nao1215/gfontscan/internal/model"
	"github.com/nao1215/gfontscan/internal/report"
	"github.com/nao1215/gfontscan/internal/urlnorm"
	"github.com/spf13/cobra"
)

// historyDateLayout is the layout of history listings and --since.
const historyDateLayout = "2006-01-02"

// NewHistoryCmd creates the history command.
// This command compares stored results of earlier scans.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Compare scan results with earlier runs",
		Long: `History displays how a page's Google Fonts usage changed between scans.

Every 'gfontscan scan' stores its results unless --no-history is given.
By default the two most recent results for the URL are compared and the
added and removed Google Fonts stylesheets and font files are shown.

Examples:
  # Compare the latest two scans of a page
  gfontscan history https://example.com/

  # List all stored scans of a page
  gfontscan history --list https://example.com/

  # Compare the latest scan with a specific earlier scan
  gfontscan history --id 5 https://example.com/

  # Compare the latest scan with the first scan since a date
  gfontscan history --since 2026-01-01 https://example.com/

  # Show every recorded body digest of one Google Fonts stylesheet
  gfontscan history --stylesheet "https://fonts.googleapis.com/css?family=Roboto"

  # List all scanned pages
  gfontscan history --list-destinations`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// Listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List stored scans for the specified URL")
	cmd.Flags().BoolP("list-destinations", "L", false,
		"List all scanned URLs in the database")
	cmd.Flags().String("stylesheet", "",
		"List recorded digests of one Google Fonts stylesheet URL")

	// Comparison target flags
	cmd.Flags().Int64P("id", "i", 0,
		"Compare with a specific scan by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first scan on or after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the scan history database")

	return cmd
}

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	destination      string
	listDestinations bool
	list             bool
	stylesheet       string
	withID           int64
	since            string
	jsonOutput       bool
	markdownOutput   bool
	dbDir            string
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	needsTarget := !opts.listDestinations && opts.stylesheet == ""
	if needsTarget {
		if len(args) == 0 {
			return errors.New("a URL is required (use --list-destinations to see scanned URLs)")
		}
		opts.destination, err = urlnorm.NormalizeTarget(args[0])
		if err != nil {
			return fmt.Errorf("invalid URL %q: %w", args[0], err)
		}
	}
	if opts.jsonOutput && opts.markdownOutput {
		return config.ErrConflictingReportFormats
	}

	out := cmd.OutOrStdout()

	openOpts := database.DefaultOptions()
	openOpts.CreateIfNotExists = false
	db, err := database.Open(opts.dbDir, openOpts)
	if errors.Is(err, database.ErrNotFound) {
		fmt.Fprintln(out, "No scan history found")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case opts.listDestinations:
		return listDestinations(ctx, out, db)
	case opts.stylesheet != "":
		return listStylesheetHistory(ctx, out, db, opts.stylesheet)
	case opts.list:
		return listScanHistory(ctx, out, db, opts.destination)
	default:
		return runComparison(ctx, out, db, opts)
	}
}

// parseHistoryFlags reads the history command flags.
func parseHistoryFlags(cmd *cobra.Command) (*historyOptions, error) {
	flags := cmd.Flags()
	opts := &historyOptions{}

	var err error
	if opts.listDestinations, err = flags.GetBool("list-destinations"); err != nil {
		return nil, err
	}
	if opts.list, err = flags.GetBool("list"); err != nil {
		return nil, err
	}
	if opts.stylesheet, err = flags.GetString("stylesheet"); err != nil {
		return nil, err
	}
	if opts.withID, err = flags.GetInt64("id"); err != nil {
		return nil, err
	}
	if opts.since, err = flags.GetString("since"); err != nil {
		return nil, err
	}
	if opts.jsonOutput, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if opts.markdownOutput, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	return opts, nil
}

// listDestinations prints every URL with stored results.
func listDestinations(ctx context.Context, out io.Writer, db *database.HistoryDB) error {
	destinations, err := db.ListDestinations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list destinations: %w", err)
	}

	if len(destinations) == 0 {
		fmt.Fprintln(out, "No scan history found")
		return nil
	}

	fmt.Fprintf(out, "Scanned URLs (%d):\n\n", len(destinations))
	for _, d := range destinations {
		fmt.Fprintf(out, "  • %s\n", d)
	}
	return nil
}

// listScanHistory prints a table of stored scans for one URL.
func listScanHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, destination string) error {
	history, err := db.GetHistory(ctx, destination)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(history) == 0 {
		fmt.Fprintf(out, "No scan history found for %s\n", destination)
		return nil
	}

	fmt.Fprintf(out, "Scan history for %s (%d scans):\n\n", destination, len(history))
	fmt.Fprintf(out, "  %-6s  %-20s  %-8s  %s\n", "ID", "Date", "Verdict", "Hits")
	fmt.Fprintf(out, "  %-6s  %-20s  %-8s  %s\n", "------", "--------------------", "--------", "----")
	for _, h := range history {
		fmt.Fprintf(out, "  %-6d  %-20s  %-8s  %d stylesheets, %d font files\n",
			h.ID,
			h.ScannedAt.Local().Format("2006-01-02 15:04:05"),
			h.Verdict,
			h.StylesheetHits,
			h.FontFileHits,
		)
	}
	return nil
}

// listStylesheetHistory prints every recorded digest of one stylesheet URL.
func listStylesheetHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, url string) error {
	records, err := db.GetStylesheetHistory(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to get stylesheet history: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintf(out, "No digests recorded for %s\n", url)
		return nil
	}

	fmt.Fprintf(out, "Digests of %s (%d records):\n\n", url, len(records))
	for _, r := range records {
		fmt.Fprintf(out, "  %-6d  %-20s  %s  %s\n",
			r.ResultID,
			r.ScannedAt.Local().Format("2006-01-02 15:04:05"),
			shortDigest(r.Digest),
			r.Destination,
		)
	}
	return nil
}

// shortDigest keeps the first 12 hex characters of a digest.
func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// runComparison compares the latest stored result with an earlier one.
func runComparison(ctx context.Context, out io.Writer, db *database.HistoryDB, opts *historyOptions) error {
	history, err := db.GetHistory(ctx, opts.destination)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}
	if len(history) == 0 {
		return fmt.Errorf("no scan history found for %s", opts.destination)
	}
	if len(history) < 2 && opts.withID == 0 && opts.since == "" {
		return fmt.Errorf("at least 2 scans are required for comparison (found %d)", len(history))
	}

	current, err := db.GetResultByID(ctx, history[0].ID)
	if err != nil {
		return fmt.Errorf("failed to load scan %d: %w", history[0].ID, err)
	}

	previousID, err := selectPreviousID(history, opts)
	if err != nil {
		return err
	}
	previous, err := db.GetResultByID(ctx, previousID)
	if err != nil {
		return fmt.Errorf("failed to load scan %d: %w", previousID, err)
	}
	if previous == nil || current == nil {
		return fmt.Errorf("scan with ID %d not found", previousID)
	}
	if previous.Destination != opts.destination {
		return fmt.Errorf("scan ID %d belongs to %s, not %s", previousID, previous.Destination, opts.destination)
	}

	diff := model.Diff(previous, current)

	var w report.DiffWriter
	switch {
	case opts.jsonOutput:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case opts.markdownOutput:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out)
	}
	_, err = w.WriteDiff(diff)
	return err
}

// selectPreviousID picks the scan the latest one is compared with.
// history is ordered newest first.
func selectPreviousID(history []database.ResultMetadata, opts *historyOptions) (int64, error) {
	if opts.withID > 0 {
		return opts.withID, nil
	}

	if opts.since != "" {
		since, err := time.ParseInLocation(historyDateLayout, opts.since, time.Local)
		if err != nil {
			return 0, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		// Oldest first, so the first match is the earliest scan since the date.
		for i := len(history) - 1; i >= 0; i-- {
			if !history[i].ScannedAt.Before(since) {
				if i == 0 {
					return 0, fmt.Errorf("only one scan found since %s; at least 2 scans are required for comparison", opts.since)
				}
				return history[i].ID, nil
			}
		}
		return 0, fmt.Errorf("no scans found since %s", opts.since)
	}

	return history[1].ID, nil
}
