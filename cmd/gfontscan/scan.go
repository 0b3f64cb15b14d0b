package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/gfontscan/internal/config"
	"github.com/nao1215/gfontscan/internal/database"
	"github.com/nao1215/gfontscan/internal/fetch"
	"github.com/nao1215/gfontscan/internal/model"
	"github.com/nao1215/gfontscan/internal/pipeline"
	"github.com/nao1215/gfontscan/internal/report"
	"github.com/nao1215/gfontscan/internal/urlnorm"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url]...",
		Short: "Check web pages for Google Fonts usage",
		Long: `Scan fetches each page and reports the Google Fonts stylesheets and font
files it loads, directly or through @import chains and external scripts.

A target without a scheme is fetched over https. Pages that cannot be fetched
are reported as GOOGLE_FONTS_PRESENT=UNKNOWN; this is not an error.

Examples:
  # Check a single page
  gfontscan scan https://example.com/

  # Check several pages, four at a time, with progress on stderr
  gfontscan scan -v -b 4 example.com example.org/about

  # Follow deeper @import chains and write a Markdown report
  gfontscan scan -d 6 -m -o report.md https://example.com/

  # Send requests through a SOCKS5 proxy
  gfontscan scan -x 127.0.0.1:9050 https://example.com/

Configuration file (.gfontscan) example:
  defaults:
    acceptLanguage: "de-DE,de;q=0.9"
  sites:
    example.com:
      cookie: "cookie_consent=all"
      depth: 6`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Resolution flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum number of @import levels to follow")
	cmd.Flags().IntP("concurrency", "C", config.DefaultConcurrency,
		"Number of stylesheets of one @import level fetched at once")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of targets checked concurrently")

	// Request flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().StringP("proxy", "x", "",
		"Send requests through a SOCKS5 proxy at host:port")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().StringP("accept-language", "l", config.DefaultAcceptLanguage,
		"Accept-Language header sent with every request")
	cmd.Flags().Duration("delay", 0,
		"Minimum delay between requests to one target (e.g. 500ms)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .gfontscan in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().Bool("no-history", false,
		"Do not store results in the scan history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the scan history database")

	return cmd
}

// runScanCmd executes the scan command.
// A missing or invalid target prints usage and succeeds.
func runScanCmd(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	targets := make([]string, 0, len(args))
	for _, arg := range args {
		target, err := urlnorm.NormalizeTarget(arg)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%v: %q\n\n", err, arg)
			return cmd.Usage()
		}
		targets = append(targets, target)
	}

	cfg, err := buildConfig(cmd, targets)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose, getLogJSONFlag(cmd))
	slog.SetDefault(logger)

	return runScan(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, targets []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Targets = targets
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	flags := cmd.Flags()

	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.AcceptLanguage, err = flags.GetString("accept-language"); err != nil {
		return nil, err
	}
	if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadSiteConfigs loads the configuration file.
// If the user explicitly specified a path, a missing file is an error.
// Otherwise an empty configuration is used when no file is found.
func loadSiteConfigs(explicitPath string) (*config.File, error) {
	configPath := config.FindConfigFile(explicitPath)
	if configPath == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitPath)
		}
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}

	siteConfigs, err := config.LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return siteConfigs, nil
}

// runScan resolves every target, writes the report and records history.
func runScan(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	var progress io.Writer
	if cfg.Verbose {
		progress = stderr
	}

	// Build every resolver first so a bad proxy address fails before any fetch.
	resolvers := make(map[string]*pipeline.Pipeline, len(cfg.Targets))
	for _, target := range cfg.Targets {
		if _, ok := resolvers[target]; ok {
			continue
		}
		p, err := newResolverForTarget(cfg, target, progress, logger)
		if err != nil {
			return err
		}
		resolvers[target] = p
	}

	logger.Debug("starting scan",
		"targets", len(cfg.Targets),
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	bp := pipeline.NewBatchProcessor(
		func(target string) *pipeline.Pipeline { return resolvers[target] },
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)
	results, scanErr := bp.ProcessBatch(ctx, cfg.Targets)

	completed := make([]*model.RunResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			completed = append(completed, r)
		}
	}

	if err := outputReport(cfg, stdout, completed); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if scanErr != nil {
		return fmt.Errorf("scan interrupted: %w", scanErr)
	}

	if cfg.SaveToDB {
		saveHistory(ctx, cfg.DBDir, completed, logger)
	}
	return nil
}

// newResolverForTarget creates a resolver with the target's site settings.
// Site entries override the global flags for their host.
func newResolverForTarget(cfg *config.Config, target string, progress io.Writer, logger *slog.Logger) (*pipeline.Pipeline, error) {
	host := urlnorm.Host(target)
	var site config.SiteConfig
	if cfg.SiteConfigs != nil {
		site = cfg.SiteConfigs.GetSiteConfig(host)
	}

	client, err := fetch.NewClient(fetchOptions(cfg, host, site)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client for %s: %w", target, err)
	}

	depth := cfg.MaxDepth
	if site.Depth > 0 {
		depth = site.Depth
	}

	return pipeline.NewResolver(client, logger,
		pipeline.WithMaxDepth(depth),
		pipeline.WithLevelConcurrency(cfg.Concurrency),
		pipeline.WithProgress(progress),
	), nil
}

// fetchOptions translates the global and site settings into client options.
// The site cookie and headers only go to host, never to font or script hosts.
func fetchOptions(cfg *config.Config, host string, site config.SiteConfig) []fetch.Option {
	opts := []fetch.Option{
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithAcceptLanguage(cfg.AcceptLanguage),
		fetch.WithDelay(cfg.Delay),
	}
	if cfg.ProxyAddress != "" {
		opts = append(opts, fetch.WithProxy(cfg.ProxyAddress))
	}

	// Applied last so they win over the globals.
	opts = append(opts,
		fetch.WithUserAgent(site.UserAgent),
		fetch.WithAcceptLanguage(site.AcceptLanguage),
		fetch.WithSiteHost(host),
	)
	if site.Cookie != "" {
		opts = append(opts, fetch.WithCookie(site.Cookie))
	}
	if len(site.Headers) > 0 {
		opts = append(opts, fetch.WithHeaders(site.Headers))
	}
	return opts
}

// outputReport writes the results in the requested format, to the report
// file when one is configured and to stdout otherwise.
func outputReport(cfg *config.Config, stdout io.Writer, results []*model.RunResult) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	if cfg.JSONReport {
		w := report.NewJSONWriter(output, report.WithPrettyPrint())
		if len(results) == 1 {
			_, err := w.Write(results[0])
			return err
		}
		_, err := w.WriteAll(results)
		return err
	}

	var w report.Writer = report.NewSimpleWriter(output)
	if cfg.MarkdownReport {
		w = report.NewMarkdownWriter(output)
	}

	for i, r := range results {
		if i > 0 {
			if _, err := io.WriteString(output, "\n"); err != nil {
				return err
			}
		}
		if _, err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// saveHistory stores results and warns about destinations that started
// loading Google Fonts since their previous scan. History problems are
// logged, never fatal.
func saveHistory(ctx context.Context, dbDir string, results []*model.RunResult, logger *slog.Logger) {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("scan history unavailable", "dir", dbDir, "error", err)
		return
	}
	defer db.Close()

	for _, result := range results {
		previous, err := db.GetLatestResult(ctx, result.Destination)
		if err != nil {
			logger.Warn("failed to read scan history", "destination", result.Destination, "error", err)
		}

		if _, err := db.SaveResult(ctx, result); err != nil {
			logger.Warn("failed to save scan result", "destination", result.Destination, "error", err)
			continue
		}

		if previous == nil {
			continue
		}
		diff := model.Diff(previous, result)
		switch {
		case diff.IsRegression():
			logger.Warn("Google Fonts appeared since the previous scan",
				"destination", result.Destination,
				"previous_id", previous.ID,
				"current_id", result.ID,
			)
		case diff.HasChanges():
			logger.Debug("Google Fonts usage changed since the previous scan",
				"destination", result.Destination,
				"previous_verdict", diff.OldVerdict,
				"current_verdict", diff.NewVerdict,
			)
		}
	}
}
