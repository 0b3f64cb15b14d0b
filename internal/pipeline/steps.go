package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nao1215/gfontscan/internal/decode"
	"github.com/nao1215/gfontscan/internal/extract"
	"github.com/nao1215/gfontscan/internal/fetch"
	"github.com/nao1215/gfontscan/internal/model"
	"github.com/nao1215/gfontscan/internal/urlnorm"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxDepth is the number of @import levels followed.
const DefaultMaxDepth = 4

// unavailableNote is shown next to an UNKNOWN verdict.
const unavailableNote = "the target page could not be fetched or was empty " +
	"(blocked or rendered only by JavaScript); Google Fonts usage is undetermined"

// stepConfig is shared by all resolver steps.
type stepConfig struct {
	logger      *slog.Logger
	progress    io.Writer
	maxDepth    int
	concurrency int
}

// StepOption configures the resolver steps.
type StepOption func(*stepConfig)

// WithStepLogger sets the logger used for per-URL diagnostics.
func WithStepLogger(logger *slog.Logger) StepOption {
	return func(c *stepConfig) {
		c.logger = logger
	}
}

// WithProgress writes "[*] ..." progress lines to w.
// Nil disables progress output.
func WithProgress(w io.Writer) StepOption {
	return func(c *stepConfig) {
		c.progress = w
	}
}

// WithMaxDepth sets how many @import levels are followed.
func WithMaxDepth(depth int) StepOption {
	return func(c *stepConfig) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithLevelConcurrency fetches up to n URLs of one recursion level at once.
// The default of 1 fetches sequentially.
func WithLevelConcurrency(n int) StepOption {
	return func(c *stepConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func newStepConfig(opts []StepOption) stepConfig {
	c := stepConfig{
		logger:      slog.Default(),
		maxDepth:    DefaultMaxDepth,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *stepConfig) progressf(format string, args ...any) {
	if c.progress == nil {
		return
	}
	fmt.Fprintf(c.progress, format, args...) //nolint:errcheck // progress output is best effort
}

// fetchAll fetches urls and returns bodies aligned with urls.
// Failed or empty fetches leave an empty string and are logged.
func (c *stepConfig) fetchAll(ctx context.Context, fetcher fetch.Fetcher, urls []string) []string {
	bodies := make([]string, len(urls))
	fetchOne := func(i int) {
		body, err := fetcher.Fetch(ctx, urls[i])
		if err != nil {
			c.logger.Debug("fetch failed, skipping", "url", urls[i], "error", err)
			return
		}
		bodies[i] = body
	}

	if c.concurrency <= 1 || len(urls) <= 1 {
		for i := range urls {
			if ctx.Err() != nil {
				break
			}
			fetchOne(i)
		}
		return bodies
	}

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i := range urls {
		g.Go(func() error {
			fetchOne(i)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return errors
	return bodies
}

// PageStep fetches the target page and decodes it once.
type PageStep struct {
	stepConfig
	fetcher fetch.Fetcher
}

// NewPageStep creates the page fetching step.
func NewPageStep(fetcher fetch.Fetcher, opts ...StepOption) *PageStep {
	return &PageStep{stepConfig: newStepConfig(opts), fetcher: fetcher}
}

// Name returns the step name.
func (s *PageStep) Name() string {
	return "page"
}

// Do fetches the page. Failure marks the scan UNKNOWN and stops the pipeline.
func (s *PageStep) Do(ctx context.Context, scan *model.Scan) error {
	s.progressf("[*] Fetching HTML from %s\n", scan.Target)

	if scan.Origin.IsZero() {
		scan.Verdict = model.VerdictUnknown
		scan.Note = unavailableNote
		return fmt.Errorf("%w: %w", ErrPageUnavailable, model.ErrInvalidOrigin)
	}

	body, err := s.fetcher.Fetch(ctx, scan.Target)
	if err == nil && body == "" {
		err = fetch.ErrEmptyBody
	}
	if err != nil {
		scan.Verdict = model.VerdictUnknown
		scan.Note = unavailableNote
		return fmt.Errorf("%w: %w", ErrPageUnavailable, err)
	}

	scan.PageText = decode.Decode(body)
	s.logger.Debug("page fetched", "url", scan.Target, "bytes", len(body))
	return nil
}

// seedKinds are the page references that seed the stylesheet queue, in
// queue order.
var seedKinds = []extract.Kind{
	extract.KindStylesheetLinks,
	extract.KindInlineImports,
	extract.KindStylesheetReferences,
}

// SeedStep fills the work queue from the decoded page and remembers the
// page's external scripts.
type SeedStep struct {
	stepConfig
}

// NewSeedStep creates the seeding step.
func NewSeedStep(opts ...StepOption) *SeedStep {
	return &SeedStep{stepConfig: newStepConfig(opts)}
}

// Name returns the step name.
func (s *SeedStep) Name() string {
	return "seed"
}

// Do seeds scan.Queue with stylesheet links, absolute inline imports and
// every stylesheet-host reference on the page.
func (s *SeedStep) Do(_ context.Context, scan *model.Scan) error {
	text := scan.PageText

	var raw []string
	for _, kind := range seedKinds {
		raw = append(raw, extract.Extract(text, kind)...)
	}

	scan.Queue = normalizeAll(raw, scan.Origin)
	scan.ScriptURLs = normalizeAll(extract.Extract(text, extract.KindScriptSources), scan.Origin)

	s.logger.Debug("seeded work queue",
		"target", scan.Target,
		"stylesheets", len(scan.Queue),
		"scripts", len(scan.ScriptURLs),
	)
	return nil
}

// StylesheetStep follows @import chains breadth first.
type StylesheetStep struct {
	stepConfig
	fetcher fetch.Fetcher
}

// NewStylesheetStep creates the recursive stylesheet step.
func NewStylesheetStep(fetcher fetch.Fetcher, opts ...StepOption) *StylesheetStep {
	return &StylesheetStep{stepConfig: newStepConfig(opts), fetcher: fetcher}
}

// Name returns the step name.
func (s *StylesheetStep) Name() string {
	return "stylesheets"
}

// Do processes one recursion level per iteration until the queue is empty
// or the depth bound is reached.
//
// Visited marking happens on the calling goroutine before any fetch of a
// level starts, so a URL is fetched at most once per run even when the
// level is fetched concurrently.
func (s *StylesheetStep) Do(ctx context.Context, scan *model.Scan) error {
	for depth := 1; depth <= s.maxDepth && len(scan.Queue) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		scan.Depth = depth
		s.progressf("[*] CSS recursion level %d, %d URL(s)\n", depth, len(scan.Queue))

		var batch []string
		for _, u := range scan.Queue {
			if scan.MarkVisited(urlnorm.Key(u)) {
				batch = append(batch, u)
			}
		}

		bodies := s.fetchAll(ctx, s.fetcher, batch)

		var next []string
		for i, u := range batch {
			if bodies[i] == "" {
				continue
			}
			css := decode.Decode(bodies[i])

			if extract.IsStylesheetHost(u) {
				scan.Stylesheets.Add(urlnorm.Key(u), u)
				scan.Digests[u] = model.Digest(css)
			}
			next = append(next, extract.CSSImports(css)...)
			recordFontFiles(scan, extract.FontFiles(css))
		}
		scan.Queue = normalizeAll(next, scan.Origin)
	}

	if len(scan.Queue) > 0 {
		s.logger.Debug("depth limit reached",
			"target", scan.Target,
			"max_depth", s.maxDepth,
			"dropped", len(scan.Queue),
		)
		scan.Queue = nil
	}
	return nil
}

// ScriptStep rescans the page together with its external scripts for
// references injected at runtime.
type ScriptStep struct {
	stepConfig
	fetcher fetch.Fetcher
}

// NewScriptStep creates the script rescan step.
func NewScriptStep(fetcher fetch.Fetcher, opts ...StepOption) *ScriptStep {
	return &ScriptStep{stepConfig: newStepConfig(opts), fetcher: fetcher}
}

// Name returns the step name.
func (s *ScriptStep) Name() string {
	return "scripts"
}

// Do fetches every script source, concatenates the decoded scripts with the
// page text and merges stylesheet-host and font-file references into the hits.
func (s *ScriptStep) Do(ctx context.Context, scan *model.Scan) error {
	s.progressf("[*] Scanning external JS for hidden references\n")

	var combined strings.Builder
	combined.WriteString(scan.PageText)
	for _, body := range s.fetchAll(ctx, s.fetcher, scan.ScriptURLs) {
		if body == "" {
			continue
		}
		combined.WriteString("\n")
		combined.WriteString(decode.Decode(body))
	}
	text := combined.String()

	for _, raw := range extract.StylesheetReferences(text) {
		if u, ok := urlnorm.Normalize(raw, scan.Origin); ok && extract.IsStylesheetHost(u) {
			scan.Stylesheets.Add(urlnorm.Key(u), u)
		}
	}
	recordFontFiles(scan, extract.FontFiles(text))
	return nil
}

// VerdictStep classifies the run.
type VerdictStep struct{}

// NewVerdictStep creates the verdict step.
func NewVerdictStep() *VerdictStep {
	return &VerdictStep{}
}

// Name returns the step name.
func (s *VerdictStep) Name() string {
	return "verdict"
}

// Do sets YES when any hit was recorded and NO otherwise.
func (s *VerdictStep) Do(_ context.Context, scan *model.Scan) error {
	if scan.Stylesheets.Len() > 0 || scan.FontFiles.Len() > 0 {
		scan.Verdict = model.VerdictYes
	} else {
		scan.Verdict = model.VerdictNo
	}
	return nil
}

// normalizeAll resolves raw URLs against origin and drops duplicates by
// visited-set key, keeping the first spelling seen.
func normalizeAll(raw []string, origin model.Origin) []string {
	seen := make(map[string]bool, len(raw))
	var out []string
	for _, r := range raw {
		u, ok := urlnorm.Normalize(r, origin)
		if !ok {
			continue
		}
		key := urlnorm.Key(u)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, u)
	}
	return out
}

func recordFontFiles(scan *model.Scan, raw []string) {
	for _, r := range raw {
		if u, ok := urlnorm.Normalize(r, scan.Origin); ok && extract.IsFontFile(u) {
			scan.FontFiles.Add(urlnorm.Key(u), u)
		}
	}
}
