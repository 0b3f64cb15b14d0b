package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/gfontscan/internal/fetch"
	"github.com/nao1215/gfontscan/internal/model"
)

// NewResolver builds the five-step resolution pipeline.
// Every step shares the same fetcher and step options.
func NewResolver(fetcher fetch.Fetcher, logger *slog.Logger, opts ...StepOption) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	stepOpts := append([]StepOption{WithStepLogger(logger)}, opts...)

	p := New(WithLogger(logger))
	p.AddSteps(
		NewPageStep(fetcher, stepOpts...),
		NewSeedStep(stepOpts...),
		NewStylesheetStep(fetcher, stepOpts...),
		NewScriptStep(fetcher, stepOpts...),
		NewVerdictStep(),
	)
	return p
}

// Resolve runs one resolution against target and returns its result.
// It never fails: fetch problems degrade to fewer hits or an UNKNOWN verdict.
func Resolve(ctx context.Context, fetcher fetch.Fetcher, target string, opts ...StepOption) *model.RunResult {
	cfg := newStepConfig(opts)
	scan := model.NewScan(target)
	_ = NewResolver(fetcher, cfg.logger, opts...).Execute(ctx, scan) //nolint:errcheck // outcome is recorded in scan
	return scan.Result()
}
