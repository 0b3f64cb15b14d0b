package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/gfontscan/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency is the number of targets resolved at once.
const DefaultBatchConcurrency = 4

// BatchProcessor resolves several targets concurrently.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-target execution
// 2. Each target gets a fresh pipeline and Scan, so no state is shared
// 3. The concurrency limit is independent of per-level fetch concurrency
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each target, so per-site
	// settings can differ between targets of one batch.
	pipelineFactory func(target string) *Pipeline

	// concurrency is the maximum number of concurrent resolutions.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent resolutions.
// Default is DefaultBatchConcurrency.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
// pipelineFactory is called once per target with that target.
func NewBatchProcessor(pipelineFactory func(target string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultBatchConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch resolves all targets and returns results in input order.
//
// A failed target never cancels the others: its result carries an UNKNOWN
// verdict. The returned error is non-nil only when ctx was cancelled, in
// which case targets that never started have a nil result.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.RunResult, error) {
	results := make([]*model.RunResult, len(targets))
	err := bp.ProcessBatchWithCallback(ctx, targets, func(result *model.RunResult, index int) {
		results[index] = result
	})
	return results, err
}

// ProcessBatchWithCallback resolves targets and calls callback as each one
// completes. The callback runs on the worker goroutine and must be safe
// for concurrent use if it touches shared state; writing to a distinct
// slice index per call is safe.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []string,
	callback func(result *model.RunResult, index int),
) error {
	bp.logger.Debug("starting batch processing",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			scan := model.NewScan(target)
			if err := bp.pipelineFactory(target).Execute(ctx, scan); err != nil {
				bp.logger.Debug("resolution stopped early",
					"target", target,
					"error", err,
				)
			}

			callback(scan.Result(), i)
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Debug("batch processing complete",
		"total_targets", len(targets),
		"elapsed", time.Since(startTime),
	)
	return err
}
