package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/gfontscan/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each one reading and extending the
// scan state left by the previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state (fetcher, depth, logger)
// 2. It provides a Name() method for logging and debugging
// 3. Tests can replace single steps with fakes
type Step interface {
	// Do executes the pipeline step.
	// A returned error stops the pipeline.
	// Failures that only lose a single URL are logged and return nil.
	Do(ctx context.Context, scan *model.Scan) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddSteps after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddSteps appends steps to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
//
// Design decision: We check context.Done() before each step rather than
// during, because steps handle their own cancellation while fetching.
// A cancelled scan keeps whatever it collected and records a note; its
// verdict stays UNKNOWN because the verdict step never ran.
func (p *Pipeline) Execute(ctx context.Context, scan *model.Scan) error {
	p.logger.Debug("starting pipeline",
		"target", scan.Target,
		"steps", p.StepNames(),
	)

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"target", scan.Target,
				"reason", ctx.Err(),
			)
			if scan.Note == "" {
				scan.Note = fmt.Sprintf("scan cancelled before %s: %v", step.Name(), ctx.Err())
			}
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"target", scan.Target,
		)

		if err := step.Do(ctx, scan); err != nil {
			// An unavailable page is reported through the verdict.
			p.logger.Info("step failed",
				"step", step.Name(),
				"target", scan.Target,
				"error", err,
			)
			if ctx.Err() != nil && scan.Note == "" {
				scan.Note = fmt.Sprintf("scan cancelled during %s: %v", step.Name(), ctx.Err())
			}
			return err
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"target", scan.Target,
		)
	}

	return nil
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
