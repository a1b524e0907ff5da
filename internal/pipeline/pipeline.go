package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/storecrawl/internal/model"
)

// Step is one stage of the places lookup. Each step reads and updates the
// shared report.
type Step interface {
	// Do runs the step. A returned error ends the lookup; failures that
	// concern a single place are stored on that place instead.
	Do(ctx context.Context, report *model.PlacesReport) error

	// Name identifies the step in logs and in PerformedSteps.
	Name() string
}

// Pipeline runs steps one after another over a places report.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddSteps appends steps in execution order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, s := range p.steps {
		names = append(names, s.Name())
	}
	return names
}

// Execute runs the steps in order and stops at the first failing step.
// The failure is copied to report.Error and report.ErrorMessage.
// Cancellation between steps marks the report as TimedOut. FinishedAt is
// always set.
func (p *Pipeline) Execute(ctx context.Context, report *model.PlacesReport) error {
	defer func() { report.FinishedAt = time.Now() }()

	for _, s := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("places lookup cancelled", "before", s.Name(), "reason", err)
			report.TimedOut = true
			return err
		}

		p.logger.Info("running step", "step", s.Name(), "places", len(report.Places))
		err := s.Do(ctx, report)
		report.PerformedSteps = append(report.PerformedSteps, s.Name())
		if err != nil {
			p.logger.Error("step failed", "step", s.Name(), "query", report.Query, "error", err)
			report.Error = err
			report.ErrorMessage = err.Error()
			report.TimedOut = ctx.Err() != nil
			return err
		}
		p.logger.Debug("step done", "step", s.Name(), "places", len(report.Places))
	}
	return nil
}
