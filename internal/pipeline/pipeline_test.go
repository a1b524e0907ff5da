package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/nao1215/storecrawl/internal/geo"
	"github.com/nao1215/storecrawl/internal/model"
)

// discardLogger returns a logger that drops every record.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestReport creates a report centered on the default location.
func newTestReport() *model.PlacesReport {
	return model.NewPlacesReport("インドアゴルフ", geo.Coordinate{Lat: 34.7344, Lng: 134.8652}, 50000, "ja")
}

// mockStep is a Step that records its calls.
type mockStep struct {
	name   string
	doFunc func(ctx context.Context, report *model.PlacesReport) error
	calls  int
}

func (m *mockStep) Do(ctx context.Context, report *model.PlacesReport) error {
	m.calls++
	if m.doFunc != nil {
		return m.doFunc(ctx, report)
	}
	return nil
}

func (m *mockStep) Name() string {
	return m.name
}

// TestNew tests the Pipeline constructor.
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("empty pipeline with default logger", func(t *testing.T) {
		t.Parallel()

		p := New()
		if len(p.StepNames()) != 0 {
			t.Errorf("expected no steps, got %v", p.StepNames())
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("steps keep their order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(&mockStep{name: "first"}, &mockStep{name: "second"})
		p.AddSteps(&mockStep{name: "third"})

		want := []string{"first", "second", "third"}
		if got := p.StepNames(); !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})
}

// TestPipeline_Execute tests pipeline execution.
func TestPipeline_Execute(t *testing.T) {
	t.Parallel()

	t.Run("runs all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		record := func(name string) func(context.Context, *model.PlacesReport) error {
			return func(context.Context, *model.PlacesReport) error {
				order = append(order, name)
				return nil
			}
		}

		p := New(WithLogger(discardLogger()))
		p.AddSteps(
			&mockStep{name: "search", doFunc: record("search")},
			&mockStep{name: "sort", doFunc: record("sort")},
		)

		report := newTestReport()
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !slices.Equal(order, []string{"search", "sort"}) {
			t.Errorf("unexpected order %v", order)
		}
		if !slices.Equal(report.PerformedSteps, order) {
			t.Errorf("expected performed steps %v, got %v", order, report.PerformedSteps)
		}
		if report.FinishedAt.IsZero() {
			t.Error("expected FinishedAt to be set")
		}
	})

	t.Run("stops at the first failing step", func(t *testing.T) {
		t.Parallel()

		stepErr := errors.New("step failed")
		next := &mockStep{name: "details"}

		p := New(WithLogger(discardLogger()))
		p.AddSteps(
			&mockStep{
				name:   "search",
				doFunc: func(context.Context, *model.PlacesReport) error { return stepErr },
			},
			next,
		)

		report := newTestReport()
		if err := p.Execute(context.Background(), report); !errors.Is(err, stepErr) {
			t.Fatalf("expected step error, got %v", err)
		}
		if next.calls != 0 {
			t.Error("expected the next step not to run")
		}
		if report.ErrorMessage != "step failed" || !errors.Is(report.Error, stepErr) {
			t.Errorf("expected error in report, got %q", report.ErrorMessage)
		}
		if report.TimedOut {
			t.Error("expected TimedOut to stay false")
		}
		if report.FinishedAt.IsZero() {
			t.Error("expected FinishedAt to be set")
		}
	})

	t.Run("cancellation between steps", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		next := &mockStep{name: "details"}

		p := New(WithLogger(discardLogger()))
		p.AddSteps(
			&mockStep{
				name: "search",
				doFunc: func(context.Context, *model.PlacesReport) error {
					cancel()
					return nil
				},
			},
			next,
		)

		report := newTestReport()
		if err := p.Execute(ctx, report); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if next.calls != 0 {
			t.Error("expected the next step not to run")
		}
		if !report.TimedOut {
			t.Error("expected report to be marked as timed out")
		}
		if !slices.Equal(report.PerformedSteps, []string{"search"}) {
			t.Errorf("unexpected performed steps %v", report.PerformedSteps)
		}
	})

	t.Run("step cancelled while running", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		p := New(WithLogger(discardLogger()))
		p.AddSteps(&mockStep{
			name: "details",
			doFunc: func(ctx context.Context, _ *model.PlacesReport) error {
				cancel()
				return ctx.Err()
			},
		})

		report := newTestReport()
		if err := p.Execute(ctx, report); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if !report.TimedOut {
			t.Error("expected report to be marked as timed out")
		}
	})
}
