package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nao1215/gfontscan/internal/model"
)

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("uses defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(string) *Pipeline { return New() })
		if bp.concurrency != DefaultBatchConcurrency {
			t.Errorf("concurrency = %d, expected %d", bp.concurrency, DefaultBatchConcurrency)
		}
		if bp.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(string) *Pipeline { return New() }, WithConcurrency(0))
		if bp.concurrency != DefaultBatchConcurrency {
			t.Errorf("concurrency = %d, expected %d", bp.concurrency, DefaultBatchConcurrency)
		}
	})

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(string) *Pipeline { return New() },
			WithConcurrency(2),
			WithBatchLogger(discardLogger()),
		)
		if bp.concurrency != 2 {
			t.Errorf("concurrency = %d, expected 2", bp.concurrency)
		}
	})
}

// TestBatchProcessorProcessBatch tests concurrent resolution of several targets.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("returns results in input order", func(t *testing.T) {
		t.Parallel()

		f := newFakeFetcher(map[string]string{
			"https://a.example/":                        `<link rel="stylesheet" href="https://fonts.googleapis.com/css?family=A">`,
			"https://b.example/":                        `<p>plain</p>`,
			"https://fonts.googleapis.com/css?family=A": `src: url(https://fonts.gstatic.com/s/a.woff2);`,
		})
		targets := []string{"https://a.example/", "https://b.example/", "https://c.example/"}

		bp := NewBatchProcessor(func(string) *Pipeline {
			return NewResolver(f, discardLogger())
		}, WithConcurrency(3), WithBatchLogger(discardLogger()))

		results, err := bp.ProcessBatch(context.Background(), targets)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != len(targets) {
			t.Fatalf("got %d results, expected %d", len(results), len(targets))
		}

		want := []model.Verdict{model.VerdictYes, model.VerdictNo, model.VerdictUnknown}
		for i, r := range results {
			if r == nil {
				t.Fatalf("result %d is nil", i)
			}
			if r.Destination != targets[i] {
				t.Errorf("result %d destination = %q, expected %q", i, r.Destination, targets[i])
			}
			if r.Verdict != want[i] {
				t.Errorf("result %d verdict = %v, expected %v", i, r.Verdict, want[i])
			}
		}
	})

	t.Run("each target gets a fresh scan", func(t *testing.T) {
		t.Parallel()

		const shared = "https://fonts.googleapis.com/css?family=Shared"
		f := newFakeFetcher(map[string]string{
			"https://a.example/": `<link rel="stylesheet" href="` + shared + `">`,
			"https://b.example/": `<link rel="stylesheet" href="` + shared + `">`,
			shared:               `body {}`,
		})

		bp := NewBatchProcessor(func(string) *Pipeline {
			return NewResolver(f, discardLogger())
		}, WithBatchLogger(discardLogger()))

		if _, err := bp.ProcessBatch(context.Background(), []string{"https://a.example/", "https://b.example/"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := f.callCount(shared); n != 2 {
			t.Errorf("shared stylesheet fetched %d times, expected once per target", n)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bp := NewBatchProcessor(func(string) *Pipeline {
			return NewResolver(newFakeFetcher(nil), discardLogger())
		}, WithBatchLogger(discardLogger()))

		_, err := bp.ProcessBatch(ctx, []string{"https://a.example/"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// TestBatchProcessorProcessBatchWithCallback tests streaming results.
func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher(map[string]string{
		"https://a.example/": `<p>a</p>`,
		"https://b.example/": `<p>b</p>`,
	})
	bp := NewBatchProcessor(func(string) *Pipeline {
		return NewResolver(f, discardLogger())
	}, WithConcurrency(2), WithBatchLogger(discardLogger()))

	var mu sync.Mutex
	seen := make(map[int]string)
	err := bp.ProcessBatchWithCallback(context.Background(), []string{"https://a.example/", "https://b.example/"},
		func(result *model.RunResult, index int) {
			mu.Lock()
			defer mu.Unlock()
			seen[index] = result.Destination
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen[0] != "https://a.example/" || seen[1] != "https://b.example/" {
		t.Errorf("unexpected callbacks: %v", seen)
	}
}
