package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/gfontscan/internal/model"
)

const barlowCSS = "https://fonts.googleapis.com/css2?family=Barlow"

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func newResult(dest string, verdict model.Verdict, at time.Time, digest string) *model.RunResult {
	r := &model.RunResult{
		Destination: dest,
		Verdict:     verdict,
		ScannedAt:   at,
	}
	if verdict == model.VerdictYes {
		r.StylesheetHits = []string{barlowCSS}
		r.FontFileHits = []string{"https://fonts.gstatic.com/s/barlow/v13/x.ttf"}
		r.StylesheetDigests = map[string]string{barlowCSS: digest}
	}
	return r
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns ErrNotFound", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "missing")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, statErr := os.Stat(dbDir); !errors.Is(statErr, os.ErrNotExist) {
			t.Error("database directory should not have been created")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		if _, err := db1.SaveResult(context.Background(), newResult("https://example.com/", model.VerdictNo, time.Now(), "")); err != nil {
			t.Fatalf("failed to save result: %v", err)
		}
		db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false})
		if err != nil {
			t.Fatalf("failed to open existing database: %v", err)
		}
		defer db2.Close()

		latest, err := db2.GetLatestResult(context.Background(), "https://example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if latest == nil || latest.Verdict != model.VerdictNo {
			t.Errorf("expected persisted NO result, got %+v", latest)
		}
	})
}

// TestDefaultOptions tests the default database options.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists || !opts.EnableWAL {
		t.Errorf("unexpected defaults: %+v", opts)
	}
}

// TestSaveAndGetResult tests the round trip of a stored result.
func TestSaveAndGetResult(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	result := newResult("https://example.com/", model.VerdictYes, at, "d1")
	result.Duration = 1500 * time.Millisecond

	id, err := db.SaveResult(ctx, result)
	if err != nil {
		t.Fatalf("failed to save result: %v", err)
	}
	if id == 0 || result.ID != id {
		t.Errorf("expected result.ID to be set, got id=%d result.ID=%d", id, result.ID)
	}

	got, err := db.GetResultByID(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected result")
	}
	if got.ID != id || got.Destination != result.Destination || got.Verdict != model.VerdictYes {
		t.Errorf("unexpected result %+v", got)
	}
	if !got.ScannedAt.Equal(at) {
		t.Errorf("ScannedAt = %v, expected %v", got.ScannedAt, at)
	}
	if got.Duration != result.Duration {
		t.Errorf("Duration = %v, expected %v", got.Duration, result.Duration)
	}
	if len(got.StylesheetHits) != 1 || got.StylesheetDigests[barlowCSS] != "d1" {
		t.Errorf("hits or digests lost: %+v", got)
	}

	missing, err := db.GetResultByID(ctx, id+100)
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing id, got %v, %v", missing, err)
	}
}

// TestGetLatestResult tests ordering by scan time.
func TestGetLatestResult(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	dest := "https://example.com/"
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	// Saved out of order on purpose.
	for _, r := range []*model.RunResult{
		newResult(dest, model.VerdictYes, base.Add(2*time.Hour), "d2"),
		newResult(dest, model.VerdictNo, base, ""),
		newResult(dest, model.VerdictUnknown, base.Add(time.Hour), ""),
	} {
		if _, err := db.SaveResult(ctx, r); err != nil {
			t.Fatalf("failed to save result: %v", err)
		}
	}

	latest, err := db.GetLatestResult(ctx, dest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Verdict != model.VerdictYes {
		t.Errorf("latest verdict = %v, expected YES", latest.Verdict)
	}

	recent, err := db.GetRecentResults(ctx, dest, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recent) != 2 || recent[1].Verdict != model.VerdictUnknown {
		t.Errorf("unexpected recent results: %+v", recent)
	}

	none, err := db.GetLatestResult(ctx, "https://never.example/")
	if err != nil || none != nil {
		t.Errorf("expected nil, nil for unknown destination, got %v, %v", none, err)
	}
}

// TestGetHistory tests the metadata listing.
func TestGetHistory(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	dest := "https://example.com/"
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	if _, err := db.SaveResult(ctx, newResult(dest, model.VerdictNo, base, "")); err != nil {
		t.Fatalf("failed to save result: %v", err)
	}
	if _, err := db.SaveResult(ctx, newResult(dest, model.VerdictYes, base.Add(time.Minute), "d1")); err != nil {
		t.Fatalf("failed to save result: %v", err)
	}
	if _, err := db.SaveResult(ctx, newResult("https://other.example/", model.VerdictNo, base, "")); err != nil {
		t.Fatalf("failed to save result: %v", err)
	}

	history, err := db.GetHistory(ctx, dest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d entries, expected 2", len(history))
	}

	newest := history[0]
	if newest.Verdict != model.VerdictYes || newest.StylesheetHits != 1 || newest.FontFileHits != 1 {
		t.Errorf("unexpected newest entry %+v", newest)
	}
	if !newest.ScannedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("ScannedAt = %v", newest.ScannedAt)
	}
	if history[1].Verdict != model.VerdictNo {
		t.Errorf("unexpected oldest entry %+v", history[1])
	}
}

// TestListDestinations tests listing of scanned destinations.
func TestListDestinations(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	for _, dest := range []string{"https://b.example/", "https://a.example/", "https://b.example/"} {
		if _, err := db.SaveResult(ctx, newResult(dest, model.VerdictNo, time.Now(), "")); err != nil {
			t.Fatalf("failed to save result: %v", err)
		}
	}

	destinations, err := db.ListDestinations(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(destinations) != 2 || destinations[0] != "https://a.example/" || destinations[1] != "https://b.example/" {
		t.Errorf("unexpected destinations %v", destinations)
	}
}

// TestGetStylesheetHistory tests digest tracking across runs.
func TestGetStylesheetHistory(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	if _, err := db.SaveResult(ctx, newResult("https://a.example/", model.VerdictYes, base, "old")); err != nil {
		t.Fatalf("failed to save result: %v", err)
	}
	if _, err := db.SaveResult(ctx, newResult("https://b.example/", model.VerdictYes, base.Add(time.Hour), "new")); err != nil {
		t.Fatalf("failed to save result: %v", err)
	}

	records, err := db.GetStylesheetHistory(ctx, barlowCSS)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, expected 2", len(records))
	}
	if records[0].Digest != "new" || records[0].Destination != "https://b.example/" {
		t.Errorf("unexpected newest record %+v", records[0])
	}
	if records[1].Digest != "old" {
		t.Errorf("unexpected oldest record %+v", records[1])
	}
}

// TestParseTimestamp tests the accepted timestamp formats.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []string{
		formatTimestamp(want),
		"2025-03-01T10:00:00Z",
		"2025-03-01 10:00:00",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			t.Parallel()

			if got := parseTimestamp(s); !got.Equal(want) {
				t.Errorf("parseTimestamp(%q) = %v, expected %v", s, got, want)
			}
		})
	}

	if got := parseTimestamp("garbage"); !got.IsZero() {
		t.Errorf("expected zero time, got %v", got)
	}
}
