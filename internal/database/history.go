package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/gfontscan/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "history.db"

// timestampLayout is fixed-width so that text ordering is time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// HistoryDB stores resolution results for later comparison.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// ErrNotFound is returned when the database file does not exist and
// CreateIfNotExists is false.
var ErrNotFound = errors.New("database not found")

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, ErrNotFound is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (h *HistoryDB) createTables() error {
	schema := `
	-- One row per resolution run
	CREATE TABLE IF NOT EXISTS scan_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		destination TEXT NOT NULL,
		scanned_at TEXT NOT NULL,
		verdict TEXT NOT NULL,
		stylesheet_hits INTEGER NOT NULL DEFAULT 0,
		font_file_hits INTEGER NOT NULL DEFAULT 0,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_destination ON scan_results(destination, scanned_at);

	-- Digest of every Google Fonts stylesheet body fetched by a run
	CREATE TABLE IF NOT EXISTS stylesheet_digests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		result_id INTEGER NOT NULL REFERENCES scan_results(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		digest TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_digests_url ON stylesheet_digests(url);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveResult stores a result and its stylesheet digests in one transaction.
// On success result.ID is set to the new row ID, which is also returned.
func (h *HistoryDB) SaveResult(ctx context.Context, result *model.RunResult) (int64, error) {
	scannedAt := result.ScannedAt
	if scannedAt.IsZero() {
		scannedAt = time.Now()
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize result: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after Commit

	res, err := tx.ExecContext(ctx, `
	INSERT INTO scan_results (destination, scanned_at, verdict, stylesheet_hits, font_file_hits, result_json)
	VALUES (?, ?, ?, ?, ?, ?)
	`,
		result.Destination,
		formatTimestamp(scannedAt),
		result.Verdict.String(),
		len(result.StylesheetHits),
		len(result.FontFileHits),
		string(resultJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save result: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get result id: %w", err)
	}

	for url, digest := range result.StylesheetDigests {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stylesheet_digests (result_id, url, digest) VALUES (?, ?, ?)`,
			id, url, digest,
		); err != nil {
			return 0, fmt.Errorf("failed to save stylesheet digest: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit result: %w", err)
	}

	result.ID = id
	return id, nil
}

// GetLatestResult retrieves the most recent result for a destination.
// Returns nil without error when the destination was never scanned.
func (h *HistoryDB) GetLatestResult(ctx context.Context, destination string) (*model.RunResult, error) {
	results, err := h.GetRecentResults(ctx, destination, 1)
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return results[0], nil
}

// GetRecentResults retrieves up to limit results for a destination, newest first.
func (h *HistoryDB) GetRecentResults(ctx context.Context, destination string, limit int) ([]*model.RunResult, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT id, result_json FROM scan_results
	WHERE destination = ?
	ORDER BY scanned_at DESC, id DESC
	LIMIT ?
	`, destination, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}
	defer rows.Close()

	var results []*model.RunResult
	for rows.Next() {
		var id int64
		var resultJSON string
		if err := rows.Scan(&id, &resultJSON); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		result, err := decodeResult(id, resultJSON)
		if err != nil {
			continue // Skip malformed rows
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

// GetResultByID retrieves a result by its database ID.
// Returns nil without error when no such row exists.
func (h *HistoryDB) GetResultByID(ctx context.Context, id int64) (*model.RunResult, error) {
	var resultJSON string
	err := h.db.QueryRowContext(ctx, `SELECT result_json FROM scan_results WHERE id = ?`, id).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return decodeResult(id, resultJSON)
}

// ListDestinations returns every destination with at least one stored result.
func (h *HistoryDB) ListDestinations(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT DISTINCT destination FROM scan_results
	ORDER BY destination
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list destinations: %w", err)
	}
	defer rows.Close()

	var destinations []string
	for rows.Next() {
		var destination string
		if err := rows.Scan(&destination); err != nil {
			return nil, fmt.Errorf("failed to scan destination: %w", err)
		}
		destinations = append(destinations, destination)
	}

	return destinations, rows.Err()
}

// ResultMetadata contains summary information about a stored result.
// This is used for displaying history without loading the full result.
type ResultMetadata struct {
	ID             int64         `json:"id"`
	Destination    string        `json:"destination"`
	ScannedAt      time.Time     `json:"scanned_at"`
	Verdict        model.Verdict `json:"verdict"`
	StylesheetHits int           `json:"stylesheet_hits"`
	FontFileHits   int           `json:"font_file_hits"`
}

// GetHistory retrieves result metadata for a destination, newest first.
func (h *HistoryDB) GetHistory(ctx context.Context, destination string) ([]ResultMetadata, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT id, destination, scanned_at, verdict, stylesheet_hits, font_file_hits
	FROM scan_results
	WHERE destination = ?
	ORDER BY scanned_at DESC, id DESC
	`, destination)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var history []ResultMetadata
	for rows.Next() {
		var meta ResultMetadata
		var scannedAt, verdict string

		if err := rows.Scan(&meta.ID, &meta.Destination, &scannedAt, &verdict,
			&meta.StylesheetHits, &meta.FontFileHits); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.ScannedAt = parseTimestamp(scannedAt)
		if v, err := model.ParseVerdict(verdict); err == nil {
			meta.Verdict = v
		}
		history = append(history, meta)
	}

	return history, rows.Err()
}

// StylesheetRecord is one observed digest of a Google Fonts stylesheet.
type StylesheetRecord struct {
	ResultID    int64     `json:"result_id"`
	Destination string    `json:"destination"`
	ScannedAt   time.Time `json:"scanned_at"`
	Digest      string    `json:"digest"`
}

// GetStylesheetHistory returns every recorded digest of one stylesheet URL,
// newest first. A digest change means Google served a different font set.
func (h *HistoryDB) GetStylesheetHistory(ctx context.Context, url string) ([]StylesheetRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT r.id, r.destination, r.scanned_at, d.digest
	FROM stylesheet_digests d
	JOIN scan_results r ON r.id = d.result_id
	WHERE d.url = ?
	ORDER BY r.scanned_at DESC, r.id DESC
	`, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get stylesheet history: %w", err)
	}
	defer rows.Close()

	var records []StylesheetRecord
	for rows.Next() {
		var rec StylesheetRecord
		var scannedAt string
		if err := rows.Scan(&rec.ResultID, &rec.Destination, &scannedAt, &rec.Digest); err != nil {
			return nil, fmt.Errorf("failed to scan stylesheet record: %w", err)
		}
		rec.ScannedAt = parseTimestamp(scannedAt)
		records = append(records, rec)
	}

	return records, rows.Err()
}

func decodeResult(id int64, resultJSON string) (*model.RunResult, error) {
	var result model.RunResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}
	result.ID = id
	return &result, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats accepted when reading.
// Rows written by SaveResult always use timestampLayout.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite default datetime format
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
