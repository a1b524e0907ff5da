package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/storecrawl/internal/model"
)

// FileName is the name of the history database file inside its directory.
const FileName = "storecrawl.db"

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// RunDB stores the history of crawl and places runs in SQLite.
// Only finished results are kept; a crawl's frontier and visited set
// live in memory and never reach the database.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, err)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // already returning the WAL error
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // already returning the schema error
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- One row per crawl or places run
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		input TEXT NOT NULL,
		output TEXT,
		row_count INTEGER NOT NULL DEFAULT 0,
		special_column TEXT,
		note TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Crawled pages, position keeps the store and BFS order
	CREATE TABLE IF NOT EXISTS crawl_rows (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		store_name TEXT NOT NULL,
		store_url TEXT NOT NULL,
		page_url TEXT NOT NULL,
		title TEXT,
		special_links TEXT,
		PRIMARY KEY (run_id, position)
	);

	-- Places in output order
	CREATE TABLE IF NOT EXISTS place_rows (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		place_id TEXT NOT NULL,
		name TEXT,
		lat REAL,
		lng REAL,
		rating REAL,
		website_state INTEGER NOT NULL,
		website TEXT,
		reviews_state INTEGER NOT NULL,
		reviews INTEGER,
		address_state INTEGER NOT NULL,
		address TEXT,
		distance_km REAL,
		PRIMARY KEY (run_id, position)
	);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is the stored summary of a run.
type Run struct {
	ID         string
	Kind       model.RunKind
	StartedAt  time.Time
	FinishedAt time.Time
	Input      string
	Output     string
	Rows       int

	// SpecialColumn is the special links header of a crawl run.
	SpecialColumn string

	// Note records a cancellation or pipeline error.
	Note string
}

// SaveCrawlRun stores a crawl run together with its rows.
func (rdb *RunDB) SaveCrawlRun(ctx context.Context, run *model.CrawlRun) error {
	note := ""
	if run.Cancelled {
		note = "cancelled"
	}

	return rdb.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertRun(ctx, tx, Run{
			ID:            run.ID,
			Kind:          model.RunKindCrawl,
			StartedAt:     run.StartedAt,
			FinishedAt:    run.FinishedAt,
			Input:         run.Input,
			Output:        run.Output,
			Rows:          len(run.Rows),
			SpecialColumn: run.SpecialColumn,
			Note:          note,
		}); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO crawl_rows (run_id, position, store_name, store_url, page_url, title, special_links)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare crawl row insert: %w", err)
		}
		defer stmt.Close()

		for i, row := range run.Rows {
			if _, err := stmt.ExecContext(ctx, run.ID, i,
				row.StoreName, row.StoreURL, row.PageURL, row.Title, row.SpecialLinks,
			); err != nil {
				return fmt.Errorf("failed to insert crawl row %d: %w", i, err)
			}
		}
		return nil
	})
}

// SavePlacesRun stores a places report together with its places.
func (rdb *RunDB) SavePlacesRun(ctx context.Context, r *model.PlacesReport) error {
	note := r.ErrorMessage
	if r.TimedOut && note == "" {
		note = "cancelled"
	}

	return rdb.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertRun(ctx, tx, Run{
			ID:         r.ID,
			Kind:       model.RunKindPlaces,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
			Input:      r.Query,
			Output:     r.Output,
			Rows:       len(r.Places),
			Note:       note,
		}); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO place_rows (run_id, position, place_id, name, lat, lng, rating,
			website_state, website, reviews_state, reviews, address_state, address, distance_km)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare place row insert: %w", err)
		}
		defer stmt.Close()

		for i, p := range r.Places {
			if _, err := stmt.ExecContext(ctx, r.ID, i,
				p.PlaceID, p.Name, p.Location.Lat, p.Location.Lng, p.Rating,
				int(p.Website.State), p.Website.Value,
				int(p.Reviews.State), p.Reviews.Value,
				int(p.Address.State), p.Address.Value,
				p.DistanceKm,
			); err != nil {
				return fmt.Errorf("failed to insert place row %d: %w", i, err)
			}
		}
		return nil
	})
}

// withTx runs fn in a transaction and commits it when fn succeeds.
func (rdb *RunDB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback() //nolint:errcheck // fn's error is more useful than the rollback's
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertRun inserts the summary row of a run.
func insertRun(ctx context.Context, tx *sql.Tx, run Run) error {
	var finished any
	if !run.FinishedAt.IsZero() {
		finished = formatTimestamp(run.FinishedAt)
	}

	_, err := tx.ExecContext(ctx, `
	INSERT INTO runs (id, kind, started_at, finished_at, input, output, row_count, special_column, note)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		string(run.Kind),
		formatTimestamp(run.StartedAt),
		finished,
		run.Input,
		run.Output,
		run.Rows,
		run.SpecialColumn,
		run.Note,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// runColumns is the column list scanned by scanRun.
const runColumns = `id, kind, started_at, finished_at, input, output, row_count, special_column, note`

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads one runs row.
func scanRun(s rowScanner) (Run, error) {
	var (
		run      Run
		kind     string
		started  string
		finished sql.NullString
		output   sql.NullString
		special  sql.NullString
		note     sql.NullString
	)
	if err := s.Scan(&run.ID, &kind, &started, &finished, &run.Input, &output, &run.Rows, &special, &note); err != nil {
		return Run{}, err
	}

	run.Kind = model.RunKind(kind)
	run.StartedAt = parseTimestamp(started)
	if finished.Valid {
		run.FinishedAt = parseTimestamp(finished.String)
	}
	run.Output = output.String
	run.SpecialColumn = special.String
	run.Note = note.String
	return run, nil
}

// ListRuns returns all stored runs, newest first.
func (rdb *RunDB) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := rdb.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetRun returns the run with the given ID, or ErrRunNotFound.
func (rdb *RunDB) GetRun(ctx context.Context, id string) (*Run, error) {
	row := rdb.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// GetCrawlRows returns the crawled pages of a run in their original order.
func (rdb *RunDB) GetCrawlRows(ctx context.Context, runID string) ([]model.CrawlRow, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT store_name, store_url, page_url, title, special_links
	FROM crawl_rows
	WHERE run_id = ?
	ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query crawl rows: %w", err)
	}
	defer rows.Close()

	result := make([]model.CrawlRow, 0)
	for rows.Next() {
		var (
			row     model.CrawlRow
			title   sql.NullString
			special sql.NullString
		)
		if err := rows.Scan(&row.StoreName, &row.StoreURL, &row.PageURL, &title, &special); err != nil {
			return nil, fmt.Errorf("failed to scan crawl row: %w", err)
		}
		row.Title = title.String
		row.SpecialLinks = special.String
		result = append(result, row)
	}

	return result, rows.Err()
}

// GetPlaceRows returns the places of a run in their output order.
// Failure messages of lookups are not stored, only their state.
func (rdb *RunDB) GetPlaceRows(ctx context.Context, runID string) ([]model.Place, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT place_id, name, lat, lng, rating,
		website_state, website, reviews_state, reviews, address_state, address, distance_km
	FROM place_rows
	WHERE run_id = ?
	ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query place rows: %w", err)
	}
	defer rows.Close()

	result := make([]model.Place, 0)
	for rows.Next() {
		var (
			p                                     model.Place
			name, website, address                sql.NullString
			websiteState, reviewsState, addrState int
			reviews                               sql.NullInt64
		)
		if err := rows.Scan(
			&p.PlaceID, &name, &p.Location.Lat, &p.Location.Lng, &p.Rating,
			&websiteState, &website, &reviewsState, &reviews, &addrState, &address,
			&p.DistanceKm,
		); err != nil {
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}

		p.Name = name.String
		p.Website = model.Lookup[string]{State: model.LookupState(websiteState), Value: website.String}
		p.Reviews = model.Lookup[int]{State: model.LookupState(reviewsState), Value: int(reviews.Int64)}
		p.Address = model.Lookup[string]{State: model.LookupState(addrState), Value: address.String}
		result = append(result, p)
	}

	return result, rows.Err()
}

// timestampLayout is fixed width so that text ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTimestamp formats t in UTC with timestampLayout.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
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
