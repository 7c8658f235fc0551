package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"job-digest/internal/models"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS hot_jobs_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_updated TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS hot_jobs (
		category TEXT NOT NULL,
		position INTEGER NOT NULL,
		company TEXT NOT NULL,
		title TEXT NOT NULL,
		location TEXT NOT NULL,
		url TEXT NOT NULL,
		source TEXT NOT NULL,
		first_seen_at TEXT NOT NULL,
		PRIMARY KEY (category, position)
	)`,
	`CREATE TABLE IF NOT EXISTS hot_jobs_blocklist (
		position INTEGER PRIMARY KEY,
		company TEXT NOT NULL,
		title TEXT NOT NULL
	)`,
}

// SQLiteStore keeps shortlists and blocklist in tables that are rewritten
// inside one transaction per save.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*models.State, error) {
	st := models.NewState()

	row := s.db.QueryRowContext(ctx, `SELECT last_updated FROM hot_jobs_meta WHERE id = 1`)
	if err := row.Scan(&st.LastUpdated); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reading meta: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, company, title, location, url, source, first_seen_at
		FROM hot_jobs
		ORDER BY category, position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying hot_jobs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l models.Listing
		var seen string
		if err := rows.Scan(&l.Category, &l.Company, &l.Title, &l.Location, &l.URL, &l.Source, &seen); err != nil {
			return nil, fmt.Errorf("scanning hot_jobs: %w", err)
		}
		if l.FirstSeenAt, err = time.Parse(time.RFC3339Nano, seen); err != nil {
			return nil, fmt.Errorf("parsing first_seen_at %q: %w", seen, err)
		}
		st.Shortlists[l.Category] = append(st.Shortlists[l.Category], l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	brows, err := s.db.QueryContext(ctx, `SELECT company, title FROM hot_jobs_blocklist ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying blocklist: %w", err)
	}
	defer brows.Close()
	for brows.Next() {
		var b models.BlockEntry
		if err := brows.Scan(&b.Company, &b.Title); err != nil {
			return nil, fmt.Errorf("scanning blocklist: %w", err)
		}
		st.Blocklist = append(st.Blocklist, b)
	}
	return st, brows.Err()
}

func (s *SQLiteStore) Save(ctx context.Context, st *models.State) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, stmt := range []string{`DELETE FROM hot_jobs`, `DELETE FROM hot_jobs_blocklist`} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clearing tables: %w", err)
		}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO hot_jobs_meta (id, last_updated) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET last_updated = excluded.last_updated`,
		st.LastUpdated,
	); err != nil {
		return fmt.Errorf("writing meta: %w", err)
	}

	for category, listings := range st.Shortlists {
		for i, l := range listings {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO hot_jobs (category, position, company, title, location, url, source, first_seen_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				category, i, l.Company, l.Title, l.Location, l.URL, l.Source, l.FirstSeenAt.Format(time.RFC3339Nano),
			); err != nil {
				return fmt.Errorf("inserting listing: %w", err)
			}
		}
	}
	for i, b := range st.Blocklist {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO hot_jobs_blocklist (position, company, title) VALUES (?, ?, ?)`,
			i, b.Company, b.Title,
		); err != nil {
			return fmt.Errorf("inserting blocklist entry: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
