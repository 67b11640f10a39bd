// Package history persists finished run reports in a SQLite database so
// earlier runs stay inspectable after the build directory is cleaned.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/llvmbuilder/internal/report"
)

// Lookup errors for Get.
var (
	ErrNotFound    = errors.New("run not found")
	ErrAmbiguousID = errors.New("run id prefix is ambiguous")
)

// Store is a SQLite-backed run archive.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the history database. Use ":memory:" for an
// in-memory database (tests), or a file path for persistent storage.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("ensure history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		status TEXT NOT NULL,
		failed_stage TEXT NOT NULL DEFAULT '',
		generator TEXT NOT NULL,
		build_type TEXT NOT NULL,
		projects TEXT NOT NULL,
		jobs INTEGER NOT NULL,
		report BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
	CREATE TABLE IF NOT EXISTS stage_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(run_id),
		stage TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL,
		exit_code INTEGER NOT NULL,
		signal TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_stage_results_run ON stage_results(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append archives a finalized report. The full JSON document is stored
// alongside queryable per-run and per-stage columns.
func (s *Store) Append(ctx context.Context, rep *report.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, started, finished, duration_ms, status, failed_stage,
			generator, build_type, projects, jobs, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.RunID, rep.Start.UnixMilli(), rep.End.UnixMilli(), rep.Duration().Milliseconds(),
		string(rep.Status), rep.FailedStage,
		rep.Generator, rep.BuildType, strings.Join(rep.Projects, ","), rep.Jobs, doc,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, sr := range rep.Stages {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO stage_results (run_id, stage, label, status, started, finished, exit_code, signal)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rep.RunID, sr.Stage, sr.Label, string(sr.Status),
			sr.Start.UnixMilli(), sr.End.UnixMilli(), sr.ExitCode, sr.Signal,
		)
		if err != nil {
			return fmt.Errorf("insert stage result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history transaction: %w", err)
	}
	return nil
}

// RunSummary is one row of the run archive, without the stage detail.
type RunSummary struct {
	RunID       string
	Start       time.Time
	End         time.Time
	Duration    time.Duration
	Status      string
	FailedStage string
	Generator   string
	BuildType   string
	Projects    []string
	Jobs        int
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, started, finished, duration_ms, status, failed_stage,
			generator, build_type, projects, jobs
		 FROM runs ORDER BY started DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var started, finished, durationMS int64
		var projects string
		if err := rows.Scan(&rs.RunID, &started, &finished, &durationMS, &rs.Status,
			&rs.FailedStage, &rs.Generator, &rs.BuildType, &projects, &rs.Jobs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rs.Start = time.UnixMilli(started)
		rs.End = time.UnixMilli(finished)
		rs.Duration = time.Duration(durationMS) * time.Millisecond
		if projects != "" {
			rs.Projects = strings.Split(projects, ",")
		}
		out = append(out, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// Get loads a stored report by run ID. An unabbreviated ID is matched
// exactly; a shorter string works as a prefix as long as it is unambiguous.
func (s *Store) Get(ctx context.Context, runID string) (*report.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.lookup(ctx, runID)
	if err != nil {
		return nil, err
	}

	var rep report.RunReport
	if err := json.Unmarshal(doc, &rep); err != nil {
		return nil, fmt.Errorf("unmarshal stored report: %w", err)
	}
	return &rep, nil
}

func (s *Store) lookup(ctx context.Context, runID string) ([]byte, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE run_id = ?`, runID).Scan(&doc)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT report FROM runs WHERE run_id LIKE ? ORDER BY started DESC LIMIT 2`,
		runID+"%")
	if err != nil {
		return nil, fmt.Errorf("query run prefix: %w", err)
	}
	defer rows.Close()

	var matches [][]byte
	for rows.Next() {
		var d []byte
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, runID)
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
