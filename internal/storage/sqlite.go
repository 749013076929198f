//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/triathematician/blaisemath-sub005/internal/model"

	_ "modernc.org/sqlite"
)

// schema keeps the columns runs and batches are filtered and sorted by next
// to the encoded record.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		scenario TEXT NOT NULL,
		seed INTEGER NOT NULL,
		steps INTEGER NOT NULL,
		ended INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		winner TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		payload BLOB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS runs_by_scenario ON runs (scenario, created_at)`,
	`CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		scenario TEXT NOT NULL,
		seed INTEGER NOT NULL,
		trials INTEGER NOT NULL,
		workers INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		payload BLOB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS batches_by_scenario ON batches (scenario, created_at)`,
}

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("create schema: %w", err)
		}
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run model.RunRecord) error {
	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}
	return s.upsert(ctx, "runs", run.ID, payload, map[string]any{
		"scenario":   run.Scenario,
		"seed":       run.Seed,
		"steps":      run.Steps,
		"ended":      run.Ended,
		"outcome":    run.Outcome,
		"winner":     run.Winner,
		"created_at": run.CreatedAtUTC,
	})
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (model.RunRecord, bool, error) {
	payload, ok, err := s.payload(ctx, "runs", id)
	if err != nil || !ok {
		return model.RunRecord{}, ok, err
	}
	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, q Query) ([]model.RunRecord, error) {
	var out []model.RunRecord
	err := s.list(ctx, "runs", q, func(id string, payload []byte) error {
		run, err := DecodeRun(payload)
		if err != nil {
			return fmt.Errorf("decode run %s: %w", id, err)
		}
		out = append(out, run)
		return nil
	})
	return out, err
}

func (s *SQLiteStore) SaveBatch(ctx context.Context, batch model.BatchRecord) error {
	payload, err := EncodeBatch(batch)
	if err != nil {
		return err
	}
	return s.upsert(ctx, "batches", batch.ID, payload, map[string]any{
		"scenario":    batch.Scenario,
		"seed":        batch.Seed,
		"trials":      batch.Trials,
		"workers":     batch.Workers,
		"duration_ms": batch.DurationMS,
		"created_at":  batch.CreatedAtUTC,
	})
}

func (s *SQLiteStore) GetBatch(ctx context.Context, id string) (model.BatchRecord, bool, error) {
	payload, ok, err := s.payload(ctx, "batches", id)
	if err != nil || !ok {
		return model.BatchRecord{}, ok, err
	}
	batch, err := DecodeBatch(payload)
	if err != nil {
		return model.BatchRecord{}, false, fmt.Errorf("decode batch %s: %w", id, err)
	}
	return batch, true, nil
}

func (s *SQLiteStore) ListBatches(ctx context.Context, q Query) ([]model.BatchRecord, error) {
	var out []model.BatchRecord
	err := s.list(ctx, "batches", q, func(id string, payload []byte) error {
		batch, err := DecodeBatch(payload)
		if err != nil {
			return fmt.Errorf("decode batch %s: %w", id, err)
		}
		out = append(out, batch)
		return nil
	})
	return out, err
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// upsert writes payload and the indexed columns of one row. Column names come
// from this file only.
func (s *SQLiteStore) upsert(ctx context.Context, table, id string, payload []byte, columns map[string]any) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	cols := append([]string{"id", "payload"}, names...)
	args := []any{id, payload}
	updates := []string{"payload = excluded.payload"}
	for _, name := range names {
		args = append(args, columns[name])
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", name, name))
	}

	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		table,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(updates, ", "),
	)
	if _, err := db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("save %s %s: %w", table, id, err)
	}
	return nil
}

func (s *SQLiteStore) payload(ctx context.Context, table, id string) ([]byte, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, "SELECT payload FROM "+table+" WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (s *SQLiteStore) list(ctx context.Context, table string, q Query, fn func(id string, payload []byte) error) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	stmt := "SELECT id, payload FROM " + table
	var args []any
	if q.Scenario != "" {
		stmt += " WHERE scenario = ?"
		args = append(args, q.Scenario)
	}
	stmt += " ORDER BY created_at DESC, rowid DESC"
	if q.Limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return err
		}
		if err := fn(id, payload); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}
