// Package sqlitestore keeps published records in SQLite, one row per field,
// and answers time-range queries over them.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/metric"
)

// Row is one stored field value.
type Row struct {
	ID     int64             `json:"id"`
	Metric string            `json:"metric"`
	Field  string            `json:"field"`
	Type   string            `json:"type"`
	At     time.Time         `json:"at"`
	Value  float64           `json:"value"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// Query filters rows. Zero values leave a bound open.
type Query struct {
	Metric string
	Field  *string
	Since  time.Time
	Until  time.Time
	Tags   map[string]string
	Limit  int
}

// Store is a SQLite-backed record store.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the store at path. Use ":memory:" for a private
// in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryStorage, "open sqlite database").
			WithContext("path", path).
			Build()
	}
	// one connection keeps ":memory:" a single database and serializes writers
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, derrors.WrapError(err, derrors.CategoryStorage, "initialize schema").
			WithContext("path", path).
			Build()
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		metric TEXT NOT NULL,
		field TEXT NOT NULL,
		metric_type TEXT NOT NULL,
		at_ms INTEGER NOT NULL,
		value REAL NOT NULL,
		tags TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_metric_at ON records(metric, at_ms);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append stores every field of r in one transaction.
func (s *Store) Append(ctx context.Context, r metric.Record, m *metric.Metric) error {
	if r.Len() == 0 {
		return nil
	}
	tagsJSON, err := json.Marshal(r.Tags())
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryInternal, "marshal tags").Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryStorage, "begin transaction").Build()
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO records (metric, field, metric_type, at_ms, value, tags) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryStorage, "prepare insert").Build()
	}
	defer stmt.Close()

	name := m.NamespacedName()
	typ := m.EffectiveType().String()
	for _, sub := range metric.FanOut(r) {
		field, value, _ := sub.SingleField()
		if _, err := stmt.ExecContext(ctx, name, field, typ, sub.AtMillis(), value, string(tagsJSON)); err != nil {
			return derrors.WrapError(err, derrors.CategoryStorage, "insert record").
				WithContext("metric", name).
				Build()
		}
	}
	if err := tx.Commit(); err != nil {
		return derrors.WrapError(err, derrors.CategoryStorage, "commit records").Build()
	}
	return nil
}

// Query returns matching rows ordered by time, then insertion.
func (s *Store) Query(ctx context.Context, q Query) ([]Row, error) {
	var (
		where []string
		args  []any
	)
	if q.Metric != "" {
		where = append(where, "metric = ?")
		args = append(args, q.Metric)
	}
	if q.Field != nil {
		where = append(where, "field = ?")
		args = append(args, *q.Field)
	}
	if !q.Since.IsZero() {
		where = append(where, "at_ms >= ?")
		args = append(args, q.Since.UnixMilli())
	}
	if !q.Until.IsZero() {
		where = append(where, "at_ms <= ?")
		args = append(args, q.Until.UnixMilli())
	}

	query := "SELECT id, metric, field, metric_type, at_ms, value, tags FROM records"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY at_ms, id"

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryStorage, "query records").Build()
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			row      Row
			atMillis int64
			tagsJSON string
		)
		if err := rows.Scan(&row.ID, &row.Metric, &row.Field, &row.Type, &atMillis, &row.Value, &tagsJSON); err != nil {
			return nil, derrors.WrapError(err, derrors.CategoryStorage, "scan record").Build()
		}
		row.At = time.UnixMilli(atMillis)
		if err := json.Unmarshal([]byte(tagsJSON), &row.Tags); err != nil {
			return nil, derrors.WrapError(err, derrors.CategoryStorage, fmt.Sprintf("decode tags of row %d", row.ID)).Build()
		}
		if !matchTags(row.Tags, q.Tags) {
			continue
		}
		out = append(out, row)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryStorage, "iterate records").Build()
	}
	return out, nil
}

func matchTags(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

// Metrics lists the distinct metric names stored.
func (s *Store) Metrics(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT metric FROM records ORDER BY metric")
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryStorage, "list metrics").Build()
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, derrors.WrapError(err, derrors.CategoryStorage, "scan metric name").Build()
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
