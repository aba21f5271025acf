// Package store implements the preset table and the generic key->blob
// config store of spec.md §4.3/§6, backed by modernc.org/sqlite — a
// pure-Go SQLite driver chosen specifically so the whole module stays
// cgo-free, unlike mattn/go-sqlite3 (SPEC_FULL.md §4.3).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/midigurdy/core/internal/errs"
)

// PresetRow is the persisted preset row of spec.md §3: {id, number, name,
// blob}. Number is 0 until the preset has been saved for the first time.
type PresetRow struct {
	ID     int64
	Number int
	Name   string
	Blob   []byte // JSON-encoded preset dict
}

// Store owns the sqlite connection and implements both the preset table
// and the generic kv table.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &errs.PersistenceError{Op: "open", Err: err}
	}

	// sqlite does not support concurrent writers; serialize them
	// through a single connection rather than fighting SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}

	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS presets (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	number INTEGER UNIQUE,
	name   TEXT NOT NULL,
	blob   BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS sounds (
	id       TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	name     TEXT NOT NULL,
	midigurdy_mode INTEGER NOT NULL DEFAULT 0
);
`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return &errs.PersistenceError{Op: "migrate", Err: err}
	}

	return nil
}

// Save implements spec.md §4.3: "if number is null, assigns
// max(number)+1; otherwise keeps it. One atomic transaction."
func (s *Store) Save(ctx context.Context, row *PresetRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &errs.PersistenceError{Op: "save:begin", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	if row.Number == 0 {
		var maxNumber sql.NullInt64

		if err := tx.QueryRowContext(ctx, `SELECT MAX(number) FROM presets`).Scan(&maxNumber); err != nil {
			return &errs.PersistenceError{Op: "save:max", Err: err}
		}

		row.Number = int(maxNumber.Int64) + 1
	}

	if row.ID == 0 {
		res, err := tx.ExecContext(ctx, `INSERT INTO presets (number, name, blob) VALUES (?, ?, ?)`,
			row.Number, row.Name, row.Blob)
		if err != nil {
			return &errs.PersistenceError{Op: "save:insert", Err: err}
		}

		id, err := res.LastInsertId()
		if err != nil {
			return &errs.PersistenceError{Op: "save:lastid", Err: err}
		}

		row.ID = id
	} else {
		if _, err := tx.ExecContext(ctx, `UPDATE presets SET number = ?, name = ?, blob = ? WHERE id = ?`,
			row.Number, row.Name, row.Blob, row.ID); err != nil {
			return &errs.PersistenceError{Op: "save:update", Err: err}
		}
	}

	return commit(tx)
}

// Delete implements spec.md §4.3: "delete row, then reorder the
// survivors into [1..N] by their previous relative order."
func (s *Store) Delete(ctx context.Context, id int64) error {
	rows, err := s.selectAllOrdered(ctx, s.db)
	if err != nil {
		return err
	}

	survivors := make([]int64, 0, len(rows))

	found := false

	for _, r := range rows {
		if r.ID == id {
			found = true
			continue
		}

		survivors = append(survivors, r.ID)
	}

	if !found {
		return &errs.NotFoundError{Kind: "preset", ID: fmt.Sprint(id)}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &errs.PersistenceError{Op: "delete:begin", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM presets WHERE id = ?`, id); err != nil {
		return &errs.PersistenceError{Op: "delete:exec", Err: err}
	}

	if err := reorderTx(ctx, tx, survivors); err != nil {
		return err
	}

	return commit(tx)
}

// Reorder implements spec.md §4.3's two-phase renumbering: set all
// number=NULL, then write number=i+1 for each id in order. It asserts
// len(order) equals the row count.
func (s *Store) Reorder(ctx context.Context, order []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &errs.PersistenceError{Op: "reorder:begin", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM presets`).Scan(&count); err != nil {
		return &errs.PersistenceError{Op: "reorder:count", Err: err}
	}

	if count != len(order) {
		return &errs.PersistenceError{Op: "reorder", Err: fmt.Errorf("order has %d ids, table has %d rows", len(order), count)}
	}

	if err := reorderTx(ctx, tx, order); err != nil {
		return err
	}

	return commit(tx)
}

func reorderTx(ctx context.Context, tx *sql.Tx, order []int64) error {
	if _, err := tx.ExecContext(ctx, `UPDATE presets SET number = NULL`); err != nil {
		return &errs.PersistenceError{Op: "reorder:clear", Err: err}
	}

	for i, id := range order {
		if _, err := tx.ExecContext(ctx, `UPDATE presets SET number = ? WHERE id = ?`, i+1, id); err != nil {
			return &errs.PersistenceError{Op: "reorder:write", Err: err}
		}
	}

	return nil
}

// LoadPreset implements spec.md §4.3's load_preset(id).
func (s *Store) LoadPreset(ctx context.Context, id int64) (*PresetRow, error) {
	row := &PresetRow{}

	err := s.db.QueryRowContext(ctx, `SELECT id, COALESCE(number, 0), name, blob FROM presets WHERE id = ?`, id).
		Scan(&row.ID, &row.Number, &row.Name, &row.Blob)
	if err == sql.ErrNoRows {
		return nil, &errs.NotFoundError{Kind: "preset", ID: fmt.Sprint(id)}
	}

	if err != nil {
		return nil, &errs.PersistenceError{Op: "load", Err: err}
	}

	return row, nil
}

// SavePresetBlob implements spec.md §4.3's save_preset_blob(id, dict).
func (s *Store) SavePresetBlob(ctx context.Context, id int64, blob []byte) error {
	res, err := s.db.ExecContext(ctx, `UPDATE presets SET blob = ? WHERE id = ?`, blob, id)
	if err != nil {
		return &errs.PersistenceError{Op: "save_blob", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return &errs.PersistenceError{Op: "save_blob:rows", Err: err}
	}

	if n == 0 {
		return &errs.NotFoundError{Kind: "preset", ID: fmt.Sprint(id)}
	}

	return nil
}

// SelectAll implements spec.md §4.3's order_by(number) natural ordering
// and backs the preset-numbering invariant test
// (TestPresetNumberingInvariant).
func (s *Store) SelectAll(ctx context.Context) ([]*PresetRow, error) {
	return s.selectAllOrdered(ctx, s.db)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) selectAllOrdered(ctx context.Context, q querier) ([]*PresetRow, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, COALESCE(number, 0), name, blob FROM presets ORDER BY number`)
	if err != nil {
		return nil, &errs.PersistenceError{Op: "select_all", Err: err}
	}
	defer rows.Close()

	var out []*PresetRow

	for rows.Next() {
		r := &PresetRow{}
		if err := rows.Scan(&r.ID, &r.Number, &r.Name, &r.Blob); err != nil {
			return nil, &errs.PersistenceError{Op: "select_all:scan", Err: err}
		}

		out = append(out, r)
	}

	return out, rows.Err()
}

// --- generic key -> blob config store (spec.md §6) ---

// PutKV stores value (already JSON-encoded) under key, overwriting any
// existing value.
func (s *Store) PutKV(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return &errs.PersistenceError{Op: "kv:put", Err: err}
	}

	return nil
}

// DeleteKV removes the value stored under key, used by DELETE
// /mappings/{name} and DELETE /calibrate/keyboard (spec.md §6).
func (s *Store) DeleteKV(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return &errs.PersistenceError{Op: "kv:delete", Err: err}
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return &errs.NotFoundError{Kind: "config", ID: key}
	}

	return nil
}

// GetKV retrieves the raw blob stored under key.
func (s *Store) GetKV(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, &errs.NotFoundError{Kind: "config", ID: key}
	}

	if err != nil {
		return nil, &errs.PersistenceError{Op: "kv:get", Err: err}
	}

	return value, nil
}

// PutJSON is a convenience wrapper marshalling v before storing it.
func (s *Store) PutJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	return s.PutKV(ctx, key, b)
}

// GetJSON is a convenience wrapper unmarshalling the stored blob into v.
func (s *Store) GetJSON(ctx context.Context, key string, v any) error {
	b, err := s.GetKV(ctx, key)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, v)
}

func commit(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return &errs.PersistenceError{Op: "commit", Err: err}
	}

	return nil
}
