package store

import (
	"context"
	"database/sql"

	"github.com/midigurdy/core/internal/errs"
)

// SoundRow is a discovered SoundFont file (SPEC_FULL.md §3): its stable
// id, filename within sound_dir, display name, and whether it declares
// midigurdy mode.
type SoundRow struct {
	ID            string `json:"id"`
	Filename      string `json:"filename"`
	Name          string `json:"name"`
	MidigurdyMode bool   `json:"midigurdy_mode"`
}

// UpsertSound inserts or replaces a sound catalog entry, used by the
// sound_dir startup scan and by POST /upload/sound/{filename}.
func (s *Store) UpsertSound(ctx context.Context, row SoundRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sounds (id, filename, name, midigurdy_mode) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET filename = excluded.filename, name = excluded.name, midigurdy_mode = excluded.midigurdy_mode`,
		row.ID, row.Filename, row.Name, boolToInt(row.MidigurdyMode))
	if err != nil {
		return &errs.PersistenceError{Op: "sounds:upsert", Err: err}
	}

	return nil
}

// DeleteSound removes a catalog entry (the caller is responsible for
// removing the underlying file).
func (s *Store) DeleteSound(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sounds WHERE id = ?`, id)
	if err != nil {
		return &errs.PersistenceError{Op: "sounds:delete", Err: err}
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return &errs.NotFoundError{Kind: "sound", ID: id}
	}

	return nil
}

// GetSound fetches one catalog entry by id.
func (s *Store) GetSound(ctx context.Context, id string) (*SoundRow, error) {
	row := &SoundRow{}

	var mg int

	err := s.db.QueryRowContext(ctx, `SELECT id, filename, name, midigurdy_mode FROM sounds WHERE id = ?`, id).
		Scan(&row.ID, &row.Filename, &row.Name, &mg)
	if err == sql.ErrNoRows {
		return nil, &errs.NotFoundError{Kind: "sound", ID: id}
	}

	if err != nil {
		return nil, &errs.PersistenceError{Op: "sounds:get", Err: err}
	}

	row.MidigurdyMode = mg != 0

	return row, nil
}

// FindSoundByFilename looks up a catalog entry by its filename rather
// than its stable id, the key a preset's voice document actually
// stores (presets.VoiceDoc.SoundFont).
func (s *Store) FindSoundByFilename(ctx context.Context, filename string) (*SoundRow, error) {
	row := &SoundRow{}

	var mg int

	err := s.db.QueryRowContext(ctx, `SELECT id, filename, name, midigurdy_mode FROM sounds WHERE filename = ?`, filename).
		Scan(&row.ID, &row.Filename, &row.Name, &mg)
	if err == sql.ErrNoRows {
		return nil, &errs.NotFoundError{Kind: "sound", ID: filename}
	}

	if err != nil {
		return nil, &errs.PersistenceError{Op: "sounds:find_by_filename", Err: err}
	}

	row.MidigurdyMode = mg != 0

	return row, nil
}

// ListSounds returns the full sound catalog, ordered by id for stable
// pagination-free listing.
func (s *Store) ListSounds(ctx context.Context) ([]*SoundRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, filename, name, midigurdy_mode FROM sounds ORDER BY id`)
	if err != nil {
		return nil, &errs.PersistenceError{Op: "sounds:list", Err: err}
	}
	defer rows.Close()

	var out []*SoundRow

	for rows.Next() {
		r := &SoundRow{}

		var mg int
		if err := rows.Scan(&r.ID, &r.Filename, &r.Name, &mg); err != nil {
			return nil, &errs.PersistenceError{Op: "sounds:list:scan", Err: err}
		}

		r.MidigurdyMode = mg != 0
		out = append(out, r)
	}

	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
