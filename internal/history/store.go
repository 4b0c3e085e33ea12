// Package history records completed transcriptions in SQLite.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"sttd/pkg/types"
)

// DefaultLimit caps List when no limit is given.
const DefaultLimit = 50

// MaxLimit is the largest page List returns.
const MaxLimit = 500

type Store struct {
	db  *sql.DB
	now func() time.Time
}

var connMaxLifetime = 5 * time.Minute

// Open opens or creates the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	if path == ":memory:" {
		// The schema lives on the one connection; never recycle it.
		db.SetMaxIdleConns(1)
	} else {
		db.SetConnMaxLifetime(connMaxLifetime)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS transcriptions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  date_folder TEXT NOT NULL,
  session_folder TEXT NOT NULL,
  language TEXT NOT NULL,
  model_size TEXT NOT NULL,
  device TEXT NOT NULL,
  audio_path TEXT NOT NULL,
  transcription_path TEXT NOT NULL,
  chars INTEGER NOT NULL DEFAULT 0,
  duration_ms INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transcriptions_created ON transcriptions(created_at DESC);
`)
	return err
}

// Add inserts r and returns its id. CreatedAtUnix defaults to now.
func (s *Store) Add(ctx context.Context, r types.TranscriptionRecord) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if r.CreatedAtUnix == 0 {
		r.CreatedAtUnix = s.now().Unix()
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO transcriptions(date_folder, session_folder, language, model_size, device, audio_path, transcription_path, chars, duration_ms, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, r.DateFolder, r.SessionFolder, r.Language, r.ModelSize, r.Device, r.AudioPath, r.TranscriptionPath, r.Chars, r.DurationMS, r.CreatedAtUnix)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// List returns up to limit records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]types.TranscriptionRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, date_folder, session_folder, language, model_size, device, audio_path, transcription_path, chars, duration_ms, created_at
FROM transcriptions ORDER BY created_at DESC, id DESC LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.TranscriptionRecord{}
	for rows.Next() {
		var r types.TranscriptionRecord
		if err := rows.Scan(&r.ID, &r.DateFolder, &r.SessionFolder, &r.Language, &r.ModelSize, &r.Device, &r.AudioPath, &r.TranscriptionPath, &r.Chars, &r.DurationMS, &r.CreatedAtUnix); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transcriptions;").Scan(&n)
	return n, err
}
