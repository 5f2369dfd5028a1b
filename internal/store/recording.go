package store

import (
	"database/sql"
	"errors"
	"time"
)

// Recording is the stored metadata of a finished recording. The video
// itself is kept in the settings slot, not here.
type Recording struct {
	ID        string    `json:"id"`
	MediaType string    `json:"media_type"`
	Size      int       `json:"size"`
	Fragments int       `json:"fragments"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at"`
}

// Duration returns how long the recording ran.
func (r *Recording) Duration() time.Duration {
	return r.StoppedAt.Sub(r.StartedAt)
}

// RecordingRepository provides access to recording history.
type RecordingRepository struct {
	db *sql.DB
}

// Recordings returns the recording repository for this store.
func (s *Store) Recordings() *RecordingRepository {
	return &RecordingRepository{db: s.db}
}

// Create inserts a recording.
func (r *RecordingRepository) Create(rec *Recording) error {
	_, err := r.db.Exec(
		`INSERT INTO recordings (id, media_type, size, fragments, started_at, stopped_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.MediaType, rec.Size, rec.Fragments, rec.StartedAt, rec.StoppedAt,
	)
	return err
}

// GetByID retrieves a recording by its ID.
func (r *RecordingRepository) GetByID(id string) (*Recording, error) {
	rec := &Recording{}
	err := r.db.QueryRow(
		`SELECT id, media_type, size, fragments, started_at, stopped_at
		 FROM recordings WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.MediaType, &rec.Size, &rec.Fragments, &rec.StartedAt, &rec.StoppedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// List returns recordings, newest first. A limit of 0 or less returns all of them.
func (r *RecordingRepository) List(limit int) ([]*Recording, error) {
	query := `SELECT id, media_type, size, fragments, started_at, stopped_at
		 FROM recordings ORDER BY stopped_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recordings []*Recording
	for rows.Next() {
		rec := &Recording{}
		if err := rows.Scan(&rec.ID, &rec.MediaType, &rec.Size, &rec.Fragments, &rec.StartedAt, &rec.StoppedAt); err != nil {
			return nil, err
		}
		recordings = append(recordings, rec)
	}

	return recordings, rows.Err()
}
