package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mastery-tracker/internal/domain"

	"github.com/rs/zerolog"
)

const StatusIdle = "idle"

type StatusRepository struct {
	db     *sql.DB
	now    func() time.Time
	logger zerolog.Logger
}

func NewStatusRepository(sqlDB *sql.DB, logger zerolog.Logger) *StatusRepository {
	return &StatusRepository{db: sqlDB, now: time.Now, logger: logger}
}

// Get returns the stored status, or idle with no timestamp when none was set.
func (r *StatusRepository) Get(ctx context.Context) (*domain.Status, error) {
	var (
		status  string
		meta    string
		updated sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `SELECT status, meta, updated_at FROM status WHERE id = 1`).
		Scan(&status, &meta, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.Status{Status: StatusIdle, Meta: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	s := &domain.Status{Status: status, Meta: map[string]string{}}
	if err := json.Unmarshal([]byte(meta), &s.Meta); err != nil {
		r.logger.Warn().Err(err).Msg("status meta unreadable, resetting")
		s.Meta = map[string]string{}
	}
	if updated.Valid {
		t, err := time.Parse(timeLayout, updated.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse status time: %w", err)
		}
		s.UpdatedAt = &t
	}
	return s, nil
}

func (r *StatusRepository) Set(ctx context.Context, status string, meta map[string]string) (*domain.Status, error) {
	if status == "" {
		return nil, domain.NewValidationError("status", "required")
	}
	if meta == nil {
		meta = map[string]string{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode status meta: %w", err)
	}
	now := r.now().UTC()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO status (id, status, meta, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			meta = excluded.meta,
			updated_at = excluded.updated_at`,
		status, string(raw), now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to set status: %w", err)
	}
	return &domain.Status{Status: status, Meta: meta, UpdatedAt: &now}, nil
}
