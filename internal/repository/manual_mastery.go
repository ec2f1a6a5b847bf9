package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mastery-tracker/internal/config"
	"mastery-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const backupAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

type ManualMasteryRepository struct {
	db        *sql.DB
	backupDir string
	now       func() time.Time
	logger    zerolog.Logger
}

func NewManualMasteryRepository(sqlDB *sql.DB, cfg *config.Config, logger zerolog.Logger) *ManualMasteryRepository {
	return &ManualMasteryRepository{
		db:        sqlDB,
		backupDir: cfg.BackupDir,
		now:       time.Now,
		logger:    logger.With().Str("component", "manual_store").Logger(),
	}
}

func keyOf(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeMastery floors the value and maps negative or non-finite input to 0.
func NormalizeMastery(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return int(math.Floor(v))
}

func validateKey(account, champion string) (string, string, error) {
	account, champion = strings.TrimSpace(account), strings.TrimSpace(champion)
	if account == "" {
		return "", "", domain.NewValidationError("account", "required")
	}
	if champion == "" {
		return "", "", domain.NewValidationError("champion", "required")
	}
	return account, champion, nil
}

// Upsert inserts or replaces the record for account/champion, matched
// case-insensitively.
func (r *ManualMasteryRepository) Upsert(ctx context.Context, account, champion string, mastery float64) (*domain.ManualRecord, error) {
	account, champion, err := validateKey(account, champion)
	if err != nil {
		return nil, err
	}
	rec := &domain.ManualRecord{
		Account:   account,
		Champion:  champion,
		Mastery:   NormalizeMastery(mastery),
		UpdatedAt: r.now().UTC(),
	}

	r.backupBeforeWrite(ctx)

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO manual_mastery (account_key, champion_key, account, champion, mastery, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_key, champion_key) DO UPDATE SET
			account = excluded.account,
			champion = excluded.champion,
			mastery = excluded.mastery,
			updated_at = excluded.updated_at`,
		keyOf(account), keyOf(champion), rec.Account, rec.Champion, rec.Mastery, rec.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("account", account).Str("champion", champion).Msg("failed to upsert record")
		return nil, fmt.Errorf("failed to upsert record: %w", err)
	}

	r.logger.Info().Str("account", account).Str("champion", champion).Int("mastery", rec.Mastery).Msg("record saved")
	return rec, nil
}

// Remove deletes the record and reports whether one existed.
func (r *ManualMasteryRepository) Remove(ctx context.Context, account, champion string) (bool, error) {
	account, champion, err := validateKey(account, champion)
	if err != nil {
		return false, err
	}

	existing, err := r.Get(ctx, account, champion)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	r.backupBeforeWrite(ctx)

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM manual_mastery WHERE account_key = ? AND champion_key = ?`,
		keyOf(account), keyOf(champion))
	if err != nil {
		return false, fmt.Errorf("failed to remove record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to remove record: %w", err)
	}
	return n > 0, nil
}

// Get returns nil without error when no record matches.
func (r *ManualMasteryRepository) Get(ctx context.Context, account, champion string) (*domain.ManualRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT account, champion, mastery, updated_at
		FROM manual_mastery
		WHERE account_key = ? AND champion_key = ?`,
		keyOf(account), keyOf(champion))

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

func (r *ManualMasteryRepository) All(ctx context.Context) ([]domain.ManualRecord, error) {
	return r.query(ctx, `
		SELECT account, champion, mastery, updated_at
		FROM manual_mastery
		ORDER BY account_key, champion_key`)
}

func (r *ManualMasteryRepository) ListByAccount(ctx context.Context, account string) ([]domain.ManualRecord, error) {
	return r.query(ctx, `
		SELECT account, champion, mastery, updated_at
		FROM manual_mastery
		WHERE account_key = ?
		ORDER BY mastery DESC, champion_key`, keyOf(account))
}

// TotalsByChampion sums mastery per champion across accounts, highest first.
func (r *ManualMasteryRepository) TotalsByChampion(ctx context.Context) ([]domain.ManualTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT MIN(champion), SUM(mastery) AS total
		FROM manual_mastery
		GROUP BY champion_key
		ORDER BY total DESC, champion_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}
	defer rows.Close()

	totals := []domain.ManualTotal{}
	for rows.Next() {
		var t domain.ManualTotal
		if err := rows.Scan(&t.Champion, &t.Mastery); err != nil {
			return nil, fmt.Errorf("failed to scan total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// Accounts summarises each tracked account.
func (r *ManualMasteryRepository) Accounts(ctx context.Context) ([]domain.ManualAccountSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT MIN(account), COUNT(*), SUM(mastery), MAX(updated_at)
		FROM manual_mastery
		GROUP BY account_key
		ORDER BY account_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	summaries := []domain.ManualAccountSummary{}
	for rows.Next() {
		var (
			s       domain.ManualAccountSummary
			updated string
		)
		if err := rows.Scan(&s.Account, &s.Champions, &s.Points, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		if s.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Backup writes a consistent snapshot of the database into dir and returns its path.
func (r *ManualMasteryRepository) Backup(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	id, err := gonanoid.Generate(backupAlphabet, 8)
	if err != nil {
		return "", fmt.Errorf("failed to generate nanoid: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("mastery-%s-%s.db", r.now().Format("20060102-150405"), id))

	quoted := "'" + strings.ReplaceAll(path, "'", "''") + "'"
	if _, err := r.db.ExecContext(ctx, "VACUUM INTO "+quoted); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	r.logger.Debug().Str("path", path).Msg("backup written")
	return path, nil
}

func (r *ManualMasteryRepository) backupBeforeWrite(ctx context.Context) {
	if r.backupDir == "" {
		return
	}
	if _, err := r.Backup(ctx, r.backupDir); err != nil {
		r.logger.Warn().Err(err).Msg("backup before write failed")
	}
}

func (r *ManualMasteryRepository) query(ctx context.Context, q string, args ...any) ([]domain.ManualRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []domain.ManualRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*domain.ManualRecord, error) {
	var (
		rec     domain.ManualRecord
		updated string
	)
	if err := s.Scan(&rec.Account, &rec.Champion, &rec.Mastery, &updated); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, updated)
	if err != nil {
		return nil, err
	}
	rec.UpdatedAt = t
	return &rec, nil
}
