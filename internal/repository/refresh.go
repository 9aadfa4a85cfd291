package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"showcase-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// RefreshRepository is the append-only log of successful ingestions.
type RefreshRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRefreshRepository(sqlDB *sql.DB, logger zerolog.Logger) *RefreshRepository {
	return &RefreshRepository{
		db:     sqlDB,
		logger: logger,
	}
}

const insertRefresh = `
INSERT INTO refresh_log (id, uid, provider, characters, captured_at, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

// Insert fills in ID and CreatedAt when they are empty.
func (r *RefreshRepository) Insert(ctx context.Context, rec *domain.RefreshRecord) error {
	if rec.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		rec.ID = id
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	characters := rec.Characters
	if characters == nil {
		characters = []string{}
	}
	names, err := json.Marshal(characters)
	if err != nil {
		return fmt.Errorf("encode characters: %w", err)
	}

	_, err = r.db.ExecContext(ctx, insertRefresh,
		rec.ID,
		rec.UID,
		rec.Provider,
		string(names),
		rec.CapturedAt.UTC(),
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert refresh %s: %w", rec.UID, err)
	}
	r.logger.Debug().Str("uid", rec.UID).Str("id", rec.ID).Int("characters", len(characters)).Msg("refresh recorded")
	return nil
}

const listRefreshByUID = `
SELECT id, uid, provider, characters, captured_at, created_at
FROM refresh_log
WHERE uid = ?
ORDER BY captured_at DESC, created_at DESC
LIMIT ?`

// ListByUID returns the newest records first.
func (r *RefreshRepository) ListByUID(ctx context.Context, uid string, limit int) ([]domain.RefreshRecord, error) {
	rows, err := r.db.QueryContext(ctx, listRefreshByUID, uid, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RefreshRecord
	for rows.Next() {
		rec, err := scanRefresh(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Latest returns the newest record for uid.
func (r *RefreshRepository) Latest(ctx context.Context, uid string) (*domain.RefreshRecord, error) {
	recs, err := r.ListByUID(ctx, uid, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("refresh for %s: %w", uid, ErrNotFound)
	}
	return &recs[0], nil
}

func scanRefresh(rows *sql.Rows) (domain.RefreshRecord, error) {
	var (
		rec   domain.RefreshRecord
		names string
	)
	if err := rows.Scan(&rec.ID, &rec.UID, &rec.Provider, &names, &rec.CapturedAt, &rec.CreatedAt); err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(names), &rec.Characters); err != nil {
		return rec, fmt.Errorf("decode characters of %s: %w", rec.ID, err)
	}
	return rec, nil
}
