package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"showcase-tracker/internal/domain"

	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("repository: not found")

type PlayerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		db:     sqlDB,
		logger: logger,
	}
}

const getPlayer = `
SELECT uid, nickname, level, signature, character_count, last_fetch_at, created_at, updated_at
FROM players
WHERE uid = ?`

func (r *PlayerRepository) Get(ctx context.Context, uid string) (*domain.PlayerSummary, error) {
	var p domain.PlayerSummary
	err := r.db.QueryRowContext(ctx, getPlayer, uid).Scan(
		&p.UID,
		&p.Nickname,
		&p.Level,
		&p.Signature,
		&p.CharacterCount,
		&p.LastFetchAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %s: %w", uid, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const upsertPlayer = `
INSERT INTO players (uid, nickname, level, signature, character_count, last_fetch_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(uid) DO UPDATE SET
    nickname        = excluded.nickname,
    level           = excluded.level,
    signature       = excluded.signature,
    character_count = excluded.character_count,
    last_fetch_at   = excluded.last_fetch_at,
    updated_at      = excluded.updated_at`

// Upsert leaves created_at of an existing player untouched.
func (r *PlayerRepository) Upsert(ctx context.Context, p *domain.PlayerSummary) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	_, err := r.db.ExecContext(ctx, upsertPlayer,
		p.UID,
		p.Nickname,
		p.Level,
		p.Signature,
		p.CharacterCount,
		p.LastFetchAt.UTC(),
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert player %s: %w", p.UID, err)
	}
	return nil
}

const getPlayerLastFetchAt = `SELECT last_fetch_at FROM players WHERE uid = ?`

func (r *PlayerRepository) ShouldRefresh(ctx context.Context, uid string, ttl time.Duration) (bool, error) {
	var lastFetchAt time.Time
	err := r.db.QueryRowContext(ctx, getPlayerLastFetchAt, uid).Scan(&lastFetchAt)
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.Debug().Str("uid", uid).Msg("player not found, should refresh")
		return true, nil
	}
	if err != nil {
		r.logger.Error().Err(err).Str("uid", uid).Msg("failed to get player")
		return false, err
	}

	timeSince := time.Since(lastFetchAt)
	shouldRefresh := timeSince > ttl
	r.logger.Debug().
		Str("uid", uid).
		Time("last_fetch_at", lastFetchAt).
		Dur("time_since", timeSince).
		Dur("ttl", ttl).
		Bool("should_refresh", shouldRefresh).
		Msg("checking if player should refresh")

	return shouldRefresh, nil
}
