package service

import (
	"context"
	"fmt"

	"showcase-tracker/internal/constants"
	"showcase-tracker/internal/messages"

	"github.com/rs/zerolog"
)

type SnapshotSource interface {
	Provider() string
	Snapshot(ctx context.Context, uid string) ([]byte, error)
}

// RefreshService fetches a fresh snapshot from the configured upstream and
// ingests it.
type RefreshService struct {
	ingest    *IngestService
	source    SnapshotSource
	players   PlayerIndex
	refreshes RefreshLog
	messages  *messages.Messages
	logger    zerolog.Logger
}

func NewRefreshService(ingest *IngestService, source SnapshotSource, players PlayerIndex, refreshes RefreshLog, msgs *messages.Messages, logger zerolog.Logger) *RefreshService {
	return &RefreshService{
		ingest:    ingest,
		source:    source,
		players:   players,
		refreshes: refreshes,
		messages:  msgs,
		logger:    logger,
	}
}

// Provider names the snapshot upstream for error messages.
func (s *RefreshService) Provider() string {
	return s.source.Provider()
}

// Refresh skips the upstream when the player was refreshed within
// constants.PlayerRefreshTTL, unless force is set.
func (s *RefreshService) Refresh(ctx context.Context, uid string, force bool) (*IngestSummary, error) {
	if err := ValidateUID(uid); err != nil {
		return nil, err
	}

	if !force {
		if summary, ok := s.cached(ctx, uid); ok {
			return summary, nil
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	s.logger.Debug().Str("uid", uid).Str("provider", s.source.Provider()).Msg("fetching snapshot")
	raw, err := s.source.Snapshot(fetchCtx, uid)
	if err != nil {
		s.logger.Warn().Err(err).Str("uid", uid).Str("provider", s.source.Provider()).Msg("snapshot fetch failed")
		return nil, fmt.Errorf("refresh %s: %w", uid, err)
	}
	return s.ingest.Ingest(ctx, uid, raw)
}

func (s *RefreshService) cached(ctx context.Context, uid string) (*IngestSummary, bool) {
	if s.players == nil || s.refreshes == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	should, err := s.players.ShouldRefresh(ctx, uid, constants.PlayerRefreshTTL)
	if err != nil || should {
		return nil, false
	}
	player, err := s.players.Get(ctx, uid)
	if err != nil {
		return nil, false
	}
	latest, err := s.refreshes.Latest(ctx, uid)
	if err != nil {
		s.logger.Debug().Err(err).Str("uid", uid).Msg("no refresh record for fresh player")
		return nil, false
	}

	s.logger.Info().Str("uid", uid).Time("last_fetch_at", player.LastFetchAt).Msg("player is fresh, skipping upstream")
	return &IngestSummary{
		UID:        uid,
		Nickname:   player.Nickname,
		Characters: latest.Characters,
		Message:    s.messages.Fresh(s.messages.Language(ctx), uid, latest.Characters),
		Fresh:      true,
	}, true
}
