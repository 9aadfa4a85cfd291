package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"showcase-tracker/internal/api"
	"showcase-tracker/internal/catalogue"
	"showcase-tracker/internal/constants"
	"showcase-tracker/internal/domain"
	"showcase-tracker/internal/messages"
	"showcase-tracker/internal/normalize"
	"showcase-tracker/internal/score"
	"showcase-tracker/internal/store"
	"showcase-tracker/internal/worker"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "showcase-tracker/internal/service"

var uidPattern = regexp.MustCompile(`^[0-9]{9,10}$`)

// ValidateUID rejects anything but a 9 or 10 digit player id.
func ValidateUID(uid string) error {
	if !uidPattern.MatchString(uid) {
		return fmt.Errorf("uid %q: %w", uid, domain.ErrInvalidUID)
	}
	return nil
}

type PlayerIndex interface {
	Get(ctx context.Context, uid string) (*domain.PlayerSummary, error)
	Upsert(ctx context.Context, p *domain.PlayerSummary) error
	ShouldRefresh(ctx context.Context, uid string, ttl time.Duration) (bool, error)
}

type RefreshLog interface {
	Insert(ctx context.Context, rec *domain.RefreshRecord) error
	Latest(ctx context.Context, uid string) (*domain.RefreshRecord, error)
}

type RankSource interface {
	RankCalculations(ctx context.Context, uid string) ([]api.RankCalculation, error)
}

// TaskQueue accepts background work without blocking.
type TaskQueue interface {
	Submit(t worker.Task) error
}

type IngestSummary struct {
	UID        string   `json:"uid"`
	Nickname   string   `json:"nickname"`
	Characters []string `json:"characters"`
	Message    string   `json:"message"`
	Fresh      bool     `json:"fresh,omitempty"`
}

// IngestOptions collects the collaborators of IngestService. Players,
// Refreshes and Ranks may be nil; Ranks is only used when EnableRank is set.
type IngestOptions struct {
	Normalizer *normalize.Normalizer
	Store      *store.Store
	Scorer     score.Scorer
	Queue      TaskQueue
	Messages   *messages.Messages
	Players    PlayerIndex
	Refreshes  RefreshLog
	Ranks      RankSource
	EnableRank bool
	Provider   string
	Tracer     trace.TracerProvider
	Now        func() time.Time
}

type IngestService struct {
	normalizer *normalize.Normalizer
	store      *store.Store
	scorer     score.Scorer
	queue      TaskQueue
	messages   *messages.Messages
	players    PlayerIndex
	refreshes  RefreshLog
	ranks      RankSource
	enableRank bool
	provider   string
	tracer     trace.Tracer
	now        func() time.Time

	catalogueLocks *worker.KeyedMutex
	rankLocks      *worker.KeyedMutex

	logger zerolog.Logger
}

func NewIngestService(opts IngestOptions, logger zerolog.Logger) *IngestService {
	tp := opts.Tracer
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &IngestService{
		normalizer:     opts.Normalizer,
		store:          opts.Store,
		scorer:         opts.Scorer,
		queue:          opts.Queue,
		messages:       opts.Messages,
		players:        opts.Players,
		refreshes:      opts.Refreshes,
		ranks:          opts.Ranks,
		enableRank:     opts.EnableRank && opts.Ranks != nil,
		provider:       opts.Provider,
		tracer:         tp.Tracer(tracerName),
		now:            now,
		catalogueLocks: worker.NewKeyedMutex(),
		rankLocks:      worker.NewKeyedMutex(),
		logger:         logger,
	}
}

// Ingest persists and normalizes one snapshot, then hands the catalogue and
// ranking updates to the background queue. Records are on disk when it
// returns; the catalogue may not be yet.
func (s *IngestService) Ingest(ctx context.Context, uid string, raw []byte) (*IngestSummary, error) {
	ctx, span := s.tracer.Start(ctx, "IngestService.Ingest", trace.WithAttributes(attribute.String("uid", uid)))
	defer span.End()

	summary, err := s.ingest(ctx, uid, raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn().Err(err).Str("uid", uid).Msg("ingest failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("characters", len(summary.Characters)))
	return summary, nil
}

func (s *IngestService) ingest(ctx context.Context, uid string, raw []byte) (*IngestSummary, error) {
	if err := ValidateUID(uid); err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: invalid json", domain.ErrMalformedSnapshot)
	}
	doc := gjson.ParseBytes(raw)
	info := doc.Get("playerInfo")
	if !info.Exists() {
		return nil, domain.ErrUpstreamUnavailable
	}

	now := s.now()
	if err := s.store.SavePlayerInfo(uid, []byte(info.Raw)); err != nil {
		return nil, fmt.Errorf("save player info: %w", err)
	}
	if err := s.store.SaveRawSnapshot(uid, raw); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	records, err := s.normalizer.Normalize(ctx, uid, raw, now)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.ErrShowcaseClosed
	}

	names := make([]string, 0, len(records))
	for _, rec := range records {
		if err := s.store.SaveCharacter(uid, rec.AvatarEnName, rec); err != nil {
			return nil, fmt.Errorf("save %s: %w", rec.AvatarName, err)
		}
		names = append(names, rec.AvatarName)
	}

	nickname := info.Get("nickname").String()
	s.index(ctx, &domain.PlayerSummary{
		UID:            uid,
		Nickname:       nickname,
		Level:          int(info.Get("level").Int()),
		Signature:      info.Get("signature").String(),
		CharacterCount: len(records),
		LastFetchAt:    now,
	}, names)

	s.submit(worker.Task{Name: "catalogue", UID: uid, Run: func(ctx context.Context) error {
		return s.updateCatalogue(ctx, uid, records)
	}})
	if s.enableRank {
		s.submit(worker.Task{Name: "rank", UID: uid, Run: func(ctx context.Context) error {
			return s.mergeRank(ctx, uid, now)
		}})
	}

	s.logger.Info().Str("uid", uid).Strs("characters", names).Msg("snapshot ingested")
	return &IngestSummary{
		UID:        uid,
		Nickname:   nickname,
		Characters: names,
		Message:    s.messages.RefreshDone(s.messages.Language(ctx), uid, names),
	}, nil
}

// index records the refresh in SQLite. The flat files are authoritative, so
// failures are only logged.
func (s *IngestService) index(ctx context.Context, p *domain.PlayerSummary, names []string) {
	if s.players == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DatabaseTimeout)
	defer cancel()

	if err := s.players.Upsert(ctx, p); err != nil {
		s.logger.Error().Err(err).Str("uid", p.UID).Msg("failed to index player")
		return
	}
	if s.refreshes == nil {
		return
	}
	if err := s.refreshes.Insert(ctx, &domain.RefreshRecord{
		UID:        p.UID,
		Provider:   s.provider,
		Characters: names,
		CapturedAt: p.LastFetchAt,
	}); err != nil {
		s.logger.Error().Err(err).Str("uid", p.UID).Msg("failed to record refresh")
	}
}

func (s *IngestService) submit(t worker.Task) {
	if err := s.queue.Submit(t); err != nil {
		s.logger.Error().Err(err).Str("task", t.Name).Str("uid", t.UID).Msg("failed to schedule background task")
	}
}

// updateCatalogue folds every artifact of records into the player's
// catalogue under the player's lock.
func (s *IngestService) updateCatalogue(ctx context.Context, uid string, records []domain.CharacterRecord) error {
	_, span := s.tracer.Start(ctx, "IngestService.updateCatalogue", trace.WithAttributes(attribute.String("uid", uid)))
	defer span.End()

	unlock := s.catalogueLocks.Lock(uid)
	defer unlock()

	cat, err := s.store.LoadCatalogue(uid)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("load catalogue: %w", err)
	}
	removed := catalogue.Repair(cat)
	if removed > 0 {
		s.logger.Warn().Str("uid", uid).Int("removed", removed).Msg("repaired inconsistent catalogue")
	}

	added := 0
	for _, rec := range records {
		for _, piece := range rec.EquipList {
			scored, err := s.scorer.Score(piece, rec)
			if err != nil {
				s.logger.Warn().Err(err).Str("uid", uid).Int("avatar_id", rec.AvatarID).Int("item_id", piece.ItemID).Msg("failed to score artifact")
				scored = piece
			}
			if catalogue.Insert(cat, scored.ArtifactSlot, scored, rec.AvatarID) {
				added++
			}
		}
	}
	span.SetAttributes(attribute.Int("changes", added), attribute.Int("repaired", removed))
	if added == 0 && removed == 0 {
		return nil
	}

	if err := s.store.SaveCatalogue(uid, cat); err != nil {
		span.RecordError(err)
		return fmt.Errorf("save catalogue: %w", err)
	}
	s.logger.Debug().Str("uid", uid).Int("changes", added).Msg("catalogue updated")
	return nil
}

// mergeRank stores the latest calculations per character, keeping entries
// for characters the upstream no longer returns.
func (s *IngestService) mergeRank(ctx context.Context, uid string, capturedAt time.Time) error {
	ctx, span := s.tracer.Start(ctx, "IngestService.mergeRank", trace.WithAttributes(attribute.String("uid", uid)))
	defer span.End()

	calcs, err := s.ranks.RankCalculations(ctx, uid)
	if err != nil {
		span.RecordError(err)
		return err
	}

	unlock := s.rankLocks.Lock(uid)
	defer unlock()

	rank, err := s.store.LoadRank(uid)
	if err != nil {
		return fmt.Errorf("load rank: %w", err)
	}
	stamp := capturedAt.Format(domain.DataTimeLayout)
	for _, c := range calcs {
		rank[c.CharacterID] = domain.RankEntry{Calculations: c.Calculations, CapturedAt: stamp}
	}
	if err := s.store.SaveRank(uid, rank); err != nil {
		return fmt.Errorf("save rank: %w", err)
	}
	span.SetAttributes(attribute.Int("entries", len(calcs)))
	return nil
}

// Catalogue returns the player's stored artifact catalogue, empty when the
// player has none. It does not wait for a pending update.
func (s *IngestService) Catalogue(uid string) (*domain.Catalogue, error) {
	if err := ValidateUID(uid); err != nil {
		return nil, err
	}
	return s.store.LoadCatalogue(uid)
}

// Character returns a stored record by short name.
func (s *IngestService) Character(uid, shortName string) (domain.CharacterRecord, error) {
	if err := ValidateUID(uid); err != nil {
		return domain.CharacterRecord{}, err
	}
	return s.store.LoadCharacter(uid, shortName)
}
