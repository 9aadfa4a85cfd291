package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"showcase-tracker/internal/api"
	"showcase-tracker/internal/constants"
	"showcase-tracker/internal/domain"
	"showcase-tracker/internal/messages"
	"showcase-tracker/internal/middleware"
	"showcase-tracker/internal/repository"
	"showcase-tracker/internal/service"
	"showcase-tracker/internal/store"
	"showcase-tracker/internal/worker"

	"github.com/rs/zerolog"
)

type Ingester interface {
	Ingest(ctx context.Context, uid string, raw []byte) (*service.IngestSummary, error)
	Catalogue(uid string) (*domain.Catalogue, error)
	Character(uid, shortName string) (domain.CharacterRecord, error)
}

type Refresher interface {
	Provider() string
	Refresh(ctx context.Context, uid string, force bool) (*service.IngestSummary, error)
}

type PlayerReader interface {
	Get(ctx context.Context, uid string) (*domain.PlayerSummary, error)
}

type HistoryReader interface {
	ListByUID(ctx context.Context, uid string, limit int) ([]domain.RefreshRecord, error)
}

type StatsSource interface {
	Stats() worker.Stats
}

// TrackerServer serves the JSON API over the ingestion services.
type TrackerServer struct {
	ingest    Ingester
	refresh   Refresher
	players   PlayerReader
	refreshes HistoryReader
	pool      StatsSource
	messages  *messages.Messages
	logger    zerolog.Logger
}

func NewTrackerServer(
	ingest Ingester,
	refresh Refresher,
	players PlayerReader,
	refreshes HistoryReader,
	pool StatsSource,
	msgs *messages.Messages,
	logger zerolog.Logger,
) *TrackerServer {
	return &TrackerServer{
		ingest:    ingest,
		refresh:   refresh,
		players:   players,
		refreshes: refreshes,
		pool:      pool,
		messages:  msgs,
		logger:    logger,
	}
}

// Register mounts every route on mux.
func (s *TrackerServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.health)
	mux.HandleFunc("GET /v1/players/{uid}", s.getPlayer)
	mux.HandleFunc("POST /v1/players/{uid}/refresh", s.postRefresh)
	mux.HandleFunc("POST /v1/players/{uid}/snapshot", s.postSnapshot)
	mux.HandleFunc("GET /v1/players/{uid}/characters/{name}", s.getCharacter)
	mux.HandleFunc("GET /v1/players/{uid}/artifacts", s.getArtifacts)
}

func (s *TrackerServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"provider": s.refresh.Provider(),
		"workers":  s.pool.Stats(),
	})
}

type refreshView struct {
	ID         string    `json:"id"`
	Provider   string    `json:"provider"`
	Characters []string  `json:"characters"`
	CapturedAt time.Time `json:"captured_at"`
}

type playerView struct {
	UID            string        `json:"uid"`
	Nickname       string        `json:"nickname"`
	Level          int           `json:"level"`
	Signature      string        `json:"signature"`
	CharacterCount int           `json:"character_count"`
	LastFetchAt    time.Time     `json:"last_fetch_at"`
	Refreshes      []refreshView `json:"refreshes"`
}

func (s *TrackerServer) getPlayer(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")
	if err := service.ValidateUID(uid); err != nil {
		s.fail(w, r, uid, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	p, err := s.players.Get(ctx, uid)
	if err != nil {
		s.fail(w, r, uid, err)
		return
	}
	history, err := s.refreshes.ListByUID(ctx, uid, constants.RefreshHistoryLimit)
	if err != nil {
		s.fail(w, r, uid, err)
		return
	}

	view := playerView{
		UID:            p.UID,
		Nickname:       p.Nickname,
		Level:          p.Level,
		Signature:      p.Signature,
		CharacterCount: p.CharacterCount,
		LastFetchAt:    p.LastFetchAt,
		Refreshes:      make([]refreshView, 0, len(history)),
	}
	for _, h := range history {
		view.Refreshes = append(view.Refreshes, refreshView{
			ID:         h.ID,
			Provider:   h.Provider,
			Characters: h.Characters,
			CapturedAt: h.CapturedAt,
		})
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *TrackerServer) postRefresh(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	summary, err := s.refresh.Refresh(r.Context(), uid, force)
	if err != nil {
		s.fail(w, r, uid, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *TrackerServer) postSnapshot(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, constants.MaxSnapshotBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, s.messages.ForError(s.messages.Language(r.Context()), uid, s.refresh.Provider(), err))
			return
		}
		s.fail(w, r, uid, err)
		return
	}

	summary, err := s.ingest.Ingest(r.Context(), uid, raw)
	if err != nil {
		s.fail(w, r, uid, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *TrackerServer) getCharacter(w http.ResponseWriter, r *http.Request) {
	uid, name := r.PathValue("uid"), r.PathValue("name")

	rec, err := s.ingest.Character(uid, name)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, r, http.StatusNotFound, s.messages.NotFound(s.messages.Language(r.Context()), uid, name))
		return
	}
	if err != nil {
		s.fail(w, r, uid, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type slotView struct {
	Slot   domain.Slot       `json:"slot"`
	Data   []domain.Artifact `json:"data"`
	Owners [][]int           `json:"tag"`
}

func (s *TrackerServer) getArtifacts(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")

	cat, err := s.ingest.Catalogue(uid)
	if err != nil {
		s.fail(w, r, uid, err)
		return
	}

	slot := domain.Slot(r.URL.Query().Get("slot"))
	if slot == "" {
		writeJSON(w, http.StatusOK, cat)
		return
	}
	if !slot.Valid() {
		s.writeError(w, r, http.StatusBadRequest, s.messages.NotFound(s.messages.Language(r.Context()), uid, string(slot)))
		return
	}
	view := slotView{Slot: slot, Data: cat.Data[slot], Owners: cat.Tag[slot]}
	if view.Data == nil {
		view.Data = []domain.Artifact{}
		view.Owners = [][]int{}
	}
	writeJSON(w, http.StatusOK, view)
}

// fail answers err with its localized message and a status derived from the
// error taxonomy.
func (s *TrackerServer) fail(w http.ResponseWriter, r *http.Request, uid string, err error) {
	tag := s.messages.Language(r.Context())
	status := statusFor(err)
	if status == http.StatusNotFound {
		s.writeError(w, r, status, s.messages.NotFound(tag, uid, "player"))
		return
	}
	s.writeError(w, r, status, s.messages.ForError(tag, uid, s.refresh.Provider(), err))
	if status >= http.StatusInternalServerError {
		s.logger.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("uid", uid).
			Int("status", status).
			Msg("request failed")
	}
}

func statusFor(err error) int {
	var (
		unknown   *domain.UnknownIDError
		statusErr *api.StatusError
	)
	switch {
	case errors.Is(err, domain.ErrInvalidUID), errors.Is(err, domain.ErrMalformedSnapshot):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrShowcaseClosed), errors.As(err, &unknown):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrTransientNetwork):
		return http.StatusGatewayTimeout
	case errors.As(err, &statusErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *TrackerServer) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	zerolog.Ctx(r.Context()).Debug().Int("status", status).Str("error", msg).Msg("writing error response")
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
