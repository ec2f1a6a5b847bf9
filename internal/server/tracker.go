package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"mastery-tracker/internal/api"
	"mastery-tracker/internal/config"
	"mastery-tracker/internal/constants"
	"mastery-tracker/internal/domain"
	"mastery-tracker/internal/repository"
	"mastery-tracker/internal/throttle"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Aggregator is implemented by the live aggregation service and the mock.
type Aggregator interface {
	Account(ctx context.Context, ref domain.AccountRef) (*domain.AccountLookup, error)
	OverallMastery(ctx context.Context, accounts []domain.AccountRef) (*domain.OverallMasteryResult, error)
	ChampionMastery(ctx context.Context, req domain.ChampionMasteryRequest) (*domain.ChampionMasteryResult, error)
	Playtime(ctx context.Context, accounts []domain.AccountRef) (*domain.PlaytimeResult, error)
}

type TrackerServer struct {
	agg       Aggregator
	manual    *repository.ManualMasteryRepository
	status    *repository.StatusRepository
	queue     *throttle.Queue
	riot      *api.RiotClient
	mockMode  bool
	staticDir string
	startedAt time.Time
	logger    zerolog.Logger
}

func NewTrackerServer(
	agg Aggregator,
	manual *repository.ManualMasteryRepository,
	status *repository.StatusRepository,
	queue *throttle.Queue,
	riot *api.RiotClient,
	cfg *config.Config,
	logger zerolog.Logger,
) *TrackerServer {
	return &TrackerServer{
		agg:       agg,
		manual:    manual,
		status:    status,
		queue:     queue,
		riot:      riot,
		mockMode:  cfg.MockMode,
		staticDir: cfg.StaticDir,
		startedAt: time.Now().UTC(),
		logger:    logger,
	}
}

// Routes registers every endpoint on a new mux.
func (s *TrackerServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /api/app-meta", s.appMeta)
	mux.HandleFunc("GET /api/rate-limit", s.rateLimit)

	mux.HandleFunc("GET /api/account", s.account)
	mux.HandleFunc("POST /api/mastery/overall", s.overallMastery)
	mux.HandleFunc("POST /api/mastery", s.championMastery)
	mux.HandleFunc("POST /api/playtime/profile", s.playtime)

	mux.HandleFunc("GET /api/manual/totals", s.manualTotals)
	mux.HandleFunc("GET /api/manual/accounts", s.manualAccounts)
	mux.HandleFunc("GET /api/manual/records", s.manualRecords)
	mux.HandleFunc("PUT /api/manual/records", s.manualUpsert)
	mux.HandleFunc("DELETE /api/manual/records", s.manualRemove)
	mux.HandleFunc("GET /api/manual/status", s.manualStatus)

	if s.staticDir != "" {
		if info, err := os.Stat(s.staticDir); err == nil && info.IsDir() {
			mux.Handle("GET /", http.FileServer(http.Dir(s.staticDir)))
		} else {
			s.logger.Warn().Str("dir", s.staticDir).Msg("static directory not found, front end disabled")
		}
	}

	return mux
}

func (s *TrackerServer) health(w http.ResponseWriter, _ *http.Request) {
	status := "ok (live)"
	if s.mockMode {
		status = "ok (mock)"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *TrackerServer) appMeta(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"lastUpdatedIso": s.startedAt.Format(time.RFC3339),
	})
}

type rateLimitResponse struct {
	Queue    throttle.Stats    `json:"queue"`
	Upstream api.RateLimitInfo `json:"upstream"`
}

func (s *TrackerServer) rateLimit(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rateLimitResponse{
		Queue:    s.queue.Stats(),
		Upstream: s.riot.GetRateLimitInfo(),
	})
}

func (s *TrackerServer) account(w http.ResponseWriter, r *http.Request) {
	ref := domain.AccountRef{
		Name:   r.URL.Query().Get("name"),
		Region: r.URL.Query().Get("region"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.RequestTimeout)
	defer cancel()

	acc, err := s.agg.Account(ctx, ref)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *TrackerServer) overallMastery(w http.ResponseWriter, r *http.Request) {
	var req domain.AccountsRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.RequestTimeout)
	defer cancel()

	result, err := s.agg.OverallMastery(ctx, req.Accounts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *TrackerServer) championMastery(w http.ResponseWriter, r *http.Request) {
	var req domain.ChampionMasteryRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.RequestTimeout)
	defer cancel()

	result, err := s.agg.ChampionMastery(ctx, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *TrackerServer) playtime(w http.ResponseWriter, r *http.Request) {
	var req domain.AccountsRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.RequestTimeout)
	defer cancel()

	result, err := s.agg.Playtime(ctx, req.Accounts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *TrackerServer) manualTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := s.manual.TotalsByChampion(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"champions": totals})
}

func (s *TrackerServer) manualAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.manual.Accounts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *TrackerServer) manualRecords(w http.ResponseWriter, r *http.Request) {
	var (
		records []domain.ManualRecord
		err     error
	)
	if account := r.URL.Query().Get("account"); account != "" {
		records, err = s.manual.ListByAccount(r.Context(), account)
	} else {
		records, err = s.manual.All(r.Context())
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

type upsertRequest struct {
	Account  string  `json:"account"`
	Champion string  `json:"champion"`
	Mastery  float64 `json:"mastery"`
}

func (s *TrackerServer) manualUpsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if !s.decode(w, r, &req) {
		return
	}

	rec, err := s.manual.Upsert(r.Context(), req.Account, req.Champion, req.Mastery)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *TrackerServer) manualRemove(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	removed, err := s.manual.Remove(r.Context(), q.Get("account"), q.Get("champion"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "record not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func (s *TrackerServer) manualStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.status.Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *TrackerServer) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("rejecting request body")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return false
	}
	return true
}

// writeError maps the error taxonomy onto HTTP statuses. Validation errors
// are the client's fault; upstream errors only reach here from the single
// account lookup; anything else is internal and logged.
func (s *TrackerServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := zerolog.Ctx(r.Context())
	if log.GetLevel() == zerolog.Disabled {
		log = &s.logger
	}

	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: valErr.Error()})
		return
	}

	var upErr *api.UpstreamError
	if errors.As(err, &upErr) {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("upstream request failed")
		if upErr.StatusCode == http.StatusNotFound {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "account not found"})
			return
		}
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
