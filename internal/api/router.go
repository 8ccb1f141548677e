// internal/api/router.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/aave-liquidator/internal/blockchain/rpc"
	"github.com/rovshanmuradov/aave-liquidator/internal/domain"
	"github.com/rovshanmuradov/aave-liquidator/internal/enrich"
	"github.com/rovshanmuradov/aave-liquidator/internal/events"
	"github.com/rovshanmuradov/aave-liquidator/internal/feed"
	"github.com/rovshanmuradov/aave-liquidator/internal/reserves"
	"github.com/rovshanmuradov/aave-liquidator/internal/scout"
)

// Scout is the pipeline surface the HTTP API exposes.
type Scout interface {
	GetCandidates(ctx context.Context) ([]domain.Candidate, error)
	RefreshCandidates(ctx context.Context) ([]domain.Candidate, error)
	LiquidationData(ctx context.Context, holder common.Address) (domain.LiquidationData, error)
	Liquidate(ctx context.Context, holder common.Address) (common.Hash, error)
}

// Subscriber is the part of the event bus the API listens on.
type Subscriber interface {
	Subscribe(eventType events.EventType, handler events.Handler) events.Subscription
}

type Config struct {
	Scout    Scout
	Events   Subscriber
	Reserves reserves.Table
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

type handlers struct {
	scout    Scout
	reserves reserves.Table
	latest   *latestList
	logger   *zap.Logger
}

// New builds the HTTP handler. When Events is set the latest delivered list is
// kept for GET /candidates/latest.
func New(cfg Config) (http.Handler, error) {
	if cfg.Scout == nil {
		return nil, errors.New("api: nil scout")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	table := cfg.Reserves
	if table == nil {
		table = reserves.Mainnet
	}

	h := &handlers{
		scout:    cfg.Scout,
		reserves: table,
		latest:   &latestList{},
		logger:   logger.Named("api"),
	}
	if cfg.Events != nil {
		cfg.Events.Subscribe(events.CandidatesReturned, h.latest)
		cfg.Events.Subscribe(events.RefreshReturned, h.latest)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/candidates", func(sr chi.Router) {
		sr.Get("/", h.getCandidates)
		sr.Post("/refresh", h.refreshCandidates)
		sr.Get("/latest", h.latestCandidates)
	})
	r.Get("/positions/{address}", h.position)
	r.Post("/positions/{address}/liquidate", h.liquidate)

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	return r, nil
}

func (h *handlers) getCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.scout.GetCandidates(r.Context())
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCandidatesResponse(h.reserves, candidates))
}

func (h *handlers) refreshCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.scout.RefreshCandidates(r.Context())
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCandidatesResponse(h.reserves, candidates))
}

func (h *handlers) latestCandidates(w http.ResponseWriter, _ *http.Request) {
	snap, ok := h.latest.get()
	if !ok {
		writeJSONError(w, http.StatusNotFound, errors.New("no candidate list delivered yet"))
		return
	}
	resp := newCandidatesResponse(h.reserves, snap.candidates)
	resp.CycleID = snap.cycleID
	resp.Trigger = string(snap.trigger)
	resp.UpdatedAt = snap.updatedAt.UTC().Format(time.RFC3339)
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) position(w http.ResponseWriter, r *http.Request) {
	holder, ok := holderParam(w, r)
	if !ok {
		return
	}
	data, err := h.scout.LiquidationData(r.Context(), holder)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPositionResponse(h.reserves, data))
}

func (h *handlers) liquidate(w http.ResponseWriter, r *http.Request) {
	holder, ok := holderParam(w, r)
	if !ok {
		return
	}
	hash, err := h.scout.Liquidate(r.Context(), holder)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, liquidationResponse{Holder: holder.Hex(), TxHash: hash.Hex()})
}

func holderParam(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "address"))
	if !common.IsHexAddress(raw) {
		writeJSONError(w, http.StatusBadRequest, fmt.Errorf("invalid holder address %q", raw))
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func (h *handlers) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		h.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", recorder.status),
			zap.Duration("duration", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// writePipelineError maps upstream failures (listing feed, chain calls) to 502.
func writePipelineError(w http.ResponseWriter, err error) {
	var rpcErr *rpc.Error
	switch {
	case errors.Is(err, scout.ErrLiquidationDisabled):
		writeJSONError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, feed.ErrFetch), errors.Is(err, enrich.ErrEnrichment), errors.As(err, &rpcErr):
		writeJSONError(w, http.StatusBadGateway, err)
	default:
		writeJSONError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = http.StatusText(status)
	}
	payload, _ := json.Marshal(map[string]string{"error": message})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
