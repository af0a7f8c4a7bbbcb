package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/bidwatch/internal/application"
	"github.com/ericfisherdev/bidwatch/internal/domain/model"
	"github.com/ericfisherdev/bidwatch/internal/domain/port/driven"
)

const (
	defaultBidLimit = 50
	maxBidLimit     = 500

	// runIDHeader carries the scrape run id so request logs correlate with run logs.
	runIDHeader = "X-Bidwatch-Run-Id"
)

// Scraper triggers runs and reports scheduler state.
type Scraper interface {
	RunManual(ctx context.Context) (model.RunResult, error)
	Status() model.SchedulerStatus
}

// BidCounter reports how many bids were stored today.
type BidCounter interface {
	TodaysBidCount(ctx context.Context) int
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	scraper     Scraper
	counter     BidCounter
	bidStore    driven.BidStore
	credentials driven.CredentialStore
	logger      *slog.Logger
	now         func() time.Time
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	scraper Scraper,
	counter BidCounter,
	bidStore driven.BidStore,
	credentials driven.CredentialStore,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		scraper:     scraper,
		counter:     counter,
		bidStore:    bidStore,
		credentials: credentials,
		logger:      logger,
		now:         time.Now,
	}
}

// RegisterAPIRoutes registers all REST API routes on the given mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("POST /api/v1/scraper/run", h.RunScraper)
	mux.HandleFunc("GET /api/v1/scraper/status", h.ScraperStatus)
	mux.HandleFunc("GET /api/v1/bids", h.ListBids)
	mux.HandleFunc("GET /api/v1/bids/today", h.TodaysBids)
	mux.HandleFunc("GET /api/v1/credentials", h.ListCredentials)
	mux.HandleFunc("POST /api/v1/credentials", h.CreateCredential)
	mux.HandleFunc("PUT /api/v1/credentials/{id}", h.UpdateCredential)
	mux.HandleFunc("DELETE /api/v1/credentials/{id}", h.DeleteCredential)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	RegisterAPIRoutes(mux, h)
	return ApplyMiddleware(mux, logger)
}

// RunScraper runs the scraper synchronously and returns the run summary.
func (h *Handler) RunScraper(w http.ResponseWriter, r *http.Request) {
	result, err := h.scraper.RunManual(r.Context())
	if errors.Is(err, application.ErrAlreadyRunning) {
		writeError(w, http.StatusConflict, "scraper is already running")
		return
	}
	if err != nil {
		h.logger.Error("manual scrape failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if result.RunID != "" {
		w.Header().Set(runIDHeader, result.RunID)
	}
	writeJSON(w, http.StatusOK, toRunResultResponse(result))
}

// ScraperStatus reports whether a run is in flight and the schedule.
func (h *Handler) ScraperStatus(w http.ResponseWriter, _ *http.Request) {
	status := h.scraper.Status()
	writeJSON(w, http.StatusOK, StatusResponse{
		IsRunning: status.IsRunning,
		Schedule:  status.Schedule,
	})
}

// ListBids returns the most recently posted bids.
func (h *Handler) ListBids(w http.ResponseWriter, r *http.Request) {
	limit := defaultBidLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxBidLimit)
	}

	bids, err := h.bidStore.ListRecent(r.Context(), limit)
	if err != nil {
		if errors.Is(err, driven.ErrStoreUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "bid store unavailable")
			return
		}
		h.logger.Error("failed to list bids", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]BidResponse, 0, len(bids))
	for _, bid := range bids {
		resp = append(resp, toBidResponse(bid))
	}

	writeJSON(w, http.StatusOK, resp)
}

// TodaysBids returns the number of bids stored since local midnight.
func (h *Handler) TodaysBids(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TodayResponse{
		Count: h.counter.TodaysBidCount(r.Context()),
		Date:  h.now().Format(time.DateOnly),
	})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   h.now().UTC().Format(time.RFC3339),
	})
}
