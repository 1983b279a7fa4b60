package replenishhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/replenix/replenix/internal/platform/httpx"
	"github.com/replenix/replenix/internal/replenish"
)

// RunReader exposes persisted run lookups used by the handler.
type RunReader interface {
	GetRun(ctx context.Context, day time.Time) (replenish.Run, error)
	GetLatestRun(ctx context.Context) (replenish.Run, error)
	ListOrderLines(ctx context.Context, day time.Time) ([]replenish.SupplierOrderLine, error)
	ListFindings(ctx context.Context, day time.Time) ([]replenish.Finding, error)
}

// SummaryCache is the optional read-through cache for run summaries.
type SummaryCache interface {
	GetSummary(ctx context.Context, day time.Time) (replenish.Run, bool, error)
	LatestSummary(ctx context.Context) (replenish.Run, bool, error)
}

// Enqueuer triggers a pipeline run through the job queue.
type Enqueuer interface {
	EnqueueDailyRun(ctx context.Context, day time.Time) error
}

// Handler serves the read-only replenishment ops endpoints.
type Handler struct {
	logger   *slog.Logger
	runs     RunReader
	cache    SummaryCache
	enqueuer Enqueuer
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, runs RunReader, cache SummaryCache, enqueuer Enqueuer) *Handler {
	return &Handler{
		logger:   logger,
		runs:     runs,
		cache:    cache,
		enqueuer: enqueuer,
		validate: validator.New(),
	}
}

// MountRoutes registers replenishment routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/runs/latest", h.latestRun)
	r.Get("/runs/{date}", h.getRun)
	r.Get("/runs/{date}/orders.csv", h.exportOrders)
	r.Get("/runs/{date}/findings", h.listFindings)
	r.Post("/runs", h.triggerRun)
}

type dateParam struct {
	Date string `validate:"required,datetime=2006-01-02"`
}

func (h *Handler) parseDay(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	param := dateParam{Date: chi.URLParam(r, "date")}
	if err := h.validate.Struct(param); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid date, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	day, err := time.ParseInLocation("2006-01-02", param.Date, time.UTC)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid date, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return day, true
}

func (h *Handler) latestRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.cache != nil {
		if run, ok, err := h.cache.LatestSummary(ctx); err == nil && ok {
			httpx.JSON(w, http.StatusOK, run)
			return
		}
	}
	run, err := h.runs.GetLatestRun(ctx)
	if err != nil {
		h.writeRunError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, run)
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	day, ok := h.parseDay(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if h.cache != nil {
		if run, hit, err := h.cache.GetSummary(ctx, day); err == nil && hit {
			httpx.JSON(w, http.StatusOK, run)
			return
		}
	}
	run, err := h.runs.GetRun(ctx, day)
	if err != nil {
		h.writeRunError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, run)
}

func (h *Handler) exportOrders(w http.ResponseWriter, r *http.Request) {
	day, ok := h.parseDay(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if _, err := h.runs.GetRun(ctx, day); err != nil {
		h.writeRunError(w, err)
		return
	}
	lines, err := h.runs.ListOrderLines(ctx, day)
	if err != nil {
		h.writeRunError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+replenish.ArtifactName(day)+`"`)
	if err := replenish.WriteOrdersCSV(w, lines); err != nil {
		h.logger.Error("stream orders csv", slog.Any("error", err))
	}
}

func (h *Handler) listFindings(w http.ResponseWriter, r *http.Request) {
	day, ok := h.parseDay(w, r)
	if !ok {
		return
	}
	findings, err := h.runs.ListFindings(r.Context(), day)
	if err != nil {
		h.writeRunError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, findings)
}

type triggerRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) triggerRun(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusNotImplemented, "Not Implemented", "job queue not configured")
		return
	}
	var req triggerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid date, expected YYYY-MM-DD")
		return
	}
	day, _ := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
	if err := h.enqueuer.EnqueueDailyRun(r.Context(), day); err != nil {
		h.logger.Error("enqueue daily run", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "enqueued", "date": req.Date})
}

func (h *Handler) writeRunError(w http.ResponseWriter, err error) {
	if errors.Is(err, replenish.ErrRunNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no run recorded for the requested day")
		return
	}
	h.logger.Error("replenishment lookup", slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
