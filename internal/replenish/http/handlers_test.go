package replenishhttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/replenix/replenix/internal/replenish"
)

type stubRunReader struct {
	runs     map[string]replenish.Run
	lines    []replenish.SupplierOrderLine
	findings []replenish.Finding
}

func (s *stubRunReader) GetRun(ctx context.Context, day time.Time) (replenish.Run, error) {
	run, ok := s.runs[day.Format("2006-01-02")]
	if !ok {
		return replenish.Run{}, replenish.ErrRunNotFound
	}
	return run, nil
}

func (s *stubRunReader) GetLatestRun(ctx context.Context) (replenish.Run, error) {
	var latest replenish.Run
	found := false
	for _, run := range s.runs {
		if !found || run.Day.After(latest.Day) {
			latest = run
			found = true
		}
	}
	if !found {
		return replenish.Run{}, replenish.ErrRunNotFound
	}
	return latest, nil
}

func (s *stubRunReader) ListOrderLines(ctx context.Context, day time.Time) ([]replenish.SupplierOrderLine, error) {
	return s.lines, nil
}

func (s *stubRunReader) ListFindings(ctx context.Context, day time.Time) ([]replenish.Finding, error) {
	return s.findings, nil
}

type stubEnqueuer struct {
	days []time.Time
}

func (s *stubEnqueuer) EnqueueDailyRun(ctx context.Context, day time.Time) error {
	s.days = append(s.days, day)
	return nil
}

func newTestRouter(runs *stubRunReader, enqueuer Enqueuer) http.Handler {
	handler := NewHandler(slog.Default(), runs, nil, enqueuer)
	r := chi.NewRouter()
	r.Route("/replenishment", handler.MountRoutes)
	return r
}

func seededReader() *stubRunReader {
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	return &stubRunReader{
		runs: map[string]replenish.Run{
			"2026-08-31": {ID: replenish.RunID(day), Day: day, ProductCount: 2, LineCount: 1},
		},
		lines: []replenish.SupplierOrderLine{
			{SupplierCode: "SUP001", SupplierName: "Fresh Foods Ltd", SKU: "SKU00001", ProductName: "Apples", NetDemand: 70, CaseSize: 12, OrderQuantity: 72},
		},
		findings: []replenish.Finding{
			{Severity: replenish.SeverityInfo, Code: replenish.FindingDemandSpike, SKU: "SKU00001", Message: "spike"},
		},
	}
}

func TestGetRun(t *testing.T) {
	router := newTestRouter(seededReader(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/replenishment/runs/2026-08-31", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var run replenish.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	require.Equal(t, 2, run.ProductCount)
}

func TestGetRunNotFound(t *testing.T) {
	router := newTestRouter(seededReader(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/replenishment/runs/2026-01-01", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRunRejectsBadDate(t *testing.T) {
	router := newTestRouter(seededReader(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/replenishment/runs/31-08-2026", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportOrdersCSV(t *testing.T) {
	router := newTestRouter(seededReader(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/replenishment/runs/2026-08-31/orders.csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "supplier_orders_20260831.csv")
	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "SUP001,Fresh Foods Ltd,SKU00001,Apples,70,12,72", lines[1])
}

func TestListFindings(t *testing.T) {
	router := newTestRouter(seededReader(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/replenishment/runs/2026-08-31/findings", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var findings []replenish.Finding
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &findings))
	require.Len(t, findings, 1)
	require.Equal(t, replenish.FindingDemandSpike, findings[0].Code)
}

func TestTriggerRun(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	router := newTestRouter(seededReader(), enqueuer)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/replenishment/runs", strings.NewReader(`{"date":"2026-08-31"}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, enqueuer.days, 1)
	require.Equal(t, "2026-08-31", enqueuer.days[0].Format("2006-01-02"))
}

func TestTriggerRunRejectsBadPayload(t *testing.T) {
	router := newTestRouter(seededReader(), &stubEnqueuer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/replenishment/runs", strings.NewReader(`{"date":"soon"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
