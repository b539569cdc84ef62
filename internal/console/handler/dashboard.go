package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/xela07ax/cintia-dashboard/internal/charts"
	"github.com/xela07ax/cintia-dashboard/internal/console/service"
	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

// DashboardService Описываем, что нам нужно от сервиса
type DashboardService interface {
	Options(ctx context.Context, sel domain.Selection) (domain.Options, error)
	View(ctx context.Context, sel domain.Selection) (domain.DashboardView, error)
	Page(ctx context.Context, sel domain.Selection) (service.PageData, error)
	Records(ctx context.Context, sel domain.Selection) ([]domain.AccessRecord, string, error)
	Chart(ctx context.Context, w io.Writer, kind string, sel domain.Selection) error
	Reload(ctx context.Context) (*domain.Snapshot, error)
}

type DashboardHandler struct {
	service DashboardService
	logger  *zap.Logger
}

func NewDashboardHandler(s DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{service: s, logger: logger.Named("dashboard-handler")}
}

// RecordsResponse: отфильтрованные записи и версия данных, из которой они взяты.
type RecordsResponse struct {
	DatasetVersion string                `json:"dataset_version"`
	Count          int                   `json:"count"`
	Records        []domain.AccessRecord `json:"records"`
}

// GetOptions GET /api/v1/options
func (h *DashboardHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	opts, err := h.service.Options(r.Context(), sel)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, opts)
}

// GetDashboard GET /api/v1/dashboard: пустая выборка не ошибка: 200 и warning.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	view, err := h.service.View(r.Context(), sel)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// GetRecords GET /api/v1/records
func (h *DashboardHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	records, version, err := h.service.Records(r.Context(), sel)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, RecordsResponse{DatasetVersion: version, Count: len(records), Records: records})
}

// GetChart GET /charts/{kind}.svg
func (h *DashboardHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	kind := strings.TrimSuffix(chi.URLParam(r, "kind"), ".svg")
	if err := charts.ValidKind(kind); err != nil {
		renderError(w, r, err)
		return
	}
	sel, err := parseSelection(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	// Рендерим в буфер: при ошибке заголовки еще не отправлены
	var buf bytes.Buffer
	if err := h.service.Chart(r.Context(), &buf, kind, sel); err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(buf.Bytes())
}

// Reload POST /api/v1/dataset/reload
func (h *DashboardHandler) Reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Reload(r.Context())
	if err != nil {
		h.logger.Error("manual reload failed", zap.Error(err))
		apiErr := NewAPIError(http.StatusBadGateway, "RELOAD_FAILED", "dataset reload failed, previous data is still served")
		apiErr.Details = err.Error()
		renderError(w, r, apiErr)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"version":   snap.Version,
		"source":    snap.Source,
		"loaded_at": snap.LoadedAt,
		"records":   snap.Len(),
	})
}

func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	renderError(w, r, apiErr)
}
