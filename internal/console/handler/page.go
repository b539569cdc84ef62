package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/xela07ax/cintia-dashboard/internal/charts"
	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

//go:embed templates/index.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

const pageTitle = "Ingreso a Cintia"

type pageView struct {
	Title             string
	Options           domain.Options
	View              domain.DashboardView
	SelectedFaculties map[string]bool
	SelectedPrograms  map[string]bool
	Charts            []string
	Query             template.URL
}

// Page GET /: боковая панель с фильтрами, две метрики и три графика
// (или предупреждение, если выборка пустая).
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	data, err := h.service.Page(r.Context(), sel)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view := pageView{
		Title:             pageTitle,
		Options:           data.Options,
		View:              data.View,
		SelectedFaculties: toSet(sel.Faculties),
		SelectedPrograms:  toSet(sel.Programs),
		Charts:            charts.Kinds,
		Query:             template.URL(selectionQuery(sel)),
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		h.logger.Error("page render failed", zap.Error(err))
		renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
