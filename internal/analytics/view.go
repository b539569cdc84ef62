package analytics

import (
	"github.com/xela07ax/cintia-dashboard/internal/domain"
	"github.com/xela07ax/cintia-dashboard/internal/filter"
)

// BuildView фильтрует снапшот и собирает все данные дашборда для выборки.
// При пустом результате графики не строятся, вместо них: предупреждение.
func BuildView(snap *domain.Snapshot, sel domain.Selection, bins int) domain.DashboardView {
	var records []domain.AccessRecord
	v := domain.DashboardView{Selection: sel}
	if snap != nil {
		records = snap.Records
		v.DatasetVersion = snap.Version
	}

	filtered := filter.ApplySelection(records, sel)
	v.Summary = Summarize(filtered)

	if v.Summary.Empty {
		v.Warning = domain.EmptyWarning
		v.BoxPlot = []domain.BoxGroup{}
		v.Histogram = domain.Histogram{Programs: []string{}, Bins: []domain.HistogramBin{}}
		v.FacultyTotals = []domain.FacultyTotal{}
		return v
	}

	v.BoxPlot = BoxPlot(filtered)
	v.Histogram = Histogram(filtered, bins)
	v.FacultyTotals = FacultyTotals(filtered)
	return v
}
