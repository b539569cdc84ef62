package analytics

import (
	"math"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

// DefaultBins: как nbins=20 в исходном дашборде.
const DefaultBins = 20

// Histogram раскладывает доступы по bins интервалам равной ширины между минимумом
// и максимумом выборки и считает записи каждой программы в каждом интервале.
// Программы перечислены в порядке первого появления.
func Histogram(view []domain.AccessRecord, bins int) domain.Histogram {
	if bins <= 0 {
		bins = DefaultBins
	}

	h := domain.Histogram{Programs: []string{}, Bins: []domain.HistogramBin{}}

	lo, hi := math.Inf(1), math.Inf(-1)
	seenProgram := make(map[string]struct{})
	for _, rec := range view {
		if !rec.HasAccesses {
			continue
		}
		lo = math.Min(lo, rec.Accesses)
		hi = math.Max(hi, rec.Accesses)
		if _, ok := seenProgram[rec.Program]; !ok {
			seenProgram[rec.Program] = struct{}{}
			h.Programs = append(h.Programs, rec.Program)
		}
	}
	if len(h.Programs) == 0 {
		return h
	}

	// Все значения одинаковые: один интервал единичной ширины вокруг значения.
	if lo == hi {
		bins = 1
		lo, hi = lo-0.5, hi+0.5
	}

	width := (hi - lo) / float64(bins)
	h.Bins = make([]domain.HistogramBin, bins)
	for i := range h.Bins {
		h.Bins[i] = domain.HistogramBin{
			Lower:  lo + float64(i)*width,
			Upper:  lo + float64(i+1)*width,
			Counts: make(map[string]int),
		}
	}
	h.Bins[bins-1].Upper = hi

	for _, rec := range view {
		if !rec.HasAccesses {
			continue
		}
		idx := int((rec.Accesses - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		h.Bins[idx].Counts[rec.Program]++
		h.Bins[idx].Total++
	}

	return h
}
