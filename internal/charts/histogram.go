package charts

import (
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

// Histogram рисует столбики, сложенные по программам. Каждая программа: ступенчатая
// серия с заливкой до оси; серии рисуются сверху вниз, чтобы нижний слой лег поверх.
func (r *Renderer) Histogram(w io.Writer, h domain.Histogram) error {
	if len(h.Bins) == 0 {
		return domain.ErrNoData
	}

	cumulative := make([]float64, len(h.Bins))
	layers := make([]chart.Series, 0, len(h.Programs))
	colors := make([]drawing.Color, len(h.Programs))
	maxTotal := 0

	for pi, program := range h.Programs {
		colors[pi] = colorAt(pi)

		xs := make([]float64, 0, 2*len(h.Bins)+2)
		ys := make([]float64, 0, 2*len(h.Bins)+2)
		xs = append(xs, h.Bins[0].Lower)
		ys = append(ys, 0)
		for bi, bin := range h.Bins {
			cumulative[bi] += float64(bin.Counts[program])
			xs = append(xs, bin.Lower, bin.Upper)
			ys = append(ys, cumulative[bi], cumulative[bi])
		}
		xs = append(xs, h.Bins[len(h.Bins)-1].Upper)
		ys = append(ys, 0)

		layers = append(layers, chart.ContinuousSeries{
			Name:    program,
			Style:   fillStyle(colors[pi]),
			XValues: xs,
			YValues: ys,
		})
	}
	for _, bin := range h.Bins {
		if bin.Total > maxTotal {
			maxTotal = bin.Total
		}
	}

	series := make([]chart.Series, 0, len(layers))
	for i := len(layers) - 1; i >= 0; i-- {
		series = append(series, layers[i])
	}

	ch := r.base(titleHistogram)
	ch.XAxis = chart.XAxis{
		Name:  labelAccesses,
		Range: &chart.ContinuousRange{Min: h.Bins[0].Lower, Max: h.Bins[len(h.Bins)-1].Upper},
	}
	ch.YAxis = chart.YAxis{
		Name:  "count",
		Range: &chart.ContinuousRange{Min: 0, Max: float64(maxTotal) * 1.1},
	}
	ch.Series = series
	ch.Elements = []chart.Renderable{legendFor(h.Programs, colors)}

	return r.write(w, ch)
}
