package charts

import (
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/xela07ax/cintia-dashboard/internal/analytics"
	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

const barHalfWidth = 0.35

// FacultyBars рисует сумму доступов по факультетам: свой цвет у каждого факультета,
// над столбиком подпись со значением.
func (r *Renderer) FacultyBars(w io.Writer, totals []domain.FacultyTotal) error {
	if len(totals) == 0 {
		return domain.ErrNoData
	}

	names := make([]string, len(totals))
	colors := make([]drawing.Color, len(totals))
	labels := make([]chart.Value2, 0, len(totals))
	series := make([]chart.Series, 0, len(totals)+1)
	maxValue := 0.0

	for i, t := range totals {
		x := float64(i + 1)
		names[i] = t.Faculty
		colors[i] = colorAt(i)
		if t.Accesses > maxValue {
			maxValue = t.Accesses
		}

		series = append(series, chart.ContinuousSeries{
			Name:    t.Faculty,
			Style:   fillStyle(colors[i]),
			XValues: []float64{x - barHalfWidth, x - barHalfWidth, x + barHalfWidth, x + barHalfWidth},
			YValues: []float64{0, t.Accesses, t.Accesses, 0},
		})
		labels = append(labels, chart.Value2{
			XValue: x,
			YValue: t.Accesses,
			Label:  analytics.FormatCount(t.Accesses),
		})
	}
	series = append(series, chart.AnnotationSeries{Annotations: labels})

	top := maxValue * 1.15
	if top <= 0 {
		top = 1
	}

	ch := r.base(titleBar)
	ch.XAxis = categoryAxis(labelFaculty, names)
	ch.YAxis = chart.YAxis{
		Name:  labelTotal,
		Range: &chart.ContinuousRange{Min: 0, Max: top},
	}
	ch.Series = series
	ch.Elements = []chart.Renderable{legendFor(names, colors)}

	return r.write(w, ch)
}
