package charts

import (
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

// slotWidth: доля слота факультета, занятая ящиками его программ.
const slotWidth = 0.8

// BoxPlot рисует ящики с усами: по оси X факультеты, внутри факультета программы
// рядом друг с другом, цвет по программе. Слева от ящика все точки группы, на оси ящика выбросы.
func (r *Renderer) BoxPlot(w io.Writer, groups []domain.BoxGroup) error {
	if len(groups) == 0 {
		return domain.ErrNoData
	}

	faculties, byFaculty := groupByFaculty(groups)
	programs, programColor := programColors(groups)

	lo, hi := math.Inf(1), math.Inf(-1)
	var series []chart.Series

	for fi, faculty := range faculties {
		slot := float64(fi + 1)

		members := byFaculty[faculty]
		step := slotWidth / float64(len(members))
		half := step * 0.3

		for j, g := range members {
			x := slot - slotWidth/2 + step*(float64(j)+0.5)
			col := programColor[g.Program]

			series = append(series, chart.ContinuousSeries{
				Name:  g.Faculty + " / " + g.Program,
				Style: lineStyle(col),
				XValues: []float64{
					x, x, x - half, x - half, x, x, x, x + half, x + half, x - half, x + half, x + half, x,
				},
				YValues: []float64{
					g.LowerWhisker, g.Q1, g.Q1, g.Q3, g.Q3, g.UpperWhisker, g.Q3, g.Q3, g.Median, g.Median, g.Median, g.Q1, g.Q1,
				},
			})

			if len(g.Points) > 0 {
				xs := make([]float64, len(g.Points))
				ys := make([]float64, len(g.Points))
				for k, p := range g.Points {
					xs[k] = x - half*1.6
					ys[k] = p.Accesses
					lo, hi = math.Min(lo, p.Accesses), math.Max(hi, p.Accesses)
				}
				series = append(series, chart.ContinuousSeries{
					Name:    g.Program + " points",
					Style:   pointStyle(col.WithAlpha(140)),
					XValues: xs,
					YValues: ys,
				})
			}

			if len(g.Outliers) > 0 {
				xs := make([]float64, len(g.Outliers))
				for k := range xs {
					xs[k] = x
				}
				series = append(series, chart.ContinuousSeries{
					Name:    g.Program + " outliers",
					Style:   pointStyle(col),
					XValues: xs,
					YValues: g.Outliers,
				})
			}

			lo, hi = math.Min(lo, g.LowerWhisker), math.Max(hi, g.UpperWhisker)
		}
	}

	ch := r.base(titleBox)
	ch.XAxis = categoryAxis(labelFaculty, faculties)
	ch.YAxis = chart.YAxis{Name: labelAccesses, Range: paddedRange(lo, hi, 0.05)}
	ch.Series = series

	colors := make([]drawing.Color, len(programs))
	for i, p := range programs {
		colors[i] = programColor[p]
	}
	ch.Elements = []chart.Renderable{legendFor(programs, colors)}

	return r.write(w, ch)
}

// groupByFaculty сохраняет порядок групп (факультет, затем программа).
func groupByFaculty(groups []domain.BoxGroup) ([]string, map[string][]domain.BoxGroup) {
	var faculties []string
	byFaculty := make(map[string][]domain.BoxGroup)
	for _, g := range groups {
		if _, ok := byFaculty[g.Faculty]; !ok {
			faculties = append(faculties, g.Faculty)
		}
		byFaculty[g.Faculty] = append(byFaculty[g.Faculty], g)
	}
	return faculties, byFaculty
}

// programColors назначает цвет каждой программе в порядке первого появления.
func programColors(groups []domain.BoxGroup) ([]string, map[string]drawing.Color) {
	var programs []string
	colors := make(map[string]drawing.Color)
	for _, g := range groups {
		if _, ok := colors[g.Program]; ok {
			continue
		}
		colors[g.Program] = colorAt(len(programs))
		programs = append(programs, g.Program)
	}
	return programs, colors
}
