package analytics

import (
	"math"
	"sort"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

// WhiskerCoef: усы до 1.5 межквартильных размаха, как у plotly и matplotlib.
const WhiskerCoef = 1.5

// BoxPlot строит статистику ящиков по парам (факультет, программа).
// Группы упорядочены по факультету, затем по программе.
func BoxPlot(view []domain.AccessRecord) []domain.BoxGroup {
	type key struct{ faculty, program string }

	groups := make(map[key]*domain.BoxGroup)
	var order []key

	for _, rec := range view {
		if !rec.HasAccesses {
			continue
		}
		k := key{rec.Faculty, rec.Program}
		g, ok := groups[k]
		if !ok {
			g = &domain.BoxGroup{Faculty: rec.Faculty, Program: rec.Program}
			groups[k] = g
			order = append(order, k)
		}
		g.Points = append(g.Points, domain.BoxPoint{UserID: rec.UserID, Accesses: rec.Accesses})
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].faculty != order[j].faculty {
			return order[i].faculty < order[j].faculty
		}
		return order[i].program < order[j].program
	})

	out := make([]domain.BoxGroup, 0, len(order))
	for _, k := range order {
		g := groups[k]
		fillBoxStats(g)
		out = append(out, *g)
	}
	return out
}

func fillBoxStats(g *domain.BoxGroup) {
	values := make([]float64, len(g.Points))
	for i, p := range g.Points {
		values[i] = p.Accesses
	}
	sort.Float64s(values)

	g.Count = len(values)
	g.Q1 = Quantile(values, 0.25)
	g.Median = Quantile(values, 0.5)
	g.Q3 = Quantile(values, 0.75)

	iqr := g.Q3 - g.Q1
	lowFence := g.Q1 - WhiskerCoef*iqr
	highFence := g.Q3 + WhiskerCoef*iqr

	g.LowerWhisker = g.Q1
	g.UpperWhisker = g.Q3
	g.Outliers = []float64{}
	for _, v := range values {
		if v < lowFence || v > highFence {
			g.Outliers = append(g.Outliers, v)
			continue
		}
		g.LowerWhisker = math.Min(g.LowerWhisker, v)
		g.UpperWhisker = math.Max(g.UpperWhisker, v)
	}
}

// Quantile: линейная интерполяция между соседними порядковыми статистиками
// (метод по умолчанию в numpy). sorted должен быть отсортирован по возрастанию.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return math.NaN()
	case n == 1:
		return sorted[0]
	}

	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
