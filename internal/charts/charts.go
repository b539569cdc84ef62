// Package charts рисует три графика дашборда в SVG.
package charts

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

// Виды графиков в URL /charts/{kind}.svg
const (
	KindBox       = "box"
	KindHistogram = "histogram"
	KindBar       = "bar"
)

// Kinds: все поддерживаемые графики в порядке вывода на странице.
var Kinds = []string{KindBox, KindHistogram, KindBar}

// Подписи как на исходном дашборде.
const (
	titleBox       = "Distribución de Accesos por Facultad y Programa"
	titleHistogram = "Histograma de Accesos por Programa"
	titleBar       = "Total de Ingresos por Facultad (Sin Duplicados)"

	labelAccesses = "Accesos a Plataforma"
	labelTotal    = "Total de Accesos"
	labelFaculty  = "Facultad"
)

// palette: цвета по умолчанию, по кругу для каждой новой категории.
var palette = []drawing.Color{
	drawing.ColorFromHex("636EFA"),
	drawing.ColorFromHex("EF553B"),
	drawing.ColorFromHex("00CC96"),
	drawing.ColorFromHex("AB63FA"),
	drawing.ColorFromHex("FFA15A"),
	drawing.ColorFromHex("19D3F3"),
	drawing.ColorFromHex("FF6692"),
	drawing.ColorFromHex("B6E880"),
	drawing.ColorFromHex("FF97FF"),
	drawing.ColorFromHex("FECB52"),
}

func colorAt(i int) drawing.Color {
	return palette[i%len(palette)]
}

// Renderer хранит размеры холста. Безопасен для конкурентного использования.
type Renderer struct {
	width  int
	height int
}

func NewRenderer(width, height int) *Renderer {
	return &Renderer{width: width, height: height}
}

// ValidKind проверяет имя графика из URL.
func ValidKind(kind string) error {
	switch kind {
	case KindBox, KindHistogram, KindBar:
		return nil
	}
	return fmt.Errorf("%w: %q", domain.ErrUnknownChart, kind)
}

// Render пишет SVG графика kind для готового представления.
// Для пустой выборки возвращает domain.ErrNoData: вместо графиков показывается предупреждение.
// Если строки есть, а все значения доступов пустые, рисуются пустые оси.
func (r *Renderer) Render(w io.Writer, kind string, view domain.DashboardView) error {
	if err := ValidKind(kind); err != nil {
		return err
	}
	if view.Summary.Empty {
		return domain.ErrNoData
	}

	switch kind {
	case KindBox:
		if len(view.BoxPlot) == 0 {
			return r.emptyFrame(w, titleBox, categoryAxis(labelFaculty, facultyNames(view.FacultyTotals)), labelAccesses)
		}
		return r.BoxPlot(w, view.BoxPlot)
	case KindHistogram:
		if len(view.Histogram.Bins) == 0 {
			frame := chart.XAxis{Name: labelAccesses, Range: &chart.ContinuousRange{Min: 0, Max: 1}}
			return r.emptyFrame(w, titleHistogram, frame, "count")
		}
		return r.Histogram(w, view.Histogram)
	default:
		return r.FacultyBars(w, view.FacultyTotals)
	}
}

func facultyNames(totals []domain.FacultyTotal) []string {
	names := make([]string, len(totals))
	for i, t := range totals {
		names[i] = t.Faculty
	}
	return names
}

func (r *Renderer) base(title string) chart.Chart {
	return chart.Chart{
		Title:      title,
		Width:      r.width,
		Height:     r.height,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
	}
}

func (r *Renderer) write(w io.Writer, ch chart.Chart) error {
	if err := ch.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render %q: %w", ch.Title, err)
	}
	return nil
}

// pointStyle: только точки, без соединительной линии.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    3,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: 1.5,
		StrokeColor: col,
	}
}

func fillStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: 1,
		StrokeColor: col,
		FillColor:   col.WithAlpha(200),
	}
}

// legendFor строит легенду по отдельному набору серий: одна запись на категорию,
// сколько бы серий ни рисовалось для нее на самом графике.
func legendFor(names []string, colors []drawing.Color) chart.Renderable {
	series := make([]chart.Series, 0, len(names))
	for i, name := range names {
		series = append(series, chart.ContinuousSeries{
			Name:    name,
			Style:   lineStyle(colors[i]),
			XValues: []float64{0, 1},
			YValues: []float64{0, 0},
		})
	}
	return chart.Legend(&chart.Chart{Series: series})
}

// paddedRange расширяет [lo, hi] на долю pad, нулевую ширину раздвигает на ±1.
func paddedRange(lo, hi, pad float64) *chart.ContinuousRange {
	if hi <= lo {
		return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	d := (hi - lo) * pad
	return &chart.ContinuousRange{Min: lo - d, Max: hi + d}
}

// categoryAxis: подписи категорий в позициях 1..n. Крайние тики без подписи
// задают диапазон оси: при заданных Ticks go-chart берет его из тиков, а не из Range.
func categoryAxis(name string, labels []string) chart.XAxis {
	n := float64(len(labels))
	ticks := make([]chart.Tick, 0, len(labels)+2)
	ticks = append(ticks, chart.Tick{Value: 0.5})
	for i, label := range labels {
		ticks = append(ticks, chart.Tick{Value: float64(i + 1), Label: label})
	}
	ticks = append(ticks, chart.Tick{Value: n + 0.5})

	axis := chart.XAxis{Name: name, Ticks: ticks}
	if len(labels) > 6 {
		axis.Style = chart.Style{TextRotationDegrees: 45}
	}
	return axis
}

// emptyFrame рисует оси без данных: строки в выборке есть, но все ячейки доступов пустые.
func (r *Renderer) emptyFrame(w io.Writer, title string, xAxis chart.XAxis, yName string) error {
	ch := r.base(title)
	ch.XAxis = xAxis
	ch.YAxis = chart.YAxis{Name: yName, Range: &chart.ContinuousRange{Min: 0, Max: 1}}

	// без серий go-chart не рисует, поэтому одна невидимая точка
	x := 0.5
	if len(xAxis.Ticks) > 0 {
		x = xAxis.Ticks[0].Value
	}
	ch.Series = []chart.Series{chart.ContinuousSeries{
		Style:   chart.Style{StrokeWidth: chart.Disabled},
		XValues: []float64{x},
		YValues: []float64{0},
	}}
	return r.write(w, ch)
}
