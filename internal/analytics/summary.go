// Package analytics считает метрики и данные для графиков по уже отфильтрованной выборке.
package analytics

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

// Summarize считает средний доступ (пустые ячейки пропускаются) и число уникальных профессоров.
func Summarize(view []domain.AccessRecord) domain.Summary {
	var (
		sum    float64
		values int
	)
	professors := make(map[string]struct{}, len(view))
	for _, rec := range view {
		professors[rec.UserID] = struct{}{}
		if rec.HasAccesses {
			sum += rec.Accesses
			values++
		}
	}

	s := domain.Summary{
		Professors: len(professors),
		Records:    len(view),
		Empty:      len(view) == 0,
	}

	s.MeanAccessText = "nan"
	if values > 0 {
		s.MeanAccess = sum / float64(values)
		s.MeanAccessText = FormatCount(s.MeanAccess)
	}
	s.ProfessorsText = FormatCount(float64(s.Professors))

	return s
}

// FormatCount печатает число с разделителем тысяч и без дробной части: 12345.6 -> "12,346".
func FormatCount(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return message.NewPrinter(language.English).Sprintf("%.0f", v)
}
