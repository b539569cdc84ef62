package analytics

import (
	"sort"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
	"github.com/xela07ax/cintia-dashboard/internal/filter"
)

// FacultyTotals суммирует доступы по факультетам после удаления дублей
// (idusuario, facultad). Пустые ячейки считаются нулем.
func FacultyTotals(view []domain.AccessRecord) []domain.FacultyTotal {
	sums := make(map[string]float64)
	for _, rec := range filter.UniqueByFaculty(view) {
		total := sums[rec.Faculty]
		if rec.HasAccesses {
			total += rec.Accesses
		}
		sums[rec.Faculty] = total
	}

	out := make([]domain.FacultyTotal, 0, len(sums))
	for faculty, total := range sums {
		out = append(out, domain.FacultyTotal{Faculty: faculty, Accesses: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Faculty < out[j].Faculty })
	return out
}
