// Package filter реализует выборку записей по факультетам и программам.
// Все функции чистые: принимают упорядоченный срез и возвращают новый,
// исходные данные не меняются.
package filter

import (
	"sort"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

// Apply оставляет записи выбранных факультетов и программ (пустой выбор: без фильтра)
// и удаляет повторы пары (idusuario, programa), сохраняя первое вхождение.
func Apply(records []domain.AccessRecord, faculties, programs []string) []domain.AccessRecord {
	facultySet := toSet(faculties)
	programSet := toSet(programs)

	type pair struct{ user, program string }
	seen := make(map[pair]struct{}, len(records))

	out := make([]domain.AccessRecord, 0, len(records))
	for _, rec := range records {
		if facultySet != nil {
			if _, ok := facultySet[rec.Faculty]; !ok {
				continue
			}
		}
		if programSet != nil {
			if _, ok := programSet[rec.Program]; !ok {
				continue
			}
		}

		key := pair{rec.UserID, rec.Program}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// ApplySelection: то же, что Apply, для domain.Selection.
func ApplySelection(records []domain.AccessRecord, sel domain.Selection) []domain.AccessRecord {
	return Apply(records, sel.Faculties, sel.Programs)
}

// UniqueByFaculty удаляет повторы пары (idusuario, facultad). Используется для
// столбчатой диаграммы, чтобы профессор нескольких программ не считался дважды.
func UniqueByFaculty(records []domain.AccessRecord) []domain.AccessRecord {
	type pair struct{ user, faculty string }
	seen := make(map[pair]struct{}, len(records))

	out := make([]domain.AccessRecord, 0, len(records))
	for _, rec := range records {
		key := pair{rec.UserID, rec.Faculty}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// Faculties возвращает отсортированный список факультетов.
func Faculties(records []domain.AccessRecord) []string {
	return distinct(records, func(r domain.AccessRecord) string { return r.Faculty })
}

// Programs возвращает отсортированный список программ. Если факультеты выбраны,
// в список попадают только их программы.
func Programs(records []domain.AccessRecord, faculties []string) []string {
	if len(faculties) == 0 {
		return distinct(records, func(r domain.AccessRecord) string { return r.Program })
	}
	return distinct(Apply(records, faculties, nil), func(r domain.AccessRecord) string { return r.Program })
}

func distinct(records []domain.AccessRecord, field func(domain.AccessRecord) string) []string {
	set := make(map[string]struct{})
	for _, rec := range records {
		set[field(rec)] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
