package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
)

// Selection: выбор пользователя в боковой панели. Пустой список означает «без фильтра».
type Selection struct {
	Faculties []string `json:"facultades" validate:"max=200,dive,max=256"`
	Programs  []string `json:"programas" validate:"max=500,dive,max=256"`
}

// Normalize обрезает пробелы, выкидывает пустые значения и повторы, сохраняя порядок.
func (s Selection) Normalize() Selection {
	return Selection{
		Faculties: normalizeValues(s.Faculties),
		Programs:  normalizeValues(s.Programs),
	}
}

// IsEmpty: ни одного фильтра не выбрано.
func (s Selection) IsEmpty() bool {
	return len(s.Faculties) == 0 && len(s.Programs) == 0
}

// Key: стабильный ключ выборки для кэша; порядок значений не влияет.
func (s Selection) Key() string {
	f := append([]string(nil), s.Faculties...)
	p := append([]string(nil), s.Programs...)
	sort.Strings(f)
	sort.Strings(p)

	h := sha1.New()
	h.Write([]byte(strings.Join(f, "\x1f")))
	h.Write([]byte{0x1e})
	h.Write([]byte(strings.Join(p, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))
}

func normalizeValues(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
