package domain

import (
	"encoding/json"
	"time"
)

// Названия колонок исходной таблицы. Регистр и пробелы в заголовке не важны.
const (
	ColumnUserID   = "idusuario"
	ColumnFaculty  = "facultad"
	ColumnProgram  = "programa"
	ColumnAccesses = "accesos_plataforma"
)

// RequiredColumns: без любой из них загрузка падает сразу (fail fast).
var RequiredColumns = []string{ColumnFaculty, ColumnProgram, ColumnUserID, ColumnAccesses}

// AccessRecord это одна строка выгрузки, доступы профессора к платформе в рамках программы.
type AccessRecord struct {
	UserID   string  `json:"idusuario"`
	Faculty  string  `json:"facultad"`
	Program  string  `json:"programa"`
	Accesses float64 `json:"accesos_plataforma"`

	// HasAccesses == false, если ячейка была пустой (аналог NaN).
	HasAccesses bool `json:"-"`
}

type accessRecordJSON struct {
	UserID   string   `json:"idusuario"`
	Faculty  string   `json:"facultad"`
	Program  string   `json:"programa"`
	Accesses *float64 `json:"accesos_plataforma"`
}

// MarshalJSON отдает пустую ячейку как null, а не 0.
func (r AccessRecord) MarshalJSON() ([]byte, error) {
	out := accessRecordJSON{UserID: r.UserID, Faculty: r.Faculty, Program: r.Program}
	if r.HasAccesses {
		v := r.Accesses
		out.Accesses = &v
	}
	return json.Marshal(out)
}

func (r *AccessRecord) UnmarshalJSON(data []byte) error {
	var in accessRecordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = AccessRecord{UserID: in.UserID, Faculty: in.Faculty, Program: in.Program}
	if in.Accesses != nil {
		r.Accesses = *in.Accesses
		r.HasAccesses = true
	}
	return nil
}

// Snapshot: неизменяемый набор записей, загруженный из источника.
// Store подменяет снапшот целиком, записи внутри никогда не мутируются.
type Snapshot struct {
	Version  string         `json:"version"`
	Source   string         `json:"source"`
	LoadedAt time.Time      `json:"loaded_at"`
	Records  []AccessRecord `json:"-"`
}

// Len безопасен для nil.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}
