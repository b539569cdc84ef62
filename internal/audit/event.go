package audit

import "time"

// ViewEvent описывает один просмотр дашборда: кто, с какими фильтрами и что получил.
type ViewEvent struct {
	ID             string   `json:"id"`       // UUID события
	TraceID        string   `json:"trace_id"` // Сквозной ID запроса
	Endpoint       string   `json:"endpoint"` // page, dashboard, records, chart:box ...
	Faculties      []string `json:"facultades"`
	Programs       []string `json:"programas"`
	DatasetVersion string   `json:"dataset_version"`

	// Результат
	Records    int       `json:"records"`
	Professors int       `json:"professors"`
	Empty      bool      `json:"empty"` // показано предупреждение вместо графиков
	CacheHit   bool      `json:"cache_hit"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"` // Время обработки
	Error      string    `json:"error,omitempty"`
}
