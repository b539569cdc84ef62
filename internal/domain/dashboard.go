package domain

// EmptyWarning показывается вместо графиков, когда фильтр ничего не вернул.
const EmptyWarning = "No hay datos para los filtros seleccionados."

// Summary: две метрики шапки дашборда.
type Summary struct {
	MeanAccess float64 `json:"ingreso_medio"`
	Professors int     `json:"profesores"`
	Records    int     `json:"registros"`
	Empty      bool    `json:"empty"`

	// Отформатированные значения, как их видит пользователь ("1,234").
	MeanAccessText string `json:"ingreso_medio_text"`
	ProfessorsText string `json:"profesores_text"`
}

// BoxPoint: точка поверх ящика (points='all'), с ID профессора для подсказки.
type BoxPoint struct {
	UserID   string  `json:"idusuario"`
	Accesses float64 `json:"accesos_plataforma"`
}

// BoxGroup: статистика ящика с усами для пары (факультет, программа).
type BoxGroup struct {
	Faculty      string     `json:"facultad"`
	Program      string     `json:"programa"`
	Count        int        `json:"count"`
	Q1           float64    `json:"q1"`
	Median       float64    `json:"median"`
	Q3           float64    `json:"q3"`
	LowerWhisker float64    `json:"lower_whisker"`
	UpperWhisker float64    `json:"upper_whisker"`
	Outliers     []float64  `json:"outliers"`
	Points       []BoxPoint `json:"points"`
}

// HistogramBin: интервал [Lower, Upper) и количество записей по программам.
// Последний интервал включает правую границу.
type HistogramBin struct {
	Lower  float64        `json:"lower"`
	Upper  float64        `json:"upper"`
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// Histogram: распределение доступов, раскрашенное по программам.
type Histogram struct {
	Programs []string       `json:"programs"`
	Bins     []HistogramBin `json:"bins"`
}

// FacultyTotal: сумма доступов факультета без дублей (idusuario, facultad).
type FacultyTotal struct {
	Faculty  string  `json:"facultad"`
	Accesses float64 `json:"accesos_plataforma"`
}

// DashboardView: всё, что нужно странице или API для одной выборки.
type DashboardView struct {
	DatasetVersion string         `json:"dataset_version"`
	Selection      Selection      `json:"selection"`
	Summary        Summary        `json:"summary"`
	Warning        string         `json:"warning,omitempty"`
	BoxPlot        []BoxGroup     `json:"boxplot"`
	Histogram      Histogram      `json:"histogram"`
	FacultyTotals  []FacultyTotal `json:"faculty_totals"`
}

// Options: варианты для двух мультиселектов боковой панели.
type Options struct {
	Faculties []string `json:"facultades"`
	Programs  []string `json:"programas"`
}
