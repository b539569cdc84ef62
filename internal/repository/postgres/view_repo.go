package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/xela07ax/cintia-dashboard/internal/audit"
)

// viewFields: количество колонок в таблице dashboard_views
const viewFields = 13

type ViewRepo struct {
	db DB
}

func NewViewRepo(db DB) *ViewRepo {
	return &ViewRepo{db: db}
}

// WriteBatch пишет пачку событий одним INSERT.
func (r *ViewRepo) WriteBatch(ctx context.Context, events []audit.ViewEvent) error {
	if len(events) == 0 {
		return nil
	}

	query, args := buildViewInsert(events)
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: failed to write %d views: %w", len(events), err)
	}
	return nil
}

// buildViewInsert динамически строит запрос для пакетной вставки.
func buildViewInsert(events []audit.ViewEvent) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO dashboard_views (id, trace_id, endpoint, facultades, programas, dataset_version,
		records, professors, empty, cache_hit, duration_ms, error, created_at) VALUES `)

	args := make([]any, 0, len(events)*viewFields)
	for i, e := range events {
		if i > 0 {
			sb.WriteString(", ")
		}
		p := i * viewFields
		sb.WriteString("(")
		for k := 1; k <= viewFields; k++ {
			if k > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", p+k)
		}
		sb.WriteString(")")

		args = append(args,
			e.ID, e.TraceID, e.Endpoint, nonNil(e.Faculties), nonNil(e.Programs), e.DatasetVersion,
			e.Records, e.Professors, e.Empty, e.CacheHit, e.DurationMs, nullable(e.Error), e.Timestamp,
		)
	}
	sb.WriteString(" ON CONFLICT (id) DO NOTHING")
	return sb.String(), args
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
