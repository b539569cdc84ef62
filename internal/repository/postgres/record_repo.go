package postgres

/*
Файл record_repo.go хранит таблицу доступов в PostgreSQL.

Порядок строк задает identity-колонка id: импорт пишет строки в порядке листа,
чтение идет ORDER BY id. От этого порядка зависит, какая запись останется после
удаления дублей (idusuario, programa).
*/

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

var recordColumns = []string{
	domain.ColumnUserID,
	domain.ColumnFaculty,
	domain.ColumnProgram,
	domain.ColumnAccesses,
}

type RecordRepo struct {
	db    DB
	table string
}

func NewRecordRepo(db DB, table string) *RecordRepo {
	return &RecordRepo{db: db, table: table}
}

func (r *RecordRepo) Name() string { return "postgres:" + r.table }

// Load читает все записи в порядке вставки.
func (r *RecordRepo) Load(ctx context.Context) ([]domain.AccessRecord, error) {
	query := fmt.Sprintf(`SELECT idusuario, facultad, programa, accesos_plataforma FROM %s ORDER BY id`,
		pgx.Identifier{r.table}.Sanitize())

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query records: %w", err)
	}
	defer rows.Close()

	// Инициализируем пустой слайс, чтобы в JSON был [] вместо null
	records := make([]domain.AccessRecord, 0)
	for rows.Next() {
		var rec domain.AccessRecord
		var accesses *float64 // NULL: пустая ячейка в исходной таблице

		if err := rows.Scan(&rec.UserID, &rec.Faculty, &rec.Program, &accesses); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan record: %w", err)
		}
		if accesses != nil {
			rec.Accesses = *accesses
			rec.HasAccesses = true
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration: %w", err)
	}
	return records, nil
}

// ReplaceAll атомарно заменяет содержимое таблицы через COPY.
func (r *RecordRepo) ReplaceAll(ctx context.Context, records []domain.AccessRecord) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // после Commit это no-op

	truncate := fmt.Sprintf(`TRUNCATE %s RESTART IDENTITY`, pgx.Identifier{r.table}.Sanitize())
	if _, err := tx.Exec(ctx, truncate); err != nil {
		return 0, fmt.Errorf("postgres: truncate: %w", err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{r.table}, recordColumns, pgx.CopyFromSlice(len(records), copyRow(records)))
	if err != nil {
		return 0, fmt.Errorf("postgres: copy records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	return n, nil
}

func copyRow(records []domain.AccessRecord) func(i int) ([]any, error) {
	return func(i int) ([]any, error) {
		rec := records[i]
		var accesses any // nil уходит в базу как NULL
		if rec.HasAccesses {
			accesses = rec.Accesses
		}
		return []any{rec.UserID, rec.Faculty, rec.Program, accesses}, nil
	}
}
