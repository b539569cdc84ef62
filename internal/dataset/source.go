// Package dataset загружает таблицу доступов из источника и хранит текущий снапшот.
package dataset

import (
	"context"
	"fmt"
	"os"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

// Source: откуда берутся записи. Реализации обязаны сохранять порядок строк.
type Source interface {
	Load(ctx context.Context) ([]domain.AccessRecord, error)
	Name() string
}

// XLSXSource читает локальный файл Excel.
type XLSXSource struct {
	Path  string
	Sheet string
}

func NewXLSXSource(path, sheet string) *XLSXSource {
	return &XLSXSource{Path: path, Sheet: sheet}
}

func (s *XLSXSource) Name() string { return "file:" + s.Path }

func (s *XLSXSource) Load(ctx context.Context) ([]domain.AccessRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("xlsx source: %w", err)
	}
	defer f.Close()

	records, err := ReadXLSX(f, s.Sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx source %s: %w", s.Path, err)
	}
	return records, nil
}
