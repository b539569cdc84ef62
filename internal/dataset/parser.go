package dataset

/*
Файл parser.go разбирает выгрузку доступов из Excel.

Заголовком считается первая непустая строка листа. Порядок колонок любой, регистр и пробелы
в названиях игнорируются, лишние колонки пропускаются. Строки читаются в порядке листа:
от этого порядка зависит, какая запись останется после удаления дублей.
*/

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

// ReadXLSX открывает книгу из потока и разбирает лист sheet (пусто: первый лист).
func ReadXLSX(r io.Reader, sheet string) ([]domain.AccessRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return ParseWorkbook(f, sheet)
}

// ParseWorkbook извлекает записи доступа из уже открытой книги.
func ParseWorkbook(f *excelize.File, sheet string) ([]domain.AccessRecord, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets: %w", domain.ErrEmptySheet)
		}
		sheet = sheets[0]
	}

	// RawCellValue: числа без форматирования ячейки ("1234", а не "1,234")
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	return parseRows(rows)
}

func parseRows(rows [][]string) ([]domain.AccessRecord, error) {
	headerRow := -1
	for i, row := range rows {
		if !isBlankRow(row) {
			headerRow = i
			break
		}
	}
	if headerRow == -1 {
		return nil, domain.ErrEmptySheet
	}

	columns, err := mapColumns(rows[headerRow])
	if err != nil {
		return nil, err
	}

	records := make([]domain.AccessRecord, 0, len(rows)-headerRow-1)
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}

		rec := domain.AccessRecord{
			UserID:  cell(row, columns[domain.ColumnUserID]),
			Faculty: cell(row, columns[domain.ColumnFaculty]),
			Program: cell(row, columns[domain.ColumnProgram]),
		}

		raw := cell(row, columns[domain.ColumnAccesses])
		if !isMissing(raw) {
			v, err := parseNumber(raw)
			if err != nil {
				// i+1: номер строки, как его видит пользователь в Excel
				return nil, fmt.Errorf("%w: row %d, column %s: %q", domain.ErrInvalidValue, i+1, domain.ColumnAccesses, raw)
			}
			rec.Accesses = v
			rec.HasAccesses = true
		}

		records = append(records, rec)
	}

	return records, nil
}

// mapColumns находит индексы обязательных колонок в строке заголовка.
func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(domain.RequiredColumns))
	for i, name := range header {
		key := normalizeHeader(name)
		if _, dup := columns[key]; dup {
			continue // первая колонка с таким именем выигрывает
		}
		columns[key] = i
	}

	var missing []string
	for _, col := range domain.RequiredColumns {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingColumn, strings.Join(missing, ", "))
	}
	return columns, nil
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "_")
}

// missingValues: обозначения пропуска, которые pandas по умолчанию читает как NaN.
var missingValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isMissing(s string) bool {
	_, ok := missingValues[s]
	return ok
}

// parseNumber понимает "12", "12.5" и "1,234" (разделитель тысяч).
// NaN и бесконечности не принимаются.
func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
