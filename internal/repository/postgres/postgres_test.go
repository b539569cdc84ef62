package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/cintia-dashboard/internal/audit"
	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

func TestBuildViewInsert(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []audit.ViewEvent{
		{ID: "a", TraceID: "t1", Endpoint: "dashboard", Faculties: []string{"Artes"}, Records: 3, Timestamp: ts},
		{ID: "b", TraceID: "t2", Endpoint: "chart:bar", Error: "boom", Timestamp: ts},
	}

	query, args := buildViewInsert(events)

	assert.True(t, strings.HasPrefix(query, "INSERT INTO dashboard_views"))
	assert.Contains(t, query, "($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)")
	assert.Contains(t, query, "($14, $15")
	assert.Contains(t, query, "$26)")
	assert.NotContains(t, query, "$27")

	require.Len(t, args, 2*viewFields)
	assert.Equal(t, []string{"Artes"}, args[3])
	assert.Equal(t, []string{}, args[4], "nil programs are stored as an empty array")
	assert.Nil(t, args[11], "empty error is stored as NULL")
	assert.Equal(t, "boom", args[viewFields+11])
}

func TestCopyRow(t *testing.T) {
	records := []domain.AccessRecord{
		{UserID: "1", Faculty: "Artes", Program: "Musica", Accesses: 4, HasAccesses: true},
		{UserID: "2", Faculty: "Artes", Program: "Danza"},
	}
	row := copyRow(records)

	first, err := row(0)
	require.NoError(t, err)
	assert.Equal(t, []any{"1", "Artes", "Musica", 4.0}, first)

	second, err := row(1)
	require.NoError(t, err)
	assert.Nil(t, second[3], "missing access count is copied as NULL")
}

func TestRecordRepoName(t *testing.T) {
	assert.Equal(t, "postgres:access_records", NewRecordRepo(nil, "access_records").Name())
}
