package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

func rec(id, faculty, program string, accesses float64) domain.AccessRecord {
	return domain.AccessRecord{UserID: id, Faculty: faculty, Program: program, Accesses: accesses, HasAccesses: true}
}

func sampleRecords() []domain.AccessRecord {
	return []domain.AccessRecord{
		rec("1", "Ingenieria", "Sistemas", 10),
		rec("1", "Ingenieria", "Sistemas", 12),
		rec("1", "Ingenieria", "Civil", 4),
		rec("2", "Ingenieria", "Civil", 8),
		rec("3", "Artes", "Musica", 3),
		rec("3", "Artes", "Danza", 6),
		rec("4", "Salud", "Medicina", 20),
	}
}

func TestApply_ExampleFromDocs(t *testing.T) {
	records := []domain.AccessRecord{
		rec("1", "Eng", "CS", 5),
		rec("1", "Eng", "CS", 7),
		rec("2", "Arts", "Art", 3),
	}

	got := Apply(records, nil, nil)

	require.Len(t, got, 2)
	assert.Equal(t, rec("1", "Eng", "CS", 5), got[0], "first occurrence must be kept")
	assert.Equal(t, rec("2", "Arts", "Art", 3), got[1])
}

func TestApply_EmptySelectionReturnsFullDeduplicatedSet(t *testing.T) {
	got := Apply(sampleRecords(), []string{}, nil)
	assert.Len(t, got, 6)
}

func TestApply_PairsAreUnique(t *testing.T) {
	selections := []domain.Selection{
		{},
		{Faculties: []string{"Ingenieria"}},
		{Programs: []string{"Civil", "Sistemas"}},
		{Faculties: []string{"Artes", "Salud"}, Programs: []string{"Danza", "Medicina"}},
	}

	for _, sel := range selections {
		got := ApplySelection(sampleRecords(), sel)
		seen := map[[2]string]bool{}
		for _, r := range got {
			key := [2]string{r.UserID, r.Program}
			assert.Falsef(t, seen[key], "duplicate pair %v for selection %+v", key, sel)
			seen[key] = true
		}
	}
}

func TestApply_FacultyFilter(t *testing.T) {
	got := Apply(sampleRecords(), []string{"Artes"}, nil)

	require.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, "Artes", r.Faculty)
	}
}

func TestApply_FacultyAndProgram(t *testing.T) {
	got := Apply(sampleRecords(), []string{"Ingenieria"}, []string{"Civil"})

	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].UserID)
	assert.Equal(t, "2", got[1].UserID)
}

func TestApply_NoMatches(t *testing.T) {
	got := Apply(sampleRecords(), []string{"Artes"}, []string{"Medicina"})

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	records := sampleRecords()
	before := append([]domain.AccessRecord(nil), records...)

	_ = Apply(records, []string{"Salud"}, nil)

	assert.Equal(t, before, records)
}

func TestUniqueByFaculty(t *testing.T) {
	got := UniqueByFaculty(Apply(sampleRecords(), nil, nil))

	// профессор 1 в двух программах Ingenieria остается один раз, профессор 3: один раз в Artes
	require.Len(t, got, 4)
	assert.Equal(t, 10.0, got[0].Accesses)
	assert.Equal(t, "2", got[1].UserID)
	assert.Equal(t, "Musica", got[2].Program)
	assert.Equal(t, "4", got[3].UserID)
}

func TestFacultiesAndPrograms(t *testing.T) {
	records := sampleRecords()

	assert.Equal(t, []string{"Artes", "Ingenieria", "Salud"}, Faculties(records))
	assert.Equal(t, []string{"Civil", "Danza", "Medicina", "Musica", "Sistemas"}, Programs(records, nil))
	assert.Equal(t, []string{"Danza", "Musica"}, Programs(records, []string{"Artes"}))
	assert.Empty(t, Programs(records, []string{"Derecho"}))
}
