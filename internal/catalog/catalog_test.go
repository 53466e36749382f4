package catalog

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lab-report-normalizer/internal/domain"
)

func TestDefaultCatalog(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)
	assert.Greater(t, cat.Len(), 20)

	hb, ok := cat.Lookup("hemoglobin")
	require.True(t, ok)
	assert.Equal(t, "Hemoglobin", hb.CanonicalName)
	assert.Equal(t, "g/dL", hb.Unit)
	assert.Equal(t, domain.Range{Low: 12.0, High: 15.0}, hb.ReferenceRange)
	assert.Equal(t, "hematology", hb.Category)

	viaAlias, ok := cat.LookupAlias("HB")
	require.True(t, ok)
	assert.Equal(t, "Hemoglobin", viaAlias.CanonicalName)

	_, ok = cat.LookupAlias("Hemoglobin")
	assert.False(t, ok, "canonical names are not aliases")
}

func TestEntriesAreSortedAndDetached(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)

	entries := cat.Entries()
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].CanonicalName, entries[i].CanonicalName)
	}
	assert.Equal(t, len(entries), len(cat.Names()))

	entries[0].Aliases = append(entries[0].Aliases[:0], "mutated")
	again := cat.Entries()
	assert.NotContains(t, again[0].Aliases, "mutated")
}

func TestNewRejectsMalformedEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []domain.CatalogEntry
		reason  string
	}{
		{
			name:    "empty name",
			entries: []domain.CatalogEntry{{CanonicalName: "  ", ReferenceRange: domain.Range{Low: 1, High: 2}}},
			reason:  "canonical name is empty",
		},
		{
			name:    "inverted range",
			entries: []domain.CatalogEntry{{CanonicalName: "Sodium", ReferenceRange: domain.Range{Low: 145, High: 135}}},
			reason:  "exceeds high",
		},
		{
			name:    "non-finite range",
			entries: []domain.CatalogEntry{{CanonicalName: "Sodium", ReferenceRange: domain.Range{Low: math.NaN(), High: 135}}},
			reason:  "finite",
		},
		{
			name: "duplicate name",
			entries: []domain.CatalogEntry{
				{CanonicalName: "Sodium", ReferenceRange: domain.Range{Low: 135, High: 145}},
				{CanonicalName: "sodium", ReferenceRange: domain.Range{Low: 135, High: 145}},
			},
			reason: "duplicate canonical name",
		},
		{
			name: "alias claimed twice",
			entries: []domain.CatalogEntry{
				{CanonicalName: "Hemoglobin", Aliases: []string{"hb"}, ReferenceRange: domain.Range{Low: 12, High: 15}},
				{CanonicalName: "HbA1c", Aliases: []string{"HB"}, ReferenceRange: domain.Range{Low: 4, High: 5.6}},
			},
			reason: "already claimed",
		},
		{
			name: "empty alias",
			entries: []domain.CatalogEntry{
				{CanonicalName: "Hemoglobin", Aliases: []string{""}, ReferenceRange: domain.Range{Low: 12, High: 15}},
			},
			reason: "alias is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, err := New(tt.entries)
			require.Error(t, err)
			assert.Nil(t, cat)
			assert.Contains(t, err.Error(), tt.reason)

			var catErr *domain.CatalogError
			assert.True(t, errors.As(err, &catErr))
		})
	}
}

func TestNewReportsEveryProblem(t *testing.T) {
	_, err := New([]domain.CatalogEntry{
		{CanonicalName: "", ReferenceRange: domain.Range{Low: 1, High: 2}},
		{CanonicalName: "Potassium", ReferenceRange: domain.Range{Low: 5, High: 3}},
		{CanonicalName: "Sodium", ReferenceRange: domain.Range{Low: 135, High: 145}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canonical name is empty")
	assert.Contains(t, err.Error(), `"Potassium"`)
}

func TestNewAcceptsDegenerateRange(t *testing.T) {
	cat, err := New([]domain.CatalogEntry{
		{CanonicalName: "Marker", ReferenceRange: domain.Range{Low: 1, High: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Len())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
tests:
  Sodium:
    aliases: [na]
    unit: mmol/L
    reference_range: {low: 135, high: 145}
    category: electrolyte
`), 0o600))

	cat, err := LoadFile(good)
	require.NoError(t, err)
	entry, ok := cat.LookupAlias("NA")
	require.True(t, ok)
	assert.Equal(t, "Sodium", entry.CanonicalName)

	asJSON := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(asJSON, []byte(`{"tests": {"Potassium": {"unit": "mmol/L", "reference_range": {"low": 3.5, "high": 5.1}}}}`), 0o600))
	cat, err = LoadFile(asJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"Potassium"}, cat.Names())

	missingRange := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(missingRange, []byte("tests:\n  Sodium:\n    unit: mmol/L\n"), 0o600))
	_, err = LoadFile(missingRange)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference range is missing")

	unknownField := filepath.Join(dir, "typo.yaml")
	require.NoError(t, os.WriteFile(unknownField, []byte("tests:\n  Sodium:\n    refrence_range: {low: 1, high: 2}\n"), 0o600))
	_, err = LoadFile(unknownField)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadEmptyDocument(t *testing.T) {
	_, err := Load(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestOpenFallsBackToDefault(t *testing.T) {
	cat, err := Open("")
	require.NoError(t, err)
	_, ok := cat.Lookup("Hemoglobin")
	assert.True(t, ok)
}
