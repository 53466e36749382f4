package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Lowercases", "Hemoglobin", "hemoglobin"},
		{"Collapses inner whitespace", "Total   \t Cholesterol", "total cholesterol"},
		{"Trims edges", "  HbA1c \n", "hba1c"},
		{"Drops control characters", "Glu\x00cose", "glucose"},
		{"Applies NFKC", "Ｈｂ", "hb"},
		{"Empty stays empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Fold(tt.input))
		})
	}
}

func TestFoldAll(t *testing.T) {
	in := []string{"A  B", "C"}
	out := FoldAll(in)

	assert.Equal(t, []string{"a b", "c"}, out)
	assert.Equal(t, "A  B", in[0], "input must not be modified")
}

func TestUnit(t *testing.T) {
	assert.Equal(t, "ug/dl", Unit("µg/dL"))
	assert.Equal(t, "ug/dl", Unit("μg/dL"))
	assert.Equal(t, "mg/dl", Unit("mg / dL"))
	assert.Equal(t, Unit("g/dL"), Unit("G/DL"))
}
