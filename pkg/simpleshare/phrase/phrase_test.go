package phrase

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapitalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"a", "A"},
		{"fox", "Fox"},
		{"Fox", "Fox"},
		{"élan", "Élan"},
		{"mIxEd", "MIxEd"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Capitalize(tt.in), "Capitalize(%q)", tt.in)
	}
}

func TestGenerateSingleWords(t *testing.T) {
	gen, err := New([]string{"brave"}, []string{"fox"})
	require.NoError(t, err)
	assert.Equal(t, "BraveFox", gen.Generate())
}

func TestGenerateUsesBothLists(t *testing.T) {
	gen, err := New([]string{"red", "blue"}, []string{"fox", "owl"})
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		seen[gen.Generate()] = true
	}
	for _, want := range []string{"RedFox", "RedOwl", "BlueFox", "BlueOwl"} {
		assert.True(t, seen[want], "expected %s to be generated", want)
	}
	assert.Len(t, seen, 4)
}

func TestNewRejectsEmptyLists(t *testing.T) {
	_, err := New(nil, []string{"fox"})
	assert.ErrorIs(t, err, ErrEmptyWordList)

	_, err = Parse("\n\n", "fox")
	assert.ErrorIs(t, err, ErrEmptyWordList)
}

func TestParseSkipsBlankLines(t *testing.T) {
	gen, err := Parse("brave\n\n", "\nfox\n")
	require.NoError(t, err)
	assert.Equal(t, 1, gen.Combinations())
	assert.Equal(t, "BraveFox", gen.Generate())
}

func TestDefaultGenerator(t *testing.T) {
	gen, err := NewDefault()
	require.NoError(t, err)
	assert.Greater(t, gen.Combinations(), 1000)

	pattern := regexp.MustCompile(`^[A-Z][a-z]*[A-Z][a-z]*$`)
	for i := 0; i < 100; i++ {
		name := gen.Generate()
		assert.Regexp(t, pattern, name)
	}

	again, err := NewDefault()
	require.NoError(t, err)
	assert.Same(t, gen, again)
}
