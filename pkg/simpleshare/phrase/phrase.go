// Package phrase generates short, memorable names by joining a random
// adjective and a random noun, e.g. "BraveFox".
package phrase

import (
	_ "embed"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

var (
	//go:embed adjectives.txt
	defaultAdjectives string

	//go:embed nouns.txt
	defaultNouns string
)

// ErrEmptyWordList is returned when a generator is built without words.
var ErrEmptyWordList = errors.New("word list is empty")

// Generator joins one adjective and one noun, each capitalized. It is safe
// for concurrent use.
type Generator struct {
	adjectives []string
	nouns      []string
}

// New creates a generator from the given word lists. Blank entries are
// dropped; both lists must keep at least one word.
func New(adjectives, nouns []string) (*Generator, error) {
	adj := compact(adjectives)
	nn := compact(nouns)
	if len(adj) == 0 || len(nn) == 0 {
		return nil, ErrEmptyWordList
	}
	return &Generator{adjectives: adj, nouns: nn}, nil
}

// Parse creates a generator from newline separated word lists.
func Parse(adjectives, nouns string) (*Generator, error) {
	return New(strings.Split(adjectives, "\n"), strings.Split(nouns, "\n"))
}

var (
	defaultOnce sync.Once
	defaultGen  *Generator
	defaultErr  error
)

// NewDefault returns the generator built from the embedded word lists.
func NewDefault() (*Generator, error) {
	defaultOnce.Do(func() {
		defaultGen, defaultErr = Parse(defaultAdjectives, defaultNouns)
	})
	return defaultGen, defaultErr
}

// Generate returns a new candidate name. Repeats are possible.
func (g *Generator) Generate() string {
	adj := g.adjectives[rand.IntN(len(g.adjectives))]
	noun := g.nouns[rand.IntN(len(g.nouns))]
	return Capitalize(adj) + Capitalize(noun)
}

// Combinations returns the number of distinct names g can produce.
func (g *Generator) Combinations() int {
	return len(g.adjectives) * len(g.nouns)
}

// Capitalize upper-cases the first character of s.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func compact(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
