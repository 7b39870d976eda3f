// internal/game/reveal.go
package game

import (
	"strings"
	"unicode"
)

// maskPlaceholder replaces every unrevealed character when rendering.
const maskPlaceholder = '_'

// revealState tracks per-character reveal flags for the active secret.
// The shown slice always has exactly one entry per character of the raw
// secret, in character order.
type revealState struct {
	chars []rune
	shown []bool
}

// newRevealState builds an all-hidden state sized to the raw secret.
func newRevealState(secretRaw string) *revealState {
	chars := []rune(secretRaw)
	return &revealState{
		chars: chars,
		shown: make([]bool, len(chars)),
	}
}

func (r *revealState) length() int {
	return len(r.chars)
}

// revealAll flips every position to shown. Idempotent.
func (r *revealState) revealAll() {
	for i := range r.shown {
		r.shown[i] = true
	}
}

// revealAt flips a single zero-based position. Out-of-range indices are
// ignored so callers can feed positions derived from a differently sized
// normalized form.
func (r *revealState) revealAt(i int) {
	if i < 0 || i >= len(r.shown) {
		return
	}
	r.shown[i] = true
}

// revealPositions flips the given one-based positions; indices outside
// [1, length] are silently ignored to tolerate malformed admin input.
func (r *revealState) revealPositions(oneBased []int) {
	for _, p := range oneBased {
		r.revealAt(p - 1)
	}
}

// hiddenIndices returns the zero-based positions still masked.
func (r *revealState) hiddenIndices() []int {
	var hidden []int
	for i, s := range r.shown {
		if !s {
			hidden = append(hidden, i)
		}
	}
	return hidden
}

// render maps each character to itself if revealed, else the placeholder
// glyph, preserving original order and casing.
func (r *revealState) render() string {
	var b strings.Builder
	b.Grow(len(r.chars))
	for i, c := range r.chars {
		if r.shown[i] {
			b.WriteRune(c)
		} else {
			b.WriteRune(maskPlaceholder)
		}
	}
	return b.String()
}

// parsePositions extracts one-based indices from an admin-supplied list.
// Tokens may be separated by commas, semicolons or whitespace; non-numeric
// tokens are dropped individually rather than rejecting the whole list.
func parsePositions(list string) []int {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})

	var out []int
	for _, f := range fields {
		n := 0
		ok := len(f) > 0
		for _, c := range f {
			if c < '0' || c > '9' {
				ok = false
				break
			}
			n = n*10 + int(c-'0')
		}
		if ok {
			out = append(out, n)
		}
	}
	return out
}
