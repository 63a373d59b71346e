package object

import (
	"strings"
	"unicode/utf8"

	"ember/internal/gc"
)

// StringData holds UTF-8 text. Indexing and iteration are code-point based per the
// data model ("tëst"[1] == "ë"), so runes is kept alongside the raw bytes to make
// repeated indexing O(1) after the first conversion instead of O(n) per access.
type StringData struct {
	Base
	runes []rune
}

func NewString(rt *gc.Runtime, s string) *StringData {
	d := &StringData{runes: []rune(s)}
	rt.Register(d)
	return d
}

func newStringFromRunes(rt *gc.Runtime, runes []rune) *StringData {
	cp := make([]rune, len(runes))
	copy(cp, runes)
	d := &StringData{runes: cp}
	rt.Register(d)
	return d
}

// String returns the UTF-8 encoding of the stored text.
func (s *StringData) String() string { return string(s.runes) }

// Len returns the code-point count, not the byte length.
func (s *StringData) Len() int { return len(s.runes) }

// At returns the code point at a possibly-negative (Python-style) index.
func (s *StringData) At(i int) (rune, bool) {
	idx := i
	if idx < 0 {
		idx += len(s.runes)
	}
	if idx < 0 || idx >= len(s.runes) {
		return 0, false
	}
	return s.runes[idx], true
}

// Slice returns the code points in [begin, end), clamped, as a new StringData.
func (s *StringData) Slice(rt *gc.Runtime, begin, end int) *StringData {
	n := len(s.runes)
	begin = clampIndex(begin, n)
	end = clampIndex(end, n)
	if end < begin {
		end = begin
	}
	return newStringFromRunes(rt, s.runes[begin:end])
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// Concat returns a new StringData holding s followed by other.
func (s *StringData) Concat(rt *gc.Runtime, other *StringData) *StringData {
	var b strings.Builder
	b.Grow(len(s.runes) + len(other.runes))
	for _, r := range s.runes {
		b.WriteRune(r)
	}
	for _, r := range other.runes {
		b.WriteRune(r)
	}
	return NewString(rt, b.String())
}

// ByteLen reports the UTF-8 encoded byte length, distinct from Len's code-point count.
func (s *StringData) ByteLen() int {
	n := 0
	for _, r := range s.runes {
		n += utf8.RuneLen(r)
	}
	return n
}

func (s *StringData) CloneData(rt *gc.Runtime) gc.Data { return newStringFromRunes(rt, s.runes) }
