package match

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

const ellipsis = "…"

// snippet cuts a window of radius runes around [focusStart, focusEnd) and
// maps the spans that fall inside it into snippet coordinates. Line breaks
// and tabs become spaces so the snippet renders on one line.
func snippet(text string, focusStart, focusEnd int, spans []domain.Span, radius int) (string, []domain.Span) {
	radius = radiusOr(radius)
	ws := backRunes(text, focusStart, radius)
	we := forwardRunes(text, focusEnd, radius)

	var prefix, suffix string
	if ws > 0 {
		prefix = ellipsis
	}
	if we < len(text) {
		suffix = ellipsis
	}

	body := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		}
		return r
	}, text[ws:we])

	var out []domain.Span
	for _, s := range spans {
		if s.Start < ws || s.End > we || s.Start >= s.End {
			continue
		}
		out = append(out, domain.Span{
			Start: s.Start - ws + len(prefix),
			End:   s.End - ws + len(prefix),
		})
	}
	return prefix + body + suffix, out
}

// leadingSnippet returns the start of text, used when there is no match region.
func leadingSnippet(text string, radius int) string {
	s, _ := snippet(text, 0, 0, nil, radiusOr(radius)*2)
	return s
}

// chunkSnippet shows the region of text an embedded chunk starting at the
// byte offset start covers.
func chunkSnippet(text string, start, radius int) string {
	if start <= 0 || start >= len(text) {
		return leadingSnippet(text, radius)
	}
	s, _ := snippet(text, start, start, nil, radiusOr(radius))
	return s
}

func backRunes(s string, i, n int) int {
	for n > 0 && i > 0 {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
		n--
	}
	return i
}

func forwardRunes(s string, i, n int) int {
	for n > 0 && i < len(s) {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		n--
	}
	return i
}
