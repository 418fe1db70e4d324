package index

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token is a normalised word with its location in the source text.
type Token struct {
	// Text is the lowercased token.
	Text string

	// Pos is the token's ordinal within the text.
	Pos int

	// Start and End are byte offsets of the original word.
	Start int
	End   int
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Tokenize lowercases text, drops punctuation and splits on whitespace and
// word boundaries. Stop-words are kept.
func Tokenize(text string) []Token {
	var tokens []Token
	start := -1
	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, newToken(text, start, i, len(tokens)))
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, newToken(text, start, len(text), len(tokens)))
	}
	return tokens
}

func newToken(text string, start, end, pos int) Token {
	return Token{Text: strings.ToLower(text[start:end]), Pos: pos, Start: start, End: end}
}

// Terms returns the distinct normalised tokens of text in first-seen order.
func Terms(text string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, t := range Tokenize(text) {
		if _, ok := seen[t.Text]; ok {
			continue
		}
		seen[t.Text] = struct{}{}
		terms = append(terms, t.Text)
	}
	return terms
}

// WithinOneEdit reports whether a and b differ by at most one insertion,
// deletion or substitution. Comparison is by rune.
func WithinOneEdit(a, b string) bool {
	if a == b {
		return true
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la-lb > 1 || lb-la > 1 {
		return false
	}
	ra, rb := []rune(a), []rune(b)
	if la < lb {
		ra, rb = rb, ra
	}
	// ra is the longer (or equal) one.
	i, j := 0, 0
	edited := false
	for i < len(ra) && j < len(rb) {
		if ra[i] == rb[j] {
			i++
			j++
			continue
		}
		if edited {
			return false
		}
		edited = true
		if len(ra) == len(rb) {
			j++
		}
		i++
	}
	return !edited || i == len(ra) && j == len(rb)
}
