// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// linesPerResult is the height of one rendered result.
const linesPerResult = 2

// ResultList displays search results in a navigable list.
type ResultList struct {
	results  []domain.SearchResult
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewResultList creates a new result list component.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ResultList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the result list.
func (r *ResultList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *ResultList) Update(msg tea.Msg) (*ResultList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		//nolint:exhaustive // handling only relevant key types
		switch msg.Type {
		case tea.KeyUp:
			r.MoveUp()
		case tea.KeyDown:
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the result list.
func (r *ResultList) View() string {
	if len(r.results) == 0 {
		return r.styles.Muted.Render("No results")
	}

	lines := make([]string, 0, len(r.results)*linesPerResult+2)
	header := r.styles.Subtitle.Render(fmt.Sprintf("Results (%d)", len(r.results)))
	lines = append(lines, header, "")

	visibleCount := (r.height - 2) / linesPerResult
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if r.selected >= visibleCount {
		start = r.selected - visibleCount + 1
	}
	end := start + visibleCount
	if end > len(r.results) {
		end = len(r.results)
	}

	for i := start; i < end; i++ {
		lines = append(lines, r.renderResult(i, &r.results[i]))
	}

	return strings.Join(lines, "\n")
}

// renderResult formats a result as a header line and a snippet line.
func (r *ResultList) renderResult(index int, result *domain.SearchResult) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	meta := result.Project
	if !result.ConversationModifiedAt.IsZero() {
		meta += "  " + result.ConversationModifiedAt.Local().Format("2006-01-02 15:04")
	}
	score := fmt.Sprintf("%d%%", Relevance(result.Score))

	var header string
	if index == r.selected {
		header = r.styles.Selected.Render(fmt.Sprintf("%s%s  %s  %s", indicator, result.Role.Label(), meta, score))
	} else {
		header = indicator + r.styles.Role(result.Role).Render(result.Role.Label()) + "  " +
			r.styles.Muted.Render(meta+"  "+score)
	}

	return header + "\n    " + r.snippet(result)
}

// snippet renders the result snippet on one line, truncated to the width,
// with matched regions highlighted.
func (r *ResultList) snippet(result *domain.SearchResult) string {
	maxLen := r.width - 6
	if maxLen < 20 {
		maxLen = 20
	}

	text := result.Snippet
	spans := result.Highlights
	if len(text) > maxLen {
		cut := maxLen - 3
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
		kept := spans[:0:0]
		for _, h := range spans {
			if h.End <= len(text) {
				kept = append(kept, h)
			}
		}
		spans = kept
		text += "..."
	}

	var b strings.Builder
	last := 0
	for _, h := range spans {
		if h.Start < last || h.End > len(text) || h.Start >= h.End {
			continue
		}
		b.WriteString(r.styles.Muted.Render(flatten(text[last:h.Start])))
		b.WriteString(r.styles.Match.Render(flatten(text[h.Start:h.End])))
		last = h.End
	}
	b.WriteString(r.styles.Muted.Render(flatten(text[last:])))
	return b.String()
}

func flatten(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}

// Relevance converts a score to a whole percentage in [0, 100].
func Relevance(score float64) int {
	switch {
	case score <= 0:
		return 0
	case score >= 1:
		return 100
	default:
		return int(score*100 + 0.5)
	}
}

// SetResults replaces the results. The selection is kept on the same turn
// when it is still present, otherwise it returns to the top.
func (r *ResultList) SetResults(results []domain.SearchResult) {
	var prev *domain.TurnRef
	if cur := r.SelectedResult(); cur != nil {
		ref := cur.Ref()
		prev = &ref
	}
	r.results = results
	r.selected = 0
	if prev == nil {
		return
	}
	for i := range results {
		if results[i].Ref() == *prev {
			r.selected = i
			return
		}
	}
}

// Results returns the current results.
func (r *ResultList) Results() []domain.SearchResult {
	return r.results
}

// Selected returns the index of the selected result.
func (r *ResultList) Selected() int {
	return r.selected
}

// SetSelected sets the selected index.
func (r *ResultList) SetSelected(index int) {
	if index >= 0 && index < len(r.results) {
		r.selected = index
	}
}

// SelectedResult returns the currently selected result, or nil if none.
func (r *ResultList) SelectedResult() *domain.SearchResult {
	if len(r.results) == 0 || r.selected < 0 || r.selected >= len(r.results) {
		return nil
	}
	return &r.results[r.selected]
}

// MoveUp moves selection up.
func (r *ResultList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *ResultList) MoveDown() {
	if r.selected < len(r.results)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Width returns the current width.
func (r *ResultList) Width() int {
	return r.width
}

// Height returns the current height.
func (r *ResultList) Height() int {
	return r.height
}

// Count returns the number of results.
func (r *ResultList) Count() int {
	return len(r.results)
}

// IsEmpty returns whether the list is empty.
func (r *ResultList) IsEmpty() bool {
	return len(r.results) == 0
}
