package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

var (
	searchMode          string
	searchLimit         int
	searchJSON          bool
	searchFrom          string
	searchTo            string
	searchSpeaker       string
	searchConversation  string
	searchCaseSensitive bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search conversations",
	Long: `Searches every turn of every conversation using one mode.

Modes:
  smart    - Fuzzy token overlap weighted by rarity (default)
  exact    - Literal substring
  regex    - Regular expression
  semantic - Embedding similarity (requires an embedding provider)

Results are grouped by conversation with the matched speaker and relevance.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", "", "search mode: smart, exact, regex, semantic (default from settings)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default from settings)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "only conversations active on or after this date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "only conversations started on or before this date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchSpeaker, "speaker", "", "only match turns by this speaker (user, assistant)")
	searchCmd.Flags().StringVarP(&searchConversation, "conversation", "c", "", "search within one conversation")
	searchCmd.Flags().BoolVar(&searchCaseSensitive, "case-sensitive", false, "case-sensitive exact and regex matching")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	q, err := buildSearchQuery(cmd, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if err := searchService.ModeAvailable(q.Mode); err != nil {
		return err
	}

	results, err := searchService.Search(commandContext(cmd), q)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, q, results)
}

// buildSearchQuery combines flags with the configured defaults.
func buildSearchQuery(cmd *cobra.Command, text string) (domain.SearchQuery, error) {
	defaults := domain.DefaultAppSettings().Search
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			defaults = s.Search
		}
	}

	q := domain.SearchQuery{
		Text:          text,
		Mode:          defaults.Mode,
		Limit:         defaults.Limit,
		CaseSensitive: defaults.CaseSensitive || searchCaseSensitive,
	}
	if searchMode != "" {
		mode, ok := domain.ParseSearchMode(searchMode)
		if !ok {
			return q, fmt.Errorf("%w: unknown search mode %q", domain.ErrInvalidInput, searchMode)
		}
		q.Mode = mode
	}
	if cmd.Flags().Changed("limit") {
		q.Limit = searchLimit
	}

	var err error
	if q.Scope.From, err = parseDate(searchFrom, false); err != nil {
		return q, err
	}
	if q.Scope.To, err = parseDate(searchTo, true); err != nil {
		return q, err
	}
	if searchSpeaker != "" {
		role := domain.Role(strings.ToLower(searchSpeaker))
		if role == "claude" {
			role = domain.RoleAssistant
		}
		if !role.IsValid() {
			return q, fmt.Errorf("%w: unknown speaker %q", domain.ErrInvalidInput, searchSpeaker)
		}
		q.Scope.Roles = []domain.Role{role}
	}
	if searchConversation != "" {
		if conversationService == nil {
			return q, errors.New("conversation service not configured")
		}
		conv, err := conversationService.Get(commandContext(cmd), searchConversation)
		if err != nil {
			return q, err
		}
		q.Scope.ConversationID = conv.ID
	}
	return q, nil
}

// parseDate reads a YYYY-MM-DD date in local time. endOfDay moves it to the
// last instant of that day so --to is inclusive.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", domain.ErrInvalidInput, s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// searchResultJSON is the JSON shape of one result.
type searchResultJSON struct {
	Rank           int     `json:"rank"`
	ConversationID string  `json:"conversation_id"`
	Project        string  `json:"project"`
	Ordinal        int     `json:"ordinal"`
	Speaker        string  `json:"speaker"`
	Timestamp      string  `json:"timestamp,omitempty"`
	Score          float64 `json:"score"`
	Matches        int     `json:"matches"`
	Snippet        string  `json:"snippet"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	out := make([]searchResultJSON, 0, len(results))
	for _, r := range results {
		item := searchResultJSON{
			Rank:           r.Rank,
			ConversationID: r.ConversationID,
			Project:        r.Project,
			Ordinal:        r.Ordinal,
			Speaker:        string(r.Role),
			Score:          r.Score,
			Matches:        r.Matches,
			Snippet:        r.Snippet,
		}
		if !r.Timestamp.IsZero() {
			item.Timestamp = r.Timestamp.Format(time.RFC3339)
		}
		out = append(out, item)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, q domain.SearchQuery, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Found %d results for %q (%s):\n", len(results), q.Text, q.Mode)

	mark := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	colour := isTerminal(cmd.OutOrStdout())

	var current string
	for _, r := range results {
		if r.ConversationID != current {
			current = r.ConversationID
			short := r.ConversationID
			if len(short) > 8 {
				short = short[:8]
			}
			date := r.ConversationModifiedAt.Local().Format("2006-01-02 15:04")
			cmd.Printf("\n[%s] %s  %s\n", short, r.Project, date)
		}

		snippet := r.Snippet
		if colour {
			snippet = highlight(r, mark)
		}
		cmd.Printf("  %2d. %s (%d%%)\n", r.Rank, r.Role.Label(), relevance(r.Score))
		cmd.Printf("      %s\n", strings.ReplaceAll(snippet, "\n", " "))
	}
	return nil
}

// highlight renders each matched region of the snippet with style.
func highlight(r domain.SearchResult, style lipgloss.Style) string {
	var b strings.Builder
	last := 0
	for _, h := range r.Highlights {
		if h.Start < last || h.End > len(r.Snippet) || h.Start >= h.End {
			continue
		}
		b.WriteString(r.Snippet[last:h.Start])
		b.WriteString(style.Render(r.Snippet[h.Start:h.End]))
		last = h.End
	}
	b.WriteString(r.Snippet[last:])
	return b.String()
}

// relevance converts a score to a whole percentage in [0, 100].
func relevance(score float64) int {
	switch {
	case score <= 0:
		return 0
	case score >= 1:
		return 100
	default:
		return int(score*100 + 0.5)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
