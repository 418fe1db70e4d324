package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

var (
	listLimit int
	listJSON  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent conversations",
	Long: `Lists conversations, most recently modified first, with their project,
date, message count, size and the first meaningful user message.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "maximum number of conversations (0 = all)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(listCmd)
}

// conversationSummary is the JSON shape of one listed conversation.
type conversationSummary struct {
	ID         string `json:"id"`
	Project    string `json:"project"`
	Path       string `json:"path"`
	StartedAt  string `json:"started_at"`
	ModifiedAt string `json:"modified_at"`
	Messages   int    `json:"messages"`
	SizeBytes  int64  `json:"size_bytes"`
	Preview    string `json:"preview"`
}

func summarise(c *domain.Conversation) conversationSummary {
	return conversationSummary{
		ID:         c.ID,
		Project:    c.Project,
		Path:       c.Path,
		StartedAt:  c.StartedAt.Format(time.RFC3339),
		ModifiedAt: c.ModifiedAt.Format(time.RFC3339),
		Messages:   len(c.Turns),
		SizeBytes:  c.SizeBytes,
		Preview:    c.Preview(),
	}
}

func runList(cmd *cobra.Command, _ []string) error {
	if conversationService == nil {
		return errors.New("conversation service not configured")
	}

	convs, err := conversationService.List(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}
	if listLimit > 0 && len(convs) > listLimit {
		convs = convs[:listLimit]
	}

	if listJSON {
		out := make([]conversationSummary, 0, len(convs))
		for _, c := range convs {
			out = append(out, summarise(c))
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal conversations: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(convs) == 0 {
		cmd.Println("No conversations found.")
		return nil
	}

	cmd.Printf("Found %d conversations:\n\n", len(convs))
	for i, c := range convs {
		cmd.Printf("  %d. [%s] %s  %s\n", i+1, c.ShortID(), c.Project, c.ModifiedAt.Local().Format("2006-01-02 15:04"))
		cmd.Printf("     Messages: %d  Size: %s\n", len(c.Turns), formatSize(c.SizeBytes))
		cmd.Printf("     %s\n\n", c.Preview())
	}
	return nil
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
