package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

var (
	exportAll    bool
	exportRecent int
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export [conversation-id...]",
	Short: "Export conversations to files",
	Long: `Writes conversations as Markdown, JSON or HTML files named
claude-conversation-<date>-<id>.<ext>.

Without --output the files go to the configured export directory, or the
first writable of ~/Desktop/Claude logs, ~/Documents/Claude logs,
~/Claude logs and ./claude-logs.

Examples:
  recall export 4f1c2a9e
  recall export --recent 5 --format html
  recall export --all --detailed -o ./backup`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "export every conversation")
	exportCmd.Flags().IntVar(&exportRecent, "recent", 0, "export the N most recent conversations")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "markdown, json or html (default from settings)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output directory")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportService == nil {
		return errors.New("export service not configured")
	}

	ids, err := exportTargets(cmd, args)
	if err != nil {
		return err
	}

	defaults := domain.DefaultAppSettings().Export
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			defaults = s.Export
		}
	}
	format := defaults.Format
	if exportFormat != "" {
		if format, err = domain.ParseExportFormat(exportFormat); err != nil {
			return err
		}
	}
	dir := defaults.Dir
	if exportOutput != "" {
		dir = exportOutput
	}

	results, err := exportService.Export(commandContext(cmd), ids, format, dir)
	for _, r := range results {
		cmd.Printf("Exported %s (%d messages) -> %s\n", shortID(r.ConversationID), r.Turns, r.Path)
	}
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	cmd.Printf("\nExported %d conversation(s).\n", len(results))
	return nil
}

// exportTargets resolves the conversation ids selected by args and flags.
func exportTargets(cmd *cobra.Command, args []string) ([]string, error) {
	selectors := 0
	if exportAll {
		selectors++
	}
	if exportRecent > 0 {
		selectors++
	}
	if len(args) > 0 {
		selectors++
	}
	switch {
	case selectors == 0:
		return nil, errors.New("specify conversation ids, --recent N or --all")
	case selectors > 1:
		return nil, errors.New("conversation ids, --recent and --all are mutually exclusive")
	case len(args) > 0:
		return args, nil
	}

	if conversationService == nil {
		return nil, errors.New("conversation service not configured")
	}
	convs, err := conversationService.List(commandContext(cmd))
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	if exportRecent > 0 && len(convs) > exportRecent {
		convs = convs[:exportRecent]
	}
	if len(convs) == 0 {
		return nil, domain.ErrNoConversations
	}
	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}
	return ids, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
