package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

var showFormat string

var showCmd = &cobra.Command{
	Use:   "show [conversation-id]",
	Short: "Print a conversation",
	Long: `Prints a whole conversation to stdout. The id may be any unique prefix
of the session id shown by 'recall list'.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showFormat, "format", "f", "markdown", "output format (markdown, json, html)")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	if exportService == nil {
		return errors.New("export service not configured")
	}
	format, err := domain.ParseExportFormat(showFormat)
	if err != nil {
		return err
	}
	if err := exportService.Render(commandContext(cmd), args[0], format, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to show conversation: %w", err)
	}
	return nil
}
