package cli

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow conversation logs as they change",
	Long: `Watches the log root and folds new, updated and deleted session files into
the loaded conversations, printing each change. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if conversationService == nil {
		return errors.New("conversation service not configured")
	}
	ctx := commandContext(cmd)

	convs, err := conversationService.List(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Watching %d conversations. Press Ctrl+C to stop.\n", len(convs))

	cmd.Printf("Fingerprint: %s\n", domain.FingerprintOf(convs))

	err = followLogs(ctx, func(change domain.LogChange) {
		cmd.Printf("%s  %-7s  %s\n", time.Now().Format(time.TimeOnly), change.Type, filepath.Base(change.Path))
		if convs, err := conversationService.List(ctx); err == nil {
			cmd.Printf("          fingerprint %s\n", domain.FingerprintOf(convs))
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
