// Package cli implements the recall command line interface with cobra.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

// Persistent flags.
var (
	verbose     bool
	projectsDir string
	detailed    bool
)

// Services wired by the application entry point.
var (
	conversationService driving.ConversationService
	searchService       driving.SearchService
	exportService       driving.ExportService
	settingsService     driving.SettingsService
	resultActionService driving.ResultActionService
	logWatcher          driven.LogWatcher
	newLiveSearch       func(mode domain.SearchMode) driving.LiveSearch
)

// Services holds the implementations the commands run against.
type Services struct {
	Conversations driving.ConversationService
	Search        driving.SearchService
	Export        driving.ExportService
	Settings      driving.SettingsService
	ResultActions driving.ResultActionService
	Watcher       driven.LogWatcher

	// NewLive starts an interactive search session in the given mode.
	NewLive func(mode domain.SearchMode) driving.LiveSearch
}

// Options carries the persistent flag values into the bootstrap.
type Options struct {
	ProjectsDir string
	Detailed    bool
	Verbose     bool
}

// BootstrapFunc builds the services for one invocation.
type BootstrapFunc func(ctx context.Context, opts Options) (*Services, error)

var bootstrap BootstrapFunc

// skipBootstrap marks commands that run without services.
const skipBootstrap = "skip-bootstrap"

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Search your Claude conversation history",
	Long: `recall indexes the Claude conversation logs under ~/.claude/projects and
lets you list, search, view and export them.

Search modes:
  smart    - Fuzzy token overlap weighted by rarity (default)
  exact    - Literal substring
  regex    - Regular expression
  semantic - Embedding similarity (requires an embedding provider)

Run 'recall tui' for search-as-you-type.`,
	SilenceUsage:      true,
	PersistentPreRunE: runBootstrap,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show pipeline debug output")
	rootCmd.PersistentFlags().StringVar(&projectsDir, "projects-dir", "", "conversation log root (default ~/.claude/projects)")
	rootCmd.PersistentFlags().BoolVar(&detailed, "detailed", false, "include tool calls, tool results and system messages")
}

// SetBootstrap registers the function that wires services before a command runs.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices installs services directly, bypassing the bootstrap.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	conversationService = s.Conversations
	searchService = s.Search
	exportService = s.Export
	settingsService = s.Settings
	resultActionService = s.ResultActions
	logWatcher = s.Watcher
	newLiveSearch = s.NewLive
}

// Execute runs the root command. Command output goes to stdout so that
// results can be piped.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if bootstrap == nil || cmd.Annotations[skipBootstrap] != "" {
		return nil
	}
	svcs, err := bootstrap(commandContext(cmd), Options{
		ProjectsDir: projectsDir,
		Detailed:    detailed,
		Verbose:     verbose,
	})
	if err != nil {
		return err
	}
	SetServices(svcs)
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// followLogs applies watcher changes to the conversation service until ctx
// is cancelled. onChange runs after every applied change.
func followLogs(ctx context.Context, onChange func(domain.LogChange)) error {
	if logWatcher == nil {
		return errors.New("log watcher not configured")
	}
	if conversationService == nil {
		return errors.New("conversation service not configured")
	}
	changes, err := logWatcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch logs: %w", err)
	}
	for change := range changes {
		if err := conversationService.ApplyChange(ctx, change); err != nil {
			logger.Warn("Failed to apply change to %s: %v", change.Path, err)
			continue
		}
		if onChange != nil {
			onChange(change)
		}
	}
	return ctx.Err()
}
