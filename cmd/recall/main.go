// Command recall searches the Claude conversation logs on this machine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/recall-cli/internal/adapters/driven/ai"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/claudelog"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/clipboard"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/export"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/recall-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/core/services"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run executes one command. Cobra has already reported any error.
func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cleanup []func()
	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	cli.SetBootstrap(func(ctx context.Context, opts cli.Options) (*cli.Services, error) {
		svcs, closeFn, err := wire(ctx, opts)
		if closeFn != nil {
			cleanup = append(cleanup, closeFn)
		}
		return svcs, err
	})

	return cli.Execute(ctx)
}

// wire builds every service for one invocation. The returned func releases
// the embedding stack, the search index and the log watcher.
func wire(ctx context.Context, opts cli.Options) (*cli.Services, func(), error) {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return nil, nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		logger.Warn("Failed to read settings, using defaults: %v", err)
		defaults := domain.DefaultAppSettings()
		settings = &defaults
	}

	root := opts.ProjectsDir
	if root == "" {
		root = settings.Logs.ProjectsDir
	}
	if root == "" {
		if root, err = claudelog.DefaultRoot(); err != nil {
			return nil, nil, err
		}
	}
	detailed := opts.Detailed || settings.Logs.Detailed

	store := memory.NewConversationStore()
	conversationService := services.NewConversationService(claudelog.New(root, claudelog.WithDetailed(detailed)), store)
	if _, err := conversationService.Reload(ctx); err != nil {
		return nil, nil, err
	}

	embedding := ai.Initialise(&settings.Embedding)
	for _, w := range embedding.Warnings {
		logger.Warn("Semantic search disabled: %s", w)
	}

	searchService := services.NewSearchService(store, embedding.EmbeddingService, embedding.NewVectorIndex)
	searchService.SetSemanticThreshold(settings.Search.SemanticThreshold)
	searchService.SetSnippetRadius(settings.Search.SnippetRadius)

	watcher := claudelog.NewWatcher(root)

	live := services.LiveOptions{
		Debounce:      settings.Search.Debounce,
		Limit:         settings.Search.Limit,
		CaseSensitive: settings.Search.CaseSensitive,
	}

	svcs := &cli.Services{
		Conversations: conversationService,
		Search:        searchService,
		Export:        services.NewExportService(conversationService, export.All()...),
		Settings:      settingsService,
		ResultActions: services.NewResultActionService(conversationService, clipboard.New()),
		Watcher:       watcher,
		NewLive: func(mode domain.SearchMode) driving.LiveSearch {
			o := live
			o.Mode = mode
			return services.NewLiveSearch(searchService, o)
		},
	}

	closeFn := func() {
		if err := searchService.Close(); err != nil {
			logger.Debug("Closing search index: %v", err)
		}
		embedding.Close()
		_ = watcher.Close()
	}
	return svcs, closeFn, nil
}
