package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
)

// fakeConversations implements driving.ConversationService.
type fakeConversations struct {
	convs   []*domain.Conversation
	applied []domain.LogChange
	err     error
}

func (f *fakeConversations) List(context.Context) ([]*domain.Conversation, error) {
	return f.convs, f.err
}

func (f *fakeConversations) Get(_ context.Context, id string) (*domain.Conversation, error) {
	for _, c := range f.convs {
		if strings.HasPrefix(c.ID, id) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: conversation %s", domain.ErrNotFound, id)
}

func (f *fakeConversations) Reload(context.Context) (bool, error) { return false, nil }

func (f *fakeConversations) ApplyChange(_ context.Context, c domain.LogChange) error {
	f.applied = append(f.applied, c)
	return nil
}

// fakeSearch implements driving.SearchService.
type fakeSearch struct {
	results     []domain.SearchResult
	err         error
	unavailable error
	lastQuery   domain.SearchQuery
}

func (f *fakeSearch) Search(_ context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	f.lastQuery = q
	return f.results, f.err
}

func (f *fakeSearch) ModeAvailable(mode domain.SearchMode) error {
	if mode == domain.SearchModeSemantic && f.unavailable != nil {
		return f.unavailable
	}
	return nil
}

func (f *fakeSearch) AvailableModes() []domain.SearchMode {
	if f.unavailable != nil {
		return domain.AllSearchModes()[:3]
	}
	return domain.AllSearchModes()
}

// fakeExport implements driving.ExportService.
type fakeExport struct {
	results    []domain.ExportResult
	err        error
	body       string
	lastIDs    []string
	lastFormat domain.ExportFormat
	lastDir    string
}

func (f *fakeExport) Export(
	_ context.Context, ids []string, format domain.ExportFormat, dir string,
) ([]domain.ExportResult, error) {
	f.lastIDs, f.lastFormat, f.lastDir = ids, format, dir
	return f.results, f.err
}

func (f *fakeExport) Render(_ context.Context, _ string, format domain.ExportFormat, w io.Writer) error {
	f.lastFormat = format
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(w, f.body)
	return err
}

// fakeSettings implements driving.SettingsService.
type fakeSettings struct {
	settings     domain.AppSettings
	validateErr  error
	embeddingErr error
	setErr       error
	setCalls     map[string]string
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{settings: domain.DefaultAppSettings(), setCalls: map[string]string{}}
}

func (f *fakeSettings) Get() (*domain.AppSettings, error) {
	s := f.settings
	return &s, nil
}

func (f *fakeSettings) Save(s *domain.AppSettings) error {
	f.settings = *s
	return nil
}

func (f *fakeSettings) SetSearchMode(mode domain.SearchMode) error {
	f.settings.Search.Mode = mode
	return nil
}

func (f *fakeSettings) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	f.settings.Embedding.Provider = p
	f.settings.Embedding.Model = model
	f.settings.Embedding.APIKey = apiKey
	return nil
}

func (f *fakeSettings) SetValue(key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.setCalls[key] = value
	return nil
}

func (f *fakeSettings) Validate() error                 { return f.validateErr }
func (f *fakeSettings) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (f *fakeSettings) ValidateEmbeddingConfig() error  { return f.embeddingErr }

// fakeWatcher implements driven.LogWatcher with a fixed list of changes.
type fakeWatcher struct {
	changes []domain.LogChange
	err     error
}

func (f *fakeWatcher) Watch(ctx context.Context) (<-chan domain.LogChange, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan domain.LogChange, len(f.changes))
	for _, c := range f.changes {
		ch <- c
	}
	close(ch)
	return ch, nil
}

// fakeLive implements driving.LiveSearch.
type fakeLive struct {
	mode    domain.SearchMode
	updates chan domain.LiveUpdate
}

func (f *fakeLive) Input(string)                      {}
func (f *fakeLive) SetMode(mode domain.SearchMode)    { f.mode = mode }
func (f *fakeLive) Mode() domain.SearchMode           { return f.mode }
func (f *fakeLive) State() domain.LiveState           { return domain.LiveIdle }
func (f *fakeLive) Updates() <-chan domain.LiveUpdate { return f.updates }
func (f *fakeLive) Close()                            {}

var _ driving.LiveSearch = (*fakeLive)(nil)

func testConversations() []*domain.Conversation {
	modified := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)
	return []*domain.Conversation{
		{
			ID:         "4f1c2a9e-0000-4000-8000-000000000001",
			Project:    "billing-api",
			Path:       "/logs/billing-api/4f1c2a9e.jsonl",
			StartedAt:  modified.Add(-time.Hour),
			ModifiedAt: modified,
			SizeBytes:  2048,
			Turns: []domain.Turn{
				{Role: domain.RoleUser, Text: "why does the invoice job retry forever", Ordinal: 0},
				{Role: domain.RoleAssistant, Text: "the backoff never resets", Ordinal: 1},
			},
		},
		{
			ID:         "9b7d0c11-0000-4000-8000-000000000002",
			Project:    "dotfiles",
			Path:       "/logs/dotfiles/9b7d0c11.jsonl",
			StartedAt:  modified.Add(-48 * time.Hour),
			ModifiedAt: modified.Add(-24 * time.Hour),
			SizeBytes:  512,
			Turns: []domain.Turn{
				{Role: domain.RoleUser, Text: "set up tmux bindings", Ordinal: 0},
			},
		},
	}
}

// resetFlags restores every flag of every command to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue) //nolint:errcheck // defaults always parse
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args against svcs and returns its output.
func execute(t *testing.T, svcs *Services, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	SetBootstrap(nil)
	SetServices(svcs)
	t.Cleanup(func() {
		SetServices(nil)
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		resetFlags(rootCmd)
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}
