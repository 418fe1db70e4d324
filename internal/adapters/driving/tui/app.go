package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/views/conversation"
	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *styles.Styles

	// searchView is the live search input and result list.
	searchView *search.View

	// conversationView shows the conversation behind a result.
	conversationView *conversation.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// closed is set once the live session stopped delivering.
	closed bool

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:            ports,
		ctx:              context.Background(),
		styles:           s,
		searchView:       search.NewView(s, km, ports.Live, ports.ResultAction, ports.Modes()),
		conversationView: conversation.NewView(s, km, ports.ResultAction),
		currentView:      messages.ViewSearch,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.searchView.WithContext(ctx)
	a.conversationView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("recall"),
		a.searchView.Init(),
		waitForUpdate(a.ports.Live.Updates()),
	)
}

// waitForUpdate blocks on the live session and turns its next delivery into
// a message. It is re-issued after every delivery.
func waitForUpdate(updates <-chan domain.LiveUpdate) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return messages.LiveClosed{}
		}
		return messages.LiveResults{Update: u}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewConversation {
			a.conversationView, cmd = a.conversationView.Update(msg)
			return a, cmd
		}
		a.searchView, cmd = a.searchView.Update(msg)
		return a, cmd

	case messages.LiveResults:
		a.searchView, _ = a.searchView.Update(msg)
		return a, waitForUpdate(a.ports.Live.Updates())

	case messages.LiveClosed:
		a.closed = true
		return a, nil

	case messages.ConversationRequested:
		return a, a.loadConversation(msg.Result)

	case messages.ConversationLoaded:
		if msg.Err != nil {
			a.searchView.ShowError(msg.Err)
			return a, nil
		}
		a.conversationView.Show(msg.Conversation, msg.Ordinal)
		a.currentView = messages.ViewConversation
		return a, nil

	case messages.ViewChanged:
		a.currentView = msg.View
		return a, nil

	case messages.ActionCompleted:
		if a.currentView == messages.ViewConversation {
			a.conversationView, cmd = a.conversationView.Update(msg)
			return a, cmd
		}
		a.searchView, cmd = a.searchView.Update(msg)
		return a, cmd

	case messages.CorpusChanged:
		a.searchView, cmd = a.searchView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.searchView, cmd = a.searchView.Update(msg)
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	if a.currentView == messages.ViewConversation {
		a.conversationView, cmd = a.conversationView.Update(msg)
		return a, cmd
	}
	a.searchView, cmd = a.searchView.Update(msg)
	return a, cmd
}

// loadConversation fetches the conversation behind a result.
func (a *App) loadConversation(result domain.SearchResult) tea.Cmd {
	ctx := a.ctx
	conversations := a.ports.Conversations
	return func() tea.Msg {
		conv, err := conversations.Get(ctx, result.ConversationID)
		return messages.ConversationLoaded{
			Conversation: conv,
			Ordinal:      result.Ordinal,
			Err:          err,
		}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	if a.currentView == messages.ViewConversation {
		return a.conversationView.View()
	}
	return a.searchView.View()
}

// Run starts the TUI application. Every change received on changes is
// delivered to the running program; changes may be nil.
func (a *App) Run(changes <-chan domain.LogChange) error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	if changes != nil {
		go func() {
			for c := range changes {
				p.Send(messages.CorpusChanged{Change: c})
			}
		}()
	}
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// SearchView returns the search view.
func (a *App) SearchView() *search.View {
	return a.searchView
}

// ConversationView returns the conversation view.
func (a *App) ConversationView() *conversation.View {
	return a.conversationView
}

// Closed reports whether the live session stopped delivering.
func (a *App) Closed() bool {
	return a.closed
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.searchView.SetDimensions(width, height)
	a.conversationView.SetDimensions(width, height)
}
