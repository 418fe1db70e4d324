// Package search provides the live search view for the TUI.
package search

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
)

// View is the search view: query input, result list and status bar.
// Every edit of the query is forwarded to the live search session, and
// results arrive back as messages.LiveResults.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.SearchInput
	list      *list.ResultList
	statusbar *status.Bar

	live    driving.LiveSearch
	actions driving.ResultActionService
	modes   []domain.SearchMode
	ctx     context.Context

	width   int
	height  int
	ready   bool
	lastSeq uint64
	errMsg  string
}

// NewView creates a new search view. modes lists the modes Tab cycles
// through; an empty list allows every mode.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	live driving.LiveSearch,
	actions driving.ResultActionService,
	modes []domain.SearchMode,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	if len(modes) == 0 {
		modes = domain.AllSearchModes()
	}

	v := &View{
		styles:    s,
		keymap:    km,
		input:     input.NewSearchInput(s),
		list:      list.NewResultList(s),
		statusbar: status.NewBar(s, km),
		live:      live,
		actions:   actions,
		modes:     modes,
		ctx:       context.Background(),
		width:     80,
		height:    24,
	}
	if live != nil {
		v.statusbar.SetMode(live.Mode())
	}
	return v
}

// WithContext sets the context used for result actions.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.LiveResults:
		v.handleUpdate(msg.Update)
		return v, nil

	case messages.ActionCompleted:
		if msg.Err != nil {
			v.statusbar.SetMessage(Describe(msg.Err))
		} else {
			v.statusbar.SetMessage(msg.Message)
		}
		return v, nil

	case messages.CorpusChanged:
		v.Refresh()
		return v, nil

	case messages.ErrorOccurred:
		v.ShowError(msg.Err)
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keymap.Quit):
		return v, func() tea.Msg { return messages.Quit{} }
	case key.Matches(msg, v.keymap.Up):
		v.list.MoveUp()
		return v, nil
	case key.Matches(msg, v.keymap.Down):
		v.list.MoveDown()
		return v, nil
	case key.Matches(msg, v.keymap.Open):
		r := v.list.SelectedResult()
		if r == nil {
			return v, nil
		}
		result := *r
		return v, func() tea.Msg { return messages.ConversationRequested{Result: result} }
	case key.Matches(msg, v.keymap.CycleMode):
		return v, v.cycleMode()
	case key.Matches(msg, v.keymap.Copy):
		return v, v.copySelected()
	case key.Matches(msg, v.keymap.OpenFile):
		return v, v.openSelected()
	}

	var changed bool
	v.input, _, changed = v.input.Update(msg)
	if changed {
		v.submit(v.input.Value())
	}
	return v, nil
}

// submit hands the full query text to the live session.
func (v *View) submit(text string) {
	v.statusbar.SetMessage("")
	if v.live == nil {
		v.ShowError(ErrNoLiveSearch)
		return
	}
	v.live.Input(text)
	if text == "" {
		v.errMsg = ""
		v.list.SetResults(nil)
		v.statusbar.SetResultCount(0)
		v.statusbar.SetState(status.StateReady)
		return
	}
	v.statusbar.SetState(status.FromLive(v.live.State()))
}

// handleUpdate applies a live delivery. Deliveries older than the last one
// rendered are dropped.
func (v *View) handleUpdate(u domain.LiveUpdate) {
	if u.Seq < v.lastSeq {
		return
	}
	v.lastSeq = u.Seq
	if u.Mode != "" {
		v.statusbar.SetMode(u.Mode)
	}

	if u.Err != nil {
		v.ShowError(u.Err)
		return
	}

	v.errMsg = ""
	v.statusbar.SetMessage("")
	v.list.SetResults(u.Results)
	v.statusbar.SetResultCount(len(u.Results))
	if u.Query == "" {
		v.statusbar.SetState(status.StateReady)
		return
	}
	v.statusbar.SetState(status.StateResults)
}

func (v *View) cycleMode() tea.Cmd {
	if v.live == nil || len(v.modes) == 0 {
		return nil
	}
	current := v.live.Mode()
	next := v.modes[0]
	for i, m := range v.modes {
		if m == current {
			next = v.modes[(i+1)%len(v.modes)]
			break
		}
	}
	if next == current {
		return nil
	}

	v.live.SetMode(next)
	v.statusbar.SetMode(next)
	return func() tea.Msg { return messages.ModeChanged{Mode: next} }
}

func (v *View) copySelected() tea.Cmd {
	r := v.list.SelectedResult()
	if r == nil || v.actions == nil {
		return nil
	}
	result := *r
	ctx := v.ctx
	actions := v.actions
	return func() tea.Msg {
		if err := actions.CopyToClipboard(ctx, &result); err != nil {
			return messages.ActionCompleted{Err: err}
		}
		return messages.ActionCompleted{Message: "Copied to clipboard"}
	}
}

func (v *View) openSelected() tea.Cmd {
	r := v.list.SelectedResult()
	if r == nil || v.actions == nil {
		return nil
	}
	result := *r
	ctx := v.ctx
	actions := v.actions
	return func() tea.Msg {
		if err := actions.OpenConversation(ctx, &result); err != nil {
			return messages.ActionCompleted{Err: err}
		}
		return messages.ActionCompleted{Message: "Opened conversation log"}
	}
}

// Refresh re-runs the current query, e.g. after the logs changed on disk.
func (v *View) Refresh() {
	if v.live == nil || v.input.Value() == "" {
		return
	}
	v.live.Input(v.input.Value())
}

// ShowError puts the view in the inline error state. Input stays live.
func (v *View) ShowError(err error) {
	if err == nil {
		return
	}
	v.errMsg = Describe(err)
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(v.errMsg)
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 8)
	sections = append(sections, v.styles.Title.Render("recall"), "", v.input.View(), "")

	if v.errMsg != "" {
		sections = append(sections, v.styles.Error.Render(v.errMsg), "")
	}

	if v.input.Value() == "" && v.list.IsEmpty() {
		sections = append(sections, v.styles.Muted.Render("Start typing to search"))
	} else {
		sections = append(sections, v.list.View())
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-8)
	v.statusbar.SetWidth(width)
}

// Width returns the current width.
func (v *View) Width() int {
	return v.width
}

// Height returns the current height.
func (v *View) Height() int {
	return v.height
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current search query.
func (v *View) Query() string {
	return v.input.Value()
}

// Results returns the results currently shown.
func (v *View) Results() []domain.SearchResult {
	return v.list.Results()
}

// SelectedIndex returns the index of the selected result.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// SelectedResult returns the currently selected result.
func (v *View) SelectedResult() *domain.SearchResult {
	return v.list.SelectedResult()
}

// ErrorMessage returns the inline error, if any.
func (v *View) ErrorMessage() string {
	return v.errMsg
}

// LastSeq returns the sequence number of the last rendered delivery.
func (v *View) LastSeq() uint64 {
	return v.lastSeq
}

// Status returns the status bar state.
func (v *View) Status() status.State {
	return v.statusbar.State()
}

// StatusMessage returns the status bar message.
func (v *View) StatusMessage() string {
	return v.statusbar.Message()
}

// Mode returns the mode shown in the status bar.
func (v *View) Mode() domain.SearchMode {
	return v.statusbar.Mode()
}
