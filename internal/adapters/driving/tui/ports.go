// Package tui provides the interactive live search terminal interface for recall.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI needs.
type Ports struct {
	// Live is the keystroke-driven search session.
	Live driving.LiveSearch

	// Search reports which modes can run. Optional.
	Search driving.SearchService

	// Conversations loads whole conversations for the conversation view.
	Conversations driving.ConversationService

	// ResultAction copies results and opens log files. Optional.
	ResultAction driving.ResultActionService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(
	live driving.LiveSearch,
	search driving.SearchService,
	conversations driving.ConversationService,
	resultAction driving.ResultActionService,
) *Ports {
	return &Ports{
		Live:          live,
		Search:        search,
		Conversations: conversations,
		ResultAction:  resultAction,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Live == nil {
		return ErrMissingLiveSearch
	}
	if p.Conversations == nil {
		return ErrMissingConversationService
	}
	return nil
}

// Modes returns the modes Tab cycles through. Without a search service
// every mode is offered and unavailable ones report their error inline.
func (p *Ports) Modes() []domain.SearchMode {
	if p.Search == nil {
		return domain.AllSearchModes()
	}
	return p.Search.AvailableModes()
}
