// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
//   - ConversationService loads logs into the conversation store.
//   - SearchService runs one-shot queries against an index of the store.
//   - LiveSearch debounces keystrokes into searches for the TUI.
//   - ExportService and ResultActionService act on conversations and hits.
//   - SettingsService reads and writes the TOML configuration.
//
// Services are pure Go with no CGO dependencies.
package services
