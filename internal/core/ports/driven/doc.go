// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ConversationSource: Discovers and parses conversation log files
//   - ConversationStore: In-memory snapshot of parsed conversations
//   - ConfigStore: Application configuration
//   - Exporter: Renders a conversation in one export format
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, semantic mode is unavailable.
//   - VectorIndex: Vector similarity search. Built from cached embeddings.
//   - LogWatcher: Reports log file changes. Without it, the corpus is loaded once.
//   - Clipboard: System clipboard access for result actions.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
