// Package claudelog reads assistant session logs from disk.
//
// Each session is a line-delimited JSON file under a projects directory,
// one subdirectory per project. Source parses those files into
// conversations; Watcher reports when they change.
package claudelog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Verify interface compliance.
var _ driven.ConversationSource = (*Source)(nil)

const (
	// Extension is the suffix of session files.
	Extension = ".jsonl"

	// maxLineSize bounds a single JSONL record. Tool outputs can be large;
	// a record past the bound is skipped and the rest of the file still
	// loads.
	maxLineSize = 10 * 1024 * 1024
)

// DefaultRoot returns ~/.claude/projects.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".claude", "projects"), nil
}

// Source discovers and parses session files below a root directory.
type Source struct {
	root     string
	detailed bool
}

// Option configures a Source.
type Option func(*Source)

// WithDetailed includes tool calls, tool results and system entries as turns.
func WithDetailed(detailed bool) Option {
	return func(s *Source) { s.detailed = detailed }
}

// New creates a Source rooted at root.
func New(root string, opts ...Option) *Source {
	s := &Source{root: root}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the directory being scanned.
func (s *Source) Root() string {
	return s.root
}

// Load parses every session file below the root, most recently modified
// first. Unreadable files are logged and skipped. A missing root yields
// domain.ErrNoConversations.
func (s *Source) Load(ctx context.Context) ([]*domain.Conversation, error) {
	paths, err := s.discover(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("discovered %d session files under %s", len(paths), s.root)

	convs := make([]*domain.Conversation, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		conv, err := s.LoadFile(ctx, path)
		if err != nil {
			logger.L().Debug("skipping session file", zap.String("path", path), zap.Error(err))
			continue
		}
		convs = append(convs, conv)
	}
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].ModifiedAt.After(convs[j].ModifiedAt)
	})
	return convs, nil
}

func (s *Source) discover(ctx context.Context) ([]string, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", domain.ErrNoConversations, s.root)
		}
		return nil, fmt.Errorf("stat %s: %w", s.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, s.root)
	}

	var paths []string
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped rather than aborting discovery.
			logger.Debug("walk %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path != s.root && isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && IsSessionFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.root, err)
	}
	return paths, nil
}

// LoadFile parses one session file.
func (s *Source) LoadFile(ctx context.Context, path string) (*domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	turns, err := parseTurns(f, s.detailed, maxLineSize)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	conv := &domain.Conversation{
		ID:         sessionID(path),
		Project:    filepath.Base(filepath.Dir(path)),
		Path:       path,
		Turns:      turns,
		StartedAt:  info.ModTime(),
		ModifiedAt: info.ModTime(),
		SizeBytes:  info.Size(),
	}
	for _, t := range turns {
		if !t.Timestamp.IsZero() {
			conv.StartedAt = t.Timestamp
			break
		}
	}
	return conv, nil
}

// IsSessionFile reports whether path names a session log.
func IsSessionFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Extension) && !isHidden(filepath.Base(path))
}

// sessionID is the file stem. A file named only ".jsonl" has no stem, so
// it gets a stable id derived from its path.
func sessionID(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if stem != "" {
		return stem
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(path))).String()
}

func isHidden(name string) bool {
	return len(name) > 1 && name[0] == '.' && name != ".."
}

// entry is one JSONL record. Only the fields search and export need are
// decoded.
type entry struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Message   json.RawMessage `json:"message"`
	Tool      struct {
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"tool"`
	Result struct {
		Output string `json:"output"`
		Error  string `json:"error"`
	} `json:"result"`
}

type message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentItem struct {
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// readRecord reads one newline-terminated record. A record longer than
// limit is consumed and reported as oversized with no bytes.
func readRecord(r *bufio.Reader, limit int) (line []byte, oversized bool, err error) {
	for {
		chunk, rerr := r.ReadSlice('\n')
		if !oversized {
			if len(line)+len(chunk) > limit {
				oversized, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if !errors.Is(rerr, bufio.ErrBufferFull) {
			return line, oversized, rerr
		}
	}
}

func parseTurns(r io.Reader, detailed bool, limit int) ([]domain.Turn, error) {
	br := bufio.NewReaderSize(r, 256*1024)

	var turns []domain.Turn
	add := func(role domain.Role, text, ts string) {
		if strings.TrimSpace(text) == "" {
			return
		}
		turns = append(turns, domain.Turn{
			Role:      role,
			Text:      text,
			Ordinal:   len(turns),
			Timestamp: parseTimestamp(ts),
		})
	}

	handle := func(line []byte) {
		if len(bytes.TrimSpace(line)) == 0 {
			return
		}
		var e entry
		if err := json.Unmarshal(line, &e); err != nil {
			return
		}
		switch e.Type {
		case "user", "assistant":
			var m message
			if len(e.Message) == 0 || json.Unmarshal(e.Message, &m) != nil || m.Role != e.Type {
				return
			}
			add(domain.Role(e.Type), extractText(m.Content, detailed), e.Timestamp)
		case "tool_use":
			if detailed {
				name := e.Tool.Name
				if name == "" {
					name = "unknown"
				}
				add(domain.RoleToolUse, fmt.Sprintf("🔧 Tool: %s\nInput: %s", name, indentJSON(e.Tool.Input)), e.Timestamp)
			}
		case "tool_result":
			if detailed {
				out := e.Result.Output
				if out == "" {
					out = e.Result.Error
				}
				add(domain.RoleToolResult, "📤 Result:\n"+out, e.Timestamp)
			}
		case "system":
			if detailed {
				if text := systemText(e.Message); text != "" {
					add(domain.RoleSystem, "ℹ️ System: "+text, e.Timestamp)
				}
			}
		}
	}

	for {
		line, oversized, err := readRecord(br, limit)
		if oversized {
			logger.Debug("Skipping JSONL record over %d bytes", limit)
		} else {
			handle(line)
		}
		if errors.Is(err, io.EOF) {
			return turns, nil
		}
		if err != nil {
			return turns, err
		}
	}
}

// extractText flattens message content. Content is either a plain string or
// a list of typed items; text items are joined with newlines.
func extractText(raw json.RawMessage, detailed bool) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []contentItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return ""
	}
	var parts []string
	for _, it := range items {
		switch it.Type {
		case "text":
			if it.Text != "" {
				parts = append(parts, it.Text)
			}
		case "tool_use":
			if detailed {
				parts = append(parts, fmt.Sprintf("\n🔧 Using tool: %s\nInput: %s\n", it.Name, indentJSON(it.Input)))
			}
		}
	}
	return strings.Join(parts, "\n")
}

// systemText reads a system entry's message, which is usually a bare string.
func systemText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var m message
	if err := json.Unmarshal(raw, &m); err == nil {
		return extractText(m.Content, false)
	}
	return ""
}

func indentJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
