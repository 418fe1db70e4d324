package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure ExportService implements the interface.
var _ driving.ExportService = (*ExportService)(nil)

// exportDirName is the folder created under each fallback location.
const exportDirName = "Claude logs"

// ExportService renders conversations with the registered exporters.
type ExportService struct {
	conversations driving.ConversationService
	exporters     map[domain.ExportFormat]driven.Exporter
	homeDir       func() (string, error)
	workDir       func() (string, error)
}

// NewExportService creates a new export service.
func NewExportService(conversations driving.ConversationService, exporters ...driven.Exporter) *ExportService {
	byFormat := make(map[domain.ExportFormat]driven.Exporter, len(exporters))
	for _, e := range exporters {
		byFormat[e.Format()] = e
	}
	return &ExportService{
		conversations: conversations,
		exporters:     byFormat,
		homeDir:       os.UserHomeDir,
		workDir:       os.Getwd,
	}
}

// Export writes each conversation to dir in the given format. An empty dir
// selects the first writable fallback location. Conversations that fail are
// skipped; the error reports the first failure once all were attempted.
func (s *ExportService) Export(ctx context.Context, ids []string, format domain.ExportFormat, dir string) ([]domain.ExportResult, error) {
	exporter, err := s.exporter(format)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no conversations to export", domain.ErrInvalidInput)
	}

	if dir == "" {
		dir, err = s.DefaultDir()
		if err != nil {
			return nil, err
		}
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	logger.Debug("Exporting %d conversations as %s to %s", len(ids), format, dir)

	results := make([]domain.ExportResult, 0, len(ids))
	var firstErr error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.exportOne(ctx, exporter, id, dir)
		if err != nil {
			logger.Warn("Failed to export %s: %v", id, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("export %s: %w", id, err)
			}
			continue
		}
		results = append(results, res)
	}
	return results, firstErr
}

func (s *ExportService) exportOne(ctx context.Context, exporter driven.Exporter, id, dir string) (domain.ExportResult, error) {
	conv, err := s.conversations.Get(ctx, id)
	if err != nil {
		return domain.ExportResult{}, err
	}
	path := filepath.Join(dir, domain.ExportFileName(conv, exporter.Format()))

	f, err := os.Create(path)
	if err != nil {
		return domain.ExportResult{}, err
	}
	if err := exporter.Render(f, conv); err != nil {
		f.Close()
		return domain.ExportResult{}, err
	}
	if err := f.Close(); err != nil {
		return domain.ExportResult{}, err
	}
	return domain.ExportResult{ConversationID: conv.ID, Path: path, Turns: len(conv.Turns)}, nil
}

// Render writes one conversation to w.
func (s *ExportService) Render(ctx context.Context, id string, format domain.ExportFormat, w io.Writer) error {
	exporter, err := s.exporter(format)
	if err != nil {
		return err
	}
	conv, err := s.conversations.Get(ctx, id)
	if err != nil {
		return err
	}
	return exporter.Render(w, conv)
}

// Formats lists the registered export formats.
func (s *ExportService) Formats() []domain.ExportFormat {
	out := make([]domain.ExportFormat, 0, len(s.exporters))
	for _, f := range []domain.ExportFormat{domain.ExportFormatMarkdown, domain.ExportFormatJSON, domain.ExportFormatHTML} {
		if _, ok := s.exporters[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// DefaultDir returns the first writable export location among
// ~/Desktop/Claude logs, ~/Documents/Claude logs, ~/Claude logs and
// ./claude-logs, creating it if needed.
func (s *ExportService) DefaultDir() (string, error) {
	var candidates []string
	if home, err := s.homeDir(); err == nil && home != "" {
		candidates = append(candidates,
			filepath.Join(home, "Desktop", exportDirName),
			filepath.Join(home, "Documents", exportDirName),
			filepath.Join(home, exportDirName),
		)
	}
	if wd, err := s.workDir(); err == nil {
		candidates = append(candidates, filepath.Join(wd, "claude-logs"))
	}

	for _, dir := range candidates {
		if writable(dir) {
			return dir, nil
		}
		logger.Debug("Export location %s not writable", dir)
	}
	return "", fmt.Errorf("%w: no writable export directory", domain.ErrInvalidInput)
}

func (s *ExportService) exporter(format domain.ExportFormat) (driven.Exporter, error) {
	e, ok := s.exporters[format]
	if !ok {
		return nil, fmt.Errorf("%w: export format %q", domain.ErrUnsupportedType, format)
	}
	return e, nil
}

// writable creates dir and probes it with a throwaway file.
func writable(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	probe, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		return false
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name) == nil
}
