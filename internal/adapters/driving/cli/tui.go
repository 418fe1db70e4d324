package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/adapters/driving/tui"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

var tuiMode string

// tuiLogPath receives log output while the TUI owns the terminal in verbose
// mode. Otherwise logs are discarded until the TUI exits.
var tuiLogPath = filepath.Join(os.TempDir(), "recall-tui.log")

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Search conversations as you type",
	Long: `Launch the interactive live search.

Results refresh as you type. New and updated logs are picked up while the
search is open.

Controls:
  (type)    - Edit the query
  ↑/↓       - Move between results
  Enter     - Open the conversation at the matched message
  Tab       - Next search mode
  Ctrl+Y    - Copy the selected message
  Ctrl+O    - Open the conversation log file
  Esc       - Back / Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVarP(&tuiMode, "mode", "m", "", "initial search mode: smart, exact, regex, semantic")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("tui panicked: %v", r)
		}
	}()

	if newLiveSearch == nil {
		return errors.New("live search not configured")
	}

	mode, err := initialMode()
	if err != nil {
		return err
	}

	live := newLiveSearch(mode)
	defer live.Close()

	app, err := tui.NewApp(tui.NewPorts(live, searchService, conversationService, resultActionService))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()
	app.WithContext(ctx)

	restoreLogs := redirectLogs()
	defer restoreLogs()

	var changes chan domain.LogChange
	if logWatcher != nil {
		changes = make(chan domain.LogChange, 16)
		go func() {
			defer close(changes)
			err := followLogs(ctx, func(c domain.LogChange) {
				select {
				case changes <- c:
				default:
					// A refresh is already queued.
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("Live reload stopped: %v", err)
			}
		}()
	}

	err = app.Run(changes)
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// redirectLogs moves log output off the terminal while the alt screen is
// active. The returned func restores the previous writer.
func redirectLogs() func() {
	prev := logger.Output()
	var (
		w io.Writer = io.Discard
		f *os.File
	)
	if logger.IsVerbose() {
		lf, err := tea.LogToFile(tuiLogPath, "recall")
		if err != nil {
			logger.Warn("Cannot open TUI log %s, discarding logs: %v", tuiLogPath, err)
		} else {
			f, w = lf, lf
		}
	}
	logger.SetOutput(w)
	return func() {
		logger.SetOutput(prev)
		if f != nil {
			_ = f.Close()
		}
	}
}

// initialMode picks the --mode flag, then the configured default. An
// unavailable mode falls back to smart.
func initialMode() (domain.SearchMode, error) {
	mode := domain.DefaultAppSettings().Search.Mode
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil && s.Search.Mode != "" {
			mode = s.Search.Mode
		}
	}
	if tuiMode != "" {
		m, ok := domain.ParseSearchMode(tuiMode)
		if !ok {
			return "", fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, tuiMode)
		}
		mode = m
	}
	if searchService != nil {
		if err := searchService.ModeAvailable(mode); err != nil {
			logger.Warn("%v, using smart", err)
			mode = domain.SearchModeSmart
		}
	}
	return mode, nil
}
