package screen

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// Interactive reports whether f is a terminal the display can draw on.
func Interactive(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Run draws the display until the operator quits or ctx is cancelled.
// fullscreen selects the terminal's alternate screen.
func Run(ctx context.Context, opts Options, fullscreen bool) error {
	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if fullscreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	program := tea.NewProgram(New(opts), programOpts...)
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) || ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run screen: %w", err)
	}
	return nil
}
