package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// Run blocks until the player quits.
func Run(ctx context.Context, service QuizService, opts Options, in io.Reader, out io.Writer) error {
	program := tea.NewProgram(
		NewModel(ctx, service, opts),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}
