// Package console is the interactive operator console: the session
// directory, the selected session's draft and scores, and the activity
// of the current run, driven by a session controller.
package console

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the console and blocks until the operator quits or ctx is
// done.
func Run(ctx context.Context, ctrl Controller) error {
	model := NewModel(ctx, ctrl)
	defer model.Unsubscribe()

	_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
