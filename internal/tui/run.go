package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/markforge/internal/document"
)

// SessionFactory builds the session the editor drives. The prompter must be
// passed to document.WithPrompter.
type SessionFactory func(p document.Prompter) *document.Session

// Run starts the session loop and the terminal editor, and blocks until the
// user quits or ctx is done. first is sent once the editor starts.
func Run(ctx context.Context, newSession SessionFactory, first *document.Command, opts ...tea.ProgramOption) error {
	prompter := &Prompter{}
	session := newSession(prompter)
	queue := document.NewQueue(0)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		err := session.Run(gctx, queue.Commands())
		if errors.Is(err, context.Canceled) && ctx.Err() == nil {
			return nil
		}
		return err
	})

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(gctx)}, opts...)
	program := tea.NewProgram(NewModel(gctx, queue, first), opts...)
	prompter.Attach(program.Send)

	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return ctx.Err()
		}
		return err
	})

	return g.Wait()
}
