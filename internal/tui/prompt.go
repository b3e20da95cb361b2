package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alnah/markforge/internal/document"
)

// promptMsg asks the model to show the path prompt. The answer goes to reply,
// which has room for one value.
type promptMsg struct {
	kind      document.PromptKind
	suggested string
	reply     chan<- promptAnswer
}

type promptAnswer struct {
	path string
	err  error
}

// Prompter implements document.Prompter by asking the running program for a
// path. It must be attached to a program before the session prompts.
type Prompter struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

var _ document.Prompter = (*Prompter)(nil)

// Attach routes prompts to send, usually (*tea.Program).Send.
func (p *Prompter) Attach(send func(tea.Msg)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.send = send
}

// PromptPath blocks until the user answers or ctx is done.
func (p *Prompter) PromptPath(ctx context.Context, kind document.PromptKind, suggested string) (string, error) {
	p.mu.Lock()
	send := p.send
	p.mu.Unlock()
	if send == nil {
		return "", document.ErrNoPath
	}

	reply := make(chan promptAnswer, 1)
	send(promptMsg{kind: kind, suggested: suggested, reply: reply})

	select {
	case a := <-reply:
		return a.path, a.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
