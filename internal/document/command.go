package document

import (
	"context"
	"fmt"
	"sync"
)

// Op names a command a front end can send to a running session.
type Op int

// Commands. They mirror the editor menu.
const (
	OpNew Op = iota
	OpOpen
	OpEdit
	OpSave
	OpSaveAs
	OpExportHTML
	OpExportPDF
	OpLoad
	OpExit
)

var opNames = [...]string{
	OpNew:        "new",
	OpOpen:       "open",
	OpEdit:       "edit",
	OpSave:       "save",
	OpSaveAs:     "save-as",
	OpExportHTML: "export-html",
	OpExportPDF:  "export-pdf",
	OpLoad:       "load",
	OpExit:       "exit",
}

// String returns the command name.
func (o Op) String() string {
	if o >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Command is one request to a running session. Text is used by OpEdit and
// OpLoad; Path by OpOpen, OpSaveAs and the exports, where empty means "ask".
type Command struct {
	Op    Op
	Text  string
	Path  string
	Reply chan<- Result // optional; must have room for one Result
}

// Result is the outcome of a Command. Doc is the document after the command.
type Result struct {
	View View
	Doc  Document
	Err  error
}

// Execute applies one command.
func (s *Session) Execute(ctx context.Context, cmd Command) Result {
	var (
		v   View
		err error
	)
	switch cmd.Op {
	case OpNew:
		v = s.New(ctx)
	case OpOpen:
		v, err = s.Open(ctx, cmd.Path)
	case OpEdit:
		v = s.Edit(ctx, cmd.Text)
	case OpLoad:
		v = s.Load(ctx, cmd.Text)
	case OpSave:
		v, err = s.Save(ctx)
	case OpSaveAs:
		v, err = s.SaveAs(ctx, cmd.Path)
	case OpExportHTML:
		v, err = s.ExportHTML(ctx, cmd.Path)
	case OpExportPDF:
		v, err = s.ExportPDF(ctx, cmd.Path)
	case OpExit:
		v = s.View()
	default:
		v, err = s.View(), fmt.Errorf("%w: %v", ErrUnknownOp, cmd.Op)
	}

	switch {
	case err == nil:
	case isCanceled(err):
		s.logger.Debug("command canceled", "op", cmd.Op)
	default:
		s.logger.Debug("command failed", "op", cmd.Op, "error", err)
	}
	return Result{View: v, Doc: s.Snapshot(), Err: err}
}

// Run consumes commands one at a time until OpExit, until cmds is closed, or
// until ctx is done. Only the first two return nil.
func (s *Session) Run(ctx context.Context, cmds <-chan Command) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-cmds:
			if !ok {
				return nil
			}
			res := s.Execute(ctx, cmd)
			if cmd.Reply != nil {
				cmd.Reply <- res
			}
			if cmd.Op == OpExit {
				return nil
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Queue
// ---------------------------------------------------------------------------

// Queue is the sending side of a session's command channel.
type Queue struct {
	cmds chan Command
	once sync.Once
}

// NewQueue creates a queue buffering up to size pending commands.
func NewQueue(size int) *Queue {
	if size < 0 {
		size = 0
	}
	return &Queue{cmds: make(chan Command, size)}
}

// Commands returns the channel to pass to Session.Run.
func (q *Queue) Commands() <-chan Command {
	return q.cmds
}

// Send enqueues cmd and waits for its Result.
func (q *Queue) Send(ctx context.Context, cmd Command) (Result, error) {
	reply := make(chan Result, 1)
	cmd.Reply = reply

	select {
	case q.cmds <- cmd:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Close ends the command stream. Run then returns nil. Sending after Close
// panics.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.cmds) })
}
