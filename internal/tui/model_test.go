package tui

// Notes:
// - Tests drive Model.Update directly against a real document.Session running
//   on a goroutine; no terminal program is started.
// - Commands returned by Update may include the cursor blink, which resolves
//   after its blink interval, so collect runs every command with a timeout.

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alnah/markforge"
	"github.com/alnah/markforge/internal/document"
)

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

// headingRenderer turns "# " and "## " lines into headings.
type headingRenderer struct{}

func (headingRenderer) Render(_ context.Context, text string) (string, error) {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "## "):
			b.WriteString("<h2>" + strings.TrimPrefix(line, "## ") + "</h2>")
		case strings.HasPrefix(line, "# "):
			b.WriteString("<h1>" + strings.TrimPrefix(line, "# ") + "</h1>")
		case line != "":
			b.WriteString("<p>" + line + "</p>")
		}
	}
	return b.String(), nil
}

type nopExporter struct{}

func (nopExporter) Export(context.Context, markforge.Input, markforge.Format, string) error {
	return nil
}

type harness struct {
	queue   *document.Queue
	prompts chan promptMsg
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{prompts: make(chan promptMsg, 1)}
	prompter := &Prompter{}
	prompter.Attach(func(msg tea.Msg) { h.prompts <- msg.(promptMsg) })

	session := document.NewSession(headingRenderer{},
		document.WithPrompter(prompter),
		document.WithExporter(nopExporter{}),
	)
	h.queue = document.NewQueue(0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx, h.queue.Commands()) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func (h *harness) model(first *document.Command) Model {
	m := NewModel(context.Background(), h.queue, first)
	m.resize(100, 30)
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm, cmd
}

// collect runs cmd and every command in nested batches.
func collect(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}

	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("command did not return")
	}

	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(t, c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// result returns the single resultMsg produced by cmd.
func result(t *testing.T, cmd tea.Cmd) resultMsg {
	t.Helper()
	var found []resultMsg
	for _, msg := range collect(t, cmd) {
		if r, ok := msg.(resultMsg); ok {
			found = append(found, r)
		}
	}
	if len(found) != 1 {
		t.Fatalf("got %d results, want 1", len(found))
	}
	return found[0]
}

func ctrl(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// ---------------------------------------------------------------------------
// TestModel_Start - First command
// ---------------------------------------------------------------------------

func TestModel_StartLoadsText(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.model(&document.Command{Op: document.OpLoad, Text: "# Hello\n\nworld"})

	if !m.busy {
		t.Fatal("model should be busy until the first result")
	}
	m, _ = update(t, m, result(t, send(m.ctx, m.queue, *m.first)))

	if got := m.editor.Value(); got != "# Hello\n\nworld" {
		t.Errorf("editor = %q", got)
	}
	if m.view.Title != "Untitled" || m.view.Words != 3 {
		t.Errorf("view = %+v", m.view)
	}
	if m.busy {
		t.Error("model still busy")
	}
	if !strings.Contains(outline(m.view), "Hello") {
		t.Errorf("outline = %q", outline(m.view))
	}
}

// ---------------------------------------------------------------------------
// TestModel_Editing - Keystrokes reach the session
// ---------------------------------------------------------------------------

func TestModel_TypingSendsEdit(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.model(nil)

	m, cmd := update(t, m, runes("a"))
	if !m.busy || m.inflight != document.OpEdit {
		t.Fatalf("busy=%v inflight=%v, want edit in flight", m.busy, m.inflight)
	}

	m, _ = update(t, m, result(t, cmd))
	if m.view.Title != "Untitled*" || m.view.State != document.Modified {
		t.Errorf("view = %+v", m.view)
	}
	if m.view.Words != 1 {
		t.Errorf("Words = %d, want 1", m.view.Words)
	}
}

func TestModel_EditsCoalesceWhileBusy(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.model(nil)
	m.busy = true

	for _, r := range "abc" {
		m, _ = update(t, m, runes(string(r)))
	}

	if len(m.outbox) != 1 {
		t.Fatalf("outbox has %d commands, want 1", len(m.outbox))
	}
	if m.outbox[0].Op != document.OpEdit || m.outbox[0].Text != "abc" {
		t.Errorf("outbox[0] = %+v", m.outbox[0])
	}
	if !m.modified() {
		t.Error("pending edit should count as modified")
	}
}

func TestModel_CommandsKeepOrder(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.model(nil)
	m.busy = true

	m, _ = update(t, m, runes("x"))
	m, _ = update(t, m, ctrl(tea.KeyCtrlE))
	m, _ = update(t, m, runes("y"))

	ops := make([]document.Op, len(m.outbox))
	for i, c := range m.outbox {
		ops[i] = c.Op
	}
	want := []document.Op{document.OpEdit, document.OpExportHTML, document.OpEdit}
	if len(ops) != len(want) {
		t.Fatalf("outbox ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("ops[%d] = %v, want %v", i, ops[i], want[i])
		}
	}
}

func TestModel_OpenDropsEditsTypedBeforeIt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte("# Opened"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := newHarness(t)
	m := h.model(&document.Command{Op: document.OpOpen, Path: path})
	open := send(m.ctx, m.queue, *m.first)

	m, _ = update(t, m, runes("k"))
	if len(m.outbox) != 1 || m.outbox[0].Op != document.OpEdit {
		t.Fatalf("outbox = %+v, want one queued edit", m.outbox)
	}

	m, cmd := update(t, m, result(t, open))
	if got := m.editor.Value(); got != "# Opened" {
		t.Errorf("editor = %q, want opened text", got)
	}
	if len(m.outbox) != 0 || m.busy || cmd != nil {
		t.Fatalf("outbox=%+v busy=%v, want the queued edit dropped", m.outbox, m.busy)
	}
	if m.view.State != document.Clean {
		t.Errorf("State = %v, want Clean", m.view.State)
	}

	m, cmd = update(t, m, runes("!"))
	res := result(t, cmd)
	if res.op != document.OpEdit || res.res.Doc.Text != "# Opened!" {
		t.Errorf("next edit = %v %q, want %q", res.op, res.res.Doc.Text, "# Opened!")
	}
	m, _ = update(t, m, res)
	if m.view.Path != path {
		t.Errorf("Path = %q, want %q", m.view.Path, path)
	}
}

func TestModel_FailedOpenKeepsEdits(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.model(&document.Command{Op: document.OpOpen, Path: filepath.Join(t.TempDir(), "missing.md")})
	open := send(m.ctx, m.queue, *m.first)

	m, _ = update(t, m, runes("k"))
	m, cmd := update(t, m, result(t, open))
	if !m.failed {
		t.Error("failed open should show an error status")
	}
	if got := m.editor.Value(); got != "k" {
		t.Errorf("editor = %q, want %q", got, "k")
	}

	res := result(t, cmd)
	if res.op != document.OpEdit || res.res.Doc.Text != "k" {
		t.Errorf("next edit = %v %q, want %q", res.op, res.res.Doc.Text, "k")
	}
}

// ---------------------------------------------------------------------------
// TestModel_Confirm - Discarding unsaved changes
// ---------------------------------------------------------------------------

func TestModel_ConfirmBeforeDiscard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  tea.KeyType
		op   document.Op
	}{
		{name: "new", key: tea.KeyCtrlN, op: document.OpNew},
		{name: "open", key: tea.KeyCtrlO, op: document.OpOpen},
		{name: "quit", key: tea.KeyCtrlQ, op: document.OpExit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			m := h.model(nil)
			m.view.State = document.Modified

			m, cmd := update(t, m, ctrl(tt.key))
			if cmd != nil || m.busy {
				t.Fatal("first press should only ask for confirmation")
			}
			if !strings.Contains(m.status, "Unsaved changes") {
				t.Errorf("status = %q", m.status)
			}

			m, cmd = update(t, m, ctrl(tt.key))
			if cmd == nil || m.inflight != tt.op {
				t.Errorf("second press: inflight = %v, want %v", m.inflight, tt.op)
			}
		})
	}
}

func TestModel_ConfirmResetByOtherKey(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.model(nil)
	m.view.State = document.Modified
	m.busy = true // keep edits in the outbox

	m, _ = update(t, m, ctrl(tea.KeyCtrlN))
	m, _ = update(t, m, runes("z"))
	m, _ = update(t, m, ctrl(tea.KeyCtrlN))

	for _, c := range m.outbox {
		if c.Op == document.OpNew {
			t.Fatal("new was queued without a second consecutive press")
		}
	}
}

func TestModel_QuitWhenClean(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.model(nil)

	m, cmd := update(t, m, ctrl(tea.KeyCtrlQ))
	if m.inflight != document.OpExit {
		t.Fatalf("inflight = %v, want exit", m.inflight)
	}

	_, cmd = update(t, m, result(t, cmd))
	if cmd == nil {
		t.Fatal("exit result returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("exit result did not quit the program")
	}
}

// ---------------------------------------------------------------------------
// TestModel_Prompt - Path prompt round trip
// ---------------------------------------------------------------------------

func TestModel_SaveAsThroughPrompt(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.model(nil)
	m, cmd := update(t, m, runes("#"))
	m, _ = update(t, m, result(t, cmd))

	m, cmd = update(t, m, ctrl(tea.KeyCtrlA))
	if cmd == nil {
		t.Fatal("save as returned no command")
	}
	results := make(chan tea.Msg, 1)
	go func() { results <- cmd() }()

	var prompt promptMsg
	select {
	case prompt = <-h.prompts:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not prompt")
	}
	if prompt.kind != document.PromptSave || prompt.suggested != "untitled.md" {
		t.Errorf("prompt = (%v, %q)", prompt.kind, prompt.suggested)
	}

	m, _ = update(t, m, prompt)
	if m.prompt == nil || m.input.Value() != "untitled.md" {
		t.Fatalf("prompt not shown: %q", m.input.Value())
	}
	if !strings.Contains(m.View(), "Save As: ") {
		t.Error("view does not show the prompt label")
	}

	path := filepath.Join(t.TempDir(), "saved.md")
	m.input.SetValue(path)
	m, _ = update(t, m, ctrl(tea.KeyEnter))
	if m.prompt != nil {
		t.Error("prompt still open after enter")
	}

	var res tea.Msg
	select {
	case res = <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("save did not finish")
	}
	if _, ok := res.(resultMsg); !ok {
		t.Fatalf("save produced %T, want resultMsg", res)
	}
	m, _ = update(t, m, res)

	if m.view.Title != "saved.md" || m.view.State != document.Clean {
		t.Errorf("view = %+v", m.view)
	}
	if data, err := os.ReadFile(path); err != nil || string(data) != "#" {
		t.Errorf("saved file = %q, %v", data, err)
	}
	if !strings.Contains(m.status, "Saved") {
		t.Errorf("status = %q", m.status)
	}
}

func TestModel_PromptCancel(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.model(nil)
	reply := make(chan promptAnswer, 1)

	m, _ = update(t, m, promptMsg{kind: document.PromptExportPDF, suggested: "untitled.pdf", reply: reply})
	m, _ = update(t, m, ctrl(tea.KeyEsc))

	a := <-reply
	if !errors.Is(a.err, document.ErrCanceled) {
		t.Errorf("answer error = %v, want %v", a.err, document.ErrCanceled)
	}
	if m.prompt != nil {
		t.Error("prompt still open after esc")
	}
}

func TestModel_PromptOpenFiltersMarkdown(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.model(nil)
	reply := make(chan promptAnswer, 1)

	m, _ = update(t, m, promptMsg{kind: document.PromptOpen, reply: reply})
	m.input.SetValue("notes.txt")
	m, _ = update(t, m, ctrl(tea.KeyEnter))

	if m.prompt == nil {
		t.Fatal("prompt closed for a non-Markdown file")
	}
	if !m.failed {
		t.Error("no error shown for a non-Markdown file")
	}
	select {
	case a := <-reply:
		t.Fatalf("unexpected answer %+v", a)
	default:
	}

	m.input.SetValue("notes.markdown")
	m, _ = update(t, m, ctrl(tea.KeyEnter))
	if a := <-reply; a.path != "notes.markdown" || a.err != nil {
		t.Errorf("answer = %+v", a)
	}
	if m.prompt != nil {
		t.Error("prompt still open")
	}
}

func TestModel_EmptyAnswerCancels(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.model(nil)
	reply := make(chan promptAnswer, 1)

	m, _ = update(t, m, promptMsg{kind: document.PromptSave, reply: reply})
	m.input.SetValue("   ")
	_, _ = update(t, m, ctrl(tea.KeyEnter))

	if a := <-reply; !errors.Is(a.err, document.ErrCanceled) {
		t.Errorf("answer = %+v, want canceled", a)
	}
}

// ---------------------------------------------------------------------------
// TestModel_Results - Status messages
// ---------------------------------------------------------------------------

func TestModel_ResultErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.model(nil)
	m.busy, m.inflight = true, document.OpSave

	m, _ = update(t, m, resultMsg{op: document.OpSave, res: document.Result{Err: document.ErrCanceled}})
	if m.status != "Canceled." || m.failed {
		t.Errorf("canceled: status = %q failed = %v", m.status, m.failed)
	}

	m, _ = update(t, m, resultMsg{op: document.OpOpen, res: document.Result{
		View: document.View{Title: "Untitled"},
		Doc:  document.Document{Text: "ignored"},
		Err:  document.ErrRead,
	}})
	if !m.failed || !strings.Contains(m.status, "read") {
		t.Errorf("failure: status = %q failed = %v", m.status, m.failed)
	}
	if m.editor.Value() != "" {
		t.Error("failed open replaced the editor text")
	}

	_, cmd := update(t, m, resultMsg{op: document.OpEdit, err: context.Canceled})
	if cmd == nil {
		t.Fatal("transport failure did not quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("transport failure did not quit")
	}
}

// ---------------------------------------------------------------------------
// TestView - Rendering
// ---------------------------------------------------------------------------

func TestModel_View(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	m := h.model(nil)
	m.apply(document.View{Title: "notes.md*", Words: 42, State: document.Modified, HTML: "<h1>Intro</h1>"})
	m.setStatus("Saved notes.md", false)

	out := m.View()
	for _, want := range []string{"notes.md*", "42 words", "Outline", "Intro", "Saved notes.md", "save as"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestOutline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		view document.View
		want []string
	}{
		{
			name: "numbered headings",
			view: document.View{HTML: "<h1>A</h1><p>x</p><h2>B</h2><h2>C</h2><h1>D</h1>"},
			want: []string{"1 A", "1.1 B", "1.2 C", "2 D"},
		},
		{
			name: "no headings",
			view: document.View{HTML: "<p>text</p>"},
			want: []string{"No headings."},
		},
		{
			name: "render error",
			view: document.View{Err: markforge.ErrRender},
			want: []string{"render error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := outline(tt.view)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("outline() = %q, missing %q", got, want)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestPrompter - Bridge to the program
// ---------------------------------------------------------------------------

func TestPrompter(t *testing.T) {
	t.Parallel()

	t.Run("not attached", func(t *testing.T) {
		t.Parallel()

		var p Prompter
		if _, err := p.PromptPath(context.Background(), document.PromptOpen, ""); !errors.Is(err, document.ErrNoPath) {
			t.Errorf("PromptPath() error = %v, want %v", err, document.ErrNoPath)
		}
	})

	t.Run("answer", func(t *testing.T) {
		t.Parallel()

		var p Prompter
		p.Attach(func(msg tea.Msg) {
			msg.(promptMsg).reply <- promptAnswer{path: "a.md"}
		})
		got, err := p.PromptPath(context.Background(), document.PromptOpen, "")
		if err != nil || got != "a.md" {
			t.Errorf("PromptPath() = %q, %v", got, err)
		}
	})

	t.Run("context done", func(t *testing.T) {
		t.Parallel()

		var p Prompter
		p.Attach(func(tea.Msg) {})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := p.PromptPath(ctx, document.PromptSave, ""); !errors.Is(err, context.Canceled) {
			t.Errorf("PromptPath() error = %v, want %v", err, context.Canceled)
		}
	})
}
