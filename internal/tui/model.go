// Package tui is the terminal front end of the editor. It owns no document
// state: every action is sent to a document.Session through its command
// queue, and the returned View is drawn.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alnah/markforge/internal/document"
	"github.com/alnah/markforge/internal/fileutil"
	"github.com/alnah/markforge/internal/htmltree"
)

// noOp marks the absence of a pending confirmation or in-flight command.
const noOp document.Op = -1

// chrome is the number of lines used by the status bar, prompt and help.
const chrome = 3

// resultMsg carries the reply to a command sent to the session.
type resultMsg struct {
	op  document.Op
	res document.Result
	err error // transport failure, not a command failure
}

// Model is the bubbletea model.
type Model struct {
	ctx   context.Context
	queue *document.Queue

	editor  textarea.Model
	input   textinput.Model
	preview viewport.Model
	help    help.Model

	view     document.View
	outbox   []document.Command
	busy     bool
	inflight document.Op
	first    *document.Command
	prompt   *promptMsg
	confirm  document.Op
	status   string
	failed   bool

	width, height int
}

// NewModel creates a model that sends commands to q. first, when non-nil, is
// sent on start (for example OpOpen or OpLoad with the welcome text).
func NewModel(ctx context.Context, q *document.Queue, first *document.Command) Model {
	ta := textarea.New()
	ta.Placeholder = "Start typing Markdown..."
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.ShowLineNumbers = false
	ta.Focus()

	ti := textinput.New()
	ti.CharLimit = 4096

	m := Model{
		ctx:      ctx,
		queue:    q,
		editor:   ta,
		input:    ti,
		preview:  viewport.New(40, 10),
		help:     help.New(),
		view:     document.View{Title: "Untitled"},
		inflight: noOp,
		confirm:  noOp,
	}
	if first != nil {
		m.first = first
		m.busy = true
		m.inflight = first.Op
	}
	m.preview.SetContent(outline(m.view))
	return m
}

// Init sends the first command, if any.
func (m Model) Init() tea.Cmd {
	if m.first == nil {
		return textarea.Blink
	}
	return tea.Batch(textarea.Blink, send(m.ctx, m.queue, *m.first))
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case resultMsg:
		return m.handleResult(msg)
	case promptMsg:
		return m.startPrompt(msg), textinput.Blink
	case tea.KeyMsg:
		if m.prompt != nil {
			return m.updatePrompt(msg)
		}
		return m.updateEditor(msg)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	cmds = append(cmds, cmd)
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.preview, cmd = m.preview.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// ---------------------------------------------------------------------------
// Editor mode
// ---------------------------------------------------------------------------

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if op, ok := menuOp(msg); ok {
		if needsConfirm(op) && m.modified() && m.confirm != op {
			m.confirm = op
			m.setStatus(confirmText(op), false)
			return m, nil
		}
		m.confirm = noOp
		m.setStatus("", false)
		return m, m.enqueue(document.Command{Op: op})
	}

	m.confirm = noOp
	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if text := m.editor.Value(); text != before {
		return m, tea.Batch(cmd, m.enqueue(document.Command{Op: document.OpEdit, Text: text}))
	}
	return m, cmd
}

func menuOp(msg tea.KeyMsg) (document.Op, bool) {
	switch {
	case key.Matches(msg, editorKeys.New):
		return document.OpNew, true
	case key.Matches(msg, editorKeys.Open):
		return document.OpOpen, true
	case key.Matches(msg, editorKeys.Save):
		return document.OpSave, true
	case key.Matches(msg, editorKeys.SaveAs):
		return document.OpSaveAs, true
	case key.Matches(msg, editorKeys.ExportHTML):
		return document.OpExportHTML, true
	case key.Matches(msg, editorKeys.ExportPDF):
		return document.OpExportPDF, true
	case key.Matches(msg, editorKeys.Quit):
		return document.OpExit, true
	}
	return noOp, false
}

// needsConfirm reports whether op discards unsaved changes.
func needsConfirm(op document.Op) bool {
	return op == document.OpNew || op == document.OpOpen || op == document.OpExit
}

func confirmText(op document.Op) string {
	action := map[document.Op]string{
		document.OpNew:  "start a new document",
		document.OpOpen: "open another file",
		document.OpExit: "quit",
	}[op]
	return "Unsaved changes. Press the key again to " + action + "."
}

// modified includes edits that have not reached the session yet.
func (m Model) modified() bool {
	if m.view.State == document.Modified || m.inflight == document.OpEdit {
		return true
	}
	for _, c := range m.outbox {
		if c.Op == document.OpEdit {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Command queue
// ---------------------------------------------------------------------------

// enqueue adds c to the outbox. Consecutive edits collapse into the latest.
func (m *Model) enqueue(c document.Command) tea.Cmd {
	if n := len(m.outbox); n > 0 && c.Op == document.OpEdit && m.outbox[n-1].Op == document.OpEdit {
		m.outbox[n-1] = c
	} else {
		m.outbox = append(m.outbox, c)
	}
	return m.flush()
}

// flush sends the next command unless one is in flight. Commands reach the
// session one at a time and in order.
func (m *Model) flush() tea.Cmd {
	if m.busy || len(m.outbox) == 0 {
		return nil
	}
	c := m.outbox[0]
	m.outbox = m.outbox[1:]
	m.busy = true
	m.inflight = c.Op
	return send(m.ctx, m.queue, c)
}

// dropEdits discards queued edits. They were typed against the buffer that a
// New, Open or Load just replaced, and the editor now shows the new text.
func (m *Model) dropEdits() {
	var kept []document.Command
	for _, c := range m.outbox {
		if c.Op != document.OpEdit {
			kept = append(kept, c)
		}
	}
	m.outbox = kept
}

func send(ctx context.Context, q *document.Queue, c document.Command) tea.Cmd {
	return func() tea.Msg {
		res, err := q.Send(ctx, c)
		return resultMsg{op: c.Op, res: res, err: err}
	}
}

func (m Model) handleResult(msg resultMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.inflight = noOp

	if msg.err != nil {
		m.setStatus(msg.err.Error(), true)
		return m, tea.Quit
	}

	m.apply(msg.res.View)
	switch msg.op {
	case document.OpNew, document.OpOpen, document.OpLoad:
		if msg.res.Err == nil {
			m.editor.SetValue(msg.res.Doc.Text)
			m.dropEdits()
		}
	}

	switch err := msg.res.Err; {
	case err == nil:
		m.setStatus(doneText(msg.op, msg.res.View), false)
	case errors.Is(err, document.ErrCanceled):
		m.setStatus("Canceled.", false)
	default:
		m.setStatus(err.Error(), true)
	}

	if msg.op == document.OpExit {
		return m, tea.Quit
	}
	return m, m.flush()
}

func doneText(op document.Op, v document.View) string {
	switch op {
	case document.OpOpen:
		return "Opened " + v.Path
	case document.OpSave, document.OpSaveAs:
		return "Saved " + v.Path
	case document.OpExportHTML:
		return "Exported HTML."
	case document.OpExportPDF:
		return "Exported PDF."
	default:
		return ""
	}
}

func (m *Model) apply(v document.View) {
	m.view = v
	m.preview.SetContent(outline(v))
}

func (m *Model) setStatus(s string, failed bool) {
	m.status = s
	m.failed = failed
}

// ---------------------------------------------------------------------------
// Prompt mode
// ---------------------------------------------------------------------------

func (m Model) startPrompt(msg promptMsg) Model {
	m.prompt = &msg
	m.input.Prompt = msg.kind.String() + ": "
	m.input.SetValue(msg.suggested)
	m.input.CursorEnd()
	m.input.Focus()
	m.editor.Blur()
	m.setStatus("", false)
	return m
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, promptKeys.Cancel):
		return m.answer(promptAnswer{err: document.ErrCanceled})
	case key.Matches(msg, promptKeys.Confirm):
		path := strings.TrimSpace(m.input.Value())
		if path == "" {
			return m.answer(promptAnswer{err: document.ErrCanceled})
		}
		if m.prompt.kind == document.PromptOpen && !fileutil.IsMarkdown(path) {
			m.setStatus("Choose a .md or .markdown file.", true)
			return m, nil
		}
		return m.answer(promptAnswer{path: path})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) answer(a promptAnswer) (tea.Model, tea.Cmd) {
	m.prompt.reply <- a
	m.prompt = nil
	m.input.Blur()
	m.input.SetValue("")
	return m, m.editor.Focus()
}

// ---------------------------------------------------------------------------
// View
// ---------------------------------------------------------------------------

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width

	frame := paneStyle.GetHorizontalFrameSize()
	paneWidth := max(width/2-frame, 10)
	paneHeight := max(height-chrome-paneStyle.GetVerticalFrameSize()-1, 3)

	m.editor.SetWidth(paneWidth)
	m.editor.SetHeight(paneHeight)
	m.preview.Width = paneWidth
	m.preview.Height = paneHeight
	m.input.Width = max(width-20, 10)
}

// View draws the editor, the outline, the status bar and the key help.
func (m Model) View() string {
	editorPane := paneStyle.Render(m.editor.View())
	previewPane := paneStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left, paneTitleStyle.Render("Outline"), m.preview.View()),
	)

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, editorPane, previewPane))
	b.WriteString("\n")
	b.WriteString(m.statusBar())
	b.WriteString("\n")

	if m.prompt != nil {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(m.help.View(promptKeys))
	} else {
		b.WriteString(m.message())
		b.WriteString("\n")
		b.WriteString(m.help.View(editorKeys))
	}
	return b.String()
}

func (m Model) statusBar() string {
	style := statusStyle
	if m.view.State == document.Modified {
		style = modifiedStyle
	}
	left := style.Render(m.view.Title)
	right := statusStyle.Render(fmt.Sprintf("%d words", m.view.Words))
	if m.busy {
		right = statusStyle.Render("working...") + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + statusStyle.Render(strings.Repeat(" ", max(gap-2, 0))) + right
}

func (m Model) message() string {
	if m.failed {
		return errorStyle.Render(m.status)
	}
	return messageStyle.Render(m.status)
}

// outline lists the headings of the rendered preview, or the render error.
func outline(v document.View) string {
	if v.Err != nil {
		return errorStyle.Render("render error: " + v.Err.Error())
	}
	headings, err := htmltree.Outline(v.HTML)
	if err != nil {
		return errorStyle.Render(err.Error())
	}
	if len(headings) == 0 {
		return messageStyle.Render("No headings.")
	}

	var b strings.Builder
	for _, h := range headings {
		b.WriteString(strings.Repeat("  ", strings.Count(h.Number, ".")))
		b.WriteString(numberStyle.Render(h.Number))
		b.WriteString(" ")
		b.WriteString(h.Text)
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
