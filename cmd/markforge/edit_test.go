package main

// Notes:
// - runEdit: the terminal editor is replaced by a fake EditorFunc that drives
//   the session directly, so no TTY is needed. The TUI itself is tested in
//   internal/tui.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/markforge/internal/document"
	"github.com/alnah/markforge/internal/settings"
	"github.com/alnah/markforge/internal/tui"
)

// recordingEditor runs first through the session and records the result.
type recordingEditor struct {
	first  *document.Command
	result document.Result
}

func (e *recordingEditor) run(ctx context.Context, newSession tui.SessionFactory, first *document.Command) error {
	e.first = first
	s := newSession(nil)
	e.result = s.Execute(ctx, *first)
	return e.result.Err
}

// ---------------------------------------------------------------------------
// TestRunEdit - Startup document selection
// ---------------------------------------------------------------------------

func TestRunEdit(t *testing.T) {
	t.Parallel()

	t.Run("welcome document", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfg := writeTestConfig(t, dir, "render:\n  mathEngine: mathml\n")
		env, _, _ := testEnv(t)
		ed := &recordingEditor{}
		env.Editor = ed.run

		if err := runEdit(context.Background(), []string{"-c", cfg}, env); err != nil {
			t.Fatalf("runEdit() error = %v", err)
		}
		if ed.first.Op != document.OpLoad || ed.first.Text != document.Welcome {
			t.Errorf("first = %v, want OpLoad with the welcome text", ed.first.Op)
		}
		if ed.result.View.Title != "Untitled" {
			t.Errorf("title = %q, want Untitled", ed.result.View.Title)
		}
		if !strings.Contains(ed.result.View.HTML, "<table>") {
			t.Error("welcome document should render its table")
		}
	})

	t.Run("named file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfg := writeTestConfig(t, dir, "render:\n  mathEngine: mathml\n")
		doc := writeFile(t, dir, "notes.md", "# Notes\n")
		env, _, _ := testEnv(t)
		ed := &recordingEditor{}
		env.Editor = ed.run

		if err := runEdit(context.Background(), []string{"-c", cfg, doc}, env); err != nil {
			t.Fatalf("runEdit() error = %v", err)
		}
		if ed.first.Op != document.OpOpen || ed.first.Path != doc {
			t.Errorf("first = %v %q, want open %q", ed.first.Op, ed.first.Path, doc)
		}
		if ed.result.Doc.Text != "# Notes\n" {
			t.Errorf("text = %q", ed.result.Doc.Text)
		}

		store := settings.Open(filepath.Join(dir, "settings.json"), nil)
		if got := store.GetString(settings.KeyLastOpened, ""); got != doc {
			t.Errorf("%s = %q, want %q", settings.KeyLastOpened, got, doc)
		}
	})

	t.Run("reopen last", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfg := writeTestConfig(t, dir, "render:\n  mathEngine: mathml\n")
		doc := writeFile(t, dir, "last.md", "last")
		store := settings.Open(filepath.Join(dir, "settings.json"), nil)
		if err := store.Set(settings.KeyLastOpened, doc); err != nil {
			t.Fatal(err)
		}

		env, _, _ := testEnv(t)
		ed := &recordingEditor{}
		env.Editor = ed.run

		if err := runEdit(context.Background(), []string{"-c", cfg, "--last"}, env); err != nil {
			t.Fatalf("runEdit() error = %v", err)
		}
		if ed.first.Op != document.OpOpen || ed.first.Path != doc {
			t.Errorf("first = %v %q, want open %q", ed.first.Op, ed.first.Path, doc)
		}
	})

	t.Run("log file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfg := writeTestConfig(t, dir, "render:\n  mathEngine: mathml\n")
		logPath := filepath.Join(dir, "edit.log")
		env, _, stderr := testEnv(t)
		ed := &recordingEditor{}
		env.Editor = ed.run

		if err := runEdit(context.Background(), []string{"-c", cfg, "-v", "--log-file", logPath}, env); err != nil {
			t.Fatalf("runEdit() error = %v", err)
		}
		data, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "starting editor") {
			t.Errorf("log = %q", data)
		}
		if stderr.Len() != 0 {
			t.Errorf("stderr should stay empty while editing, got %q", stderr.String())
		}
	})

	t.Run("too many files", func(t *testing.T) {
		t.Parallel()

		env, _, _ := testEnv(t)
		err := runEdit(context.Background(), []string{"a.md", "b.md"}, env)
		if !errors.Is(err, ErrUsage) {
			t.Errorf("error = %v, want ErrUsage", err)
		}
	})
}
