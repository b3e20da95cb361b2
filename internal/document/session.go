package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alnah/markforge"
	"github.com/alnah/markforge/internal/fileutil"
	"github.com/alnah/markforge/internal/settings"
)

// filePerm is the mode of saved Markdown files.
const filePerm = 0o644

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

// Renderer turns Markdown into sanitized preview HTML.
type Renderer interface {
	Render(ctx context.Context, text string) (string, error)
}

// Exporter writes the document to dest in the given format.
type Exporter interface {
	Export(ctx context.Context, in markforge.Input, format markforge.Format, dest string) error
}

// Settings persists small user preferences.
type Settings interface {
	GetString(key, def string) string
	Set(key string, value any) error
}

// PromptKind tells a Prompter which dialog to show.
type PromptKind int

// Prompt kinds.
const (
	PromptOpen PromptKind = iota
	PromptSave
	PromptExportHTML
	PromptExportPDF
)

// String returns a short label for the dialog.
func (k PromptKind) String() string {
	switch k {
	case PromptOpen:
		return "Open"
	case PromptSave:
		return "Save As"
	case PromptExportHTML:
		return "Export HTML"
	case PromptExportPDF:
		return "Export PDF"
	default:
		return "Path"
	}
}

// Prompter asks the user for a path. It returns ErrCanceled when the user
// dismisses the dialog.
type Prompter interface {
	PromptPath(ctx context.Context, kind PromptKind, suggested string) (string, error)
}

var (
	_ Renderer = (*markforge.Renderer)(nil)
	_ Exporter = (*markforge.Exporter)(nil)
	_ Settings = (*settings.Store)(nil)
)

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Option configures a Session.
type Option func(*Session)

// WithExporter enables ExportHTML and ExportPDF.
func WithExporter(e Exporter) Option {
	return func(s *Session) { s.exporter = e }
}

// WithSettings records the last opened file and export directory.
func WithSettings(st Settings) Option {
	return func(s *Session) { s.settings = st }
}

// WithPrompter asks for paths when an operation has none.
func WithPrompter(p Prompter) Option {
	return func(s *Session) { s.prompter = p }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithListener is called with the new View after every transition.
func WithListener(fn func(View)) Option {
	return func(s *Session) { s.listener = fn }
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

// Session owns the editor's single document. It is not safe for concurrent
// use; drive it from one goroutine, or through Run.
type Session struct {
	doc      Document
	html     string
	err      error
	renderer Renderer
	exporter Exporter
	settings Settings
	prompter Prompter
	listener func(View)
	logger   *slog.Logger
}

// NewSession creates a session holding an empty untitled document.
func NewSession(r Renderer, opts ...Option) *Session {
	s := &Session{
		renderer: r,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current document.
func (s *Session) Snapshot() Document {
	return s.doc
}

// View returns what the editor currently shows.
func (s *Session) View() View {
	return View{
		Title: s.doc.Title(),
		HTML:  s.html,
		Words: WordCount(s.doc.Text),
		State: s.doc.State(),
		Path:  s.doc.Path,
		Err:   s.err,
	}
}

// New replaces the document with an empty untitled one. Unsaved changes are
// discarded; callers confirm first.
func (s *Session) New(ctx context.Context) View {
	s.doc = Document{}
	return s.refresh(ctx)
}

// Load replaces the document with text that has no backing file, such as the
// welcome sample. The result is clean.
func (s *Session) Load(ctx context.Context, text string) View {
	s.doc = Document{Text: text}
	return s.refresh(ctx)
}

// Open reads path into the document. With an empty path the prompter is
// asked. On failure the current document is kept.
func (s *Session) Open(ctx context.Context, path string) (View, error) {
	if path == "" {
		p, err := s.prompt(ctx, PromptOpen, s.openSuggestion())
		if err != nil {
			return s.View(), err
		}
		path = p
	}

	data, err := os.ReadFile(path) // #nosec G304 -- user-chosen document
	if err != nil {
		return s.View(), fmt.Errorf("%w: %v", ErrRead, err)
	}

	s.doc = Document{Text: string(data), Path: path}
	s.logger.Info("opened document", "path", path)
	s.remember(settings.KeyLastOpened, absPath(path))
	return s.refresh(ctx), nil
}

// Edit replaces the text and marks the document modified.
func (s *Session) Edit(ctx context.Context, text string) View {
	s.doc.Text = text
	s.doc.Modified = true
	return s.refresh(ctx)
}

// Save writes to the current path, or behaves like SaveAs when there is none.
func (s *Session) Save(ctx context.Context) (View, error) {
	if s.doc.Path == "" {
		return s.SaveAs(ctx, "")
	}
	return s.write(ctx, s.doc.Path)
}

// SaveAs writes to path and adopts it. With an empty path the prompter is
// asked, suggesting the current path or untitled.md.
func (s *Session) SaveAs(ctx context.Context, path string) (View, error) {
	if path == "" {
		suggested := s.doc.Path
		if suggested == "" {
			suggested = fileutil.SiblingPath("", ".md")
		}
		p, err := s.prompt(ctx, PromptSave, suggested)
		if err != nil {
			return s.View(), err
		}
		path = p
	}
	return s.write(ctx, path)
}

// write saves the raw text. The path is adopted only after the write succeeds,
// so a failed save leaves the document modified and its path unchanged.
func (s *Session) write(ctx context.Context, path string) (View, error) {
	if err := fileutil.WriteFileAtomic(path, []byte(s.doc.Text), filePerm); err != nil {
		s.logger.Error("saving document", "path", path, "error", err)
		return s.View(), fmt.Errorf("%w: %v", ErrWrite, err)
	}
	s.doc.Path = path
	s.doc.Modified = false
	s.logger.Info("saved document", "path", path)
	return s.refresh(ctx), nil
}

// ExportHTML writes a standalone HTML document. See Export.
func (s *Session) ExportHTML(ctx context.Context, dest string) (View, error) {
	return s.Export(ctx, markforge.FormatHTML, dest)
}

// ExportPDF writes an A4 PDF. See Export.
func (s *Session) ExportPDF(ctx context.Context, dest string) (View, error) {
	return s.Export(ctx, markforge.FormatPDF, dest)
}

// Export writes the document in format to dest. An empty dest defaults to the
// source name with the format's extension, or untitled.<ext> in the last
// export directory; a prompter, when set, may change it. Export does not
// change the document state.
func (s *Session) Export(ctx context.Context, format markforge.Format, dest string) (View, error) {
	if s.exporter == nil {
		return s.View(), ErrNoExporter
	}
	if dest == "" {
		dest = s.exportSuggestion(format)
		if s.prompter != nil {
			kind := PromptExportHTML
			if format == markforge.FormatPDF {
				kind = PromptExportPDF
			}
			p, err := s.prompt(ctx, kind, dest)
			if err != nil {
				return s.View(), err
			}
			dest = p
		}
	}

	in := markforge.Input{Text: s.doc.Text, Path: s.doc.Path}
	if err := s.exporter.Export(ctx, in, format, dest); err != nil {
		s.logger.Error("exporting document", "format", format, "path", dest, "error", err)
		return s.View(), err
	}

	s.logger.Info("exported document", "format", format, "path", dest)
	s.remember(settings.KeyLastExportDir, filepath.Dir(absPath(dest)))
	return s.View(), nil
}

// refresh re-renders the preview and notifies the listener. A render error
// keeps the previous preview.
func (s *Session) refresh(ctx context.Context) View {
	html, err := s.renderer.Render(ctx, s.doc.Text)
	if err != nil {
		s.logger.Warn("rendering preview", "error", err)
		s.err = err
	} else {
		s.html = html
		s.err = nil
	}

	v := s.View()
	if s.listener != nil {
		s.listener(v)
	}
	return v
}

func (s *Session) prompt(ctx context.Context, kind PromptKind, suggested string) (string, error) {
	if s.prompter == nil {
		return "", ErrNoPath
	}
	p, err := s.prompter.PromptPath(ctx, kind, suggested)
	if err != nil {
		return "", err
	}
	if p == "" {
		return "", ErrCanceled
	}
	return p, nil
}

// remember stores a preference. Failures are logged, never returned.
func (s *Session) remember(key, value string) {
	if s.settings == nil {
		return
	}
	if err := s.settings.Set(key, value); err != nil {
		s.logger.Warn("recording setting", "key", key, "error", err)
	}
}

func (s *Session) openSuggestion() string {
	if s.doc.Path != "" {
		return filepath.Dir(s.doc.Path)
	}
	if s.settings != nil {
		if last := s.settings.GetString(settings.KeyLastOpened, ""); last != "" {
			return filepath.Dir(last)
		}
	}
	return ""
}

func (s *Session) exportSuggestion(format markforge.Format) string {
	dest := fileutil.SiblingPath(s.doc.Path, format.Ext())
	if s.doc.Path == "" && s.settings != nil {
		if dir := s.settings.GetString(settings.KeyLastExportDir, ""); dir != "" {
			dest = filepath.Join(dir, dest)
		}
	}
	return dest
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// isCanceled reports whether err means the user backed out.
func isCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}
