package markforge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alnah/markforge/internal/markdown"
	"github.com/alnah/markforge/internal/mathtex"
	"github.com/alnah/markforge/internal/sanitize"
)

// htmlConverter abstracts Markdown to HTML conversion.
type htmlConverter interface {
	ToHTML(ctx context.Context, content string) (string, error)
}

// htmlSanitizer abstracts the final sanitizing pass.
type htmlSanitizer interface {
	Sanitize(html string) string
}

// Compile-time interface checks.
var (
	_ htmlConverter         = (*markdown.Converter)(nil)
	_ htmlSanitizer         = (*sanitize.Sanitizer)(nil)
	_ markdown.MathRenderer = (*mathtex.Renderer)(nil)
)

// Renderer turns Markdown into a sanitized HTML fragment.
// Safe for concurrent use.
type Renderer struct {
	math      *mathtex.Renderer
	markdown  htmlConverter
	sanitizer htmlSanitizer
	engine    mathtex.Engine
	style     string
	logger    *slog.Logger
}

// NewRenderer creates a Renderer. Returns an error for an unknown math
// engine or sanitizer mode.
func NewRenderer(opts ...Option) (*Renderer, error) {
	return newRenderer(newConfig(opts))
}

func newRenderer(cfg config) (*Renderer, error) {
	engine, err := mathtex.ParseEngine(cfg.mathEngine)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMathEngine, err)
	}
	mathOpts := []mathtex.Option{mathtex.WithEngine(engine)}
	if cfg.mathCacheSize > 0 {
		mathOpts = append(mathOpts, mathtex.WithCacheSize(cfg.mathCacheSize))
	}
	math, err := mathtex.New(mathOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMathEngine, err)
	}

	mode, err := sanitize.ParseMode(cfg.sanitizer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSanitizer, err)
	}
	san, err := sanitize.New(mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSanitizer, err)
	}

	style := cfg.highlightStyle
	if style == "" {
		style = markdown.DefaultHighlightStyle
	}

	cfg.logger.Debug("renderer ready", "mathEngine", engine, "sanitizer", mode, "highlightStyle", style)

	return &Renderer{
		math: math,
		markdown: markdown.New(
			markdown.WithHighlightStyle(style),
			markdown.WithRawHTML(cfg.rawHTML),
			markdown.WithMath(math),
		),
		sanitizer: san,
		engine:    engine,
		style:     style,
		logger:    cfg.logger,
	}, nil
}

// MathEngine returns the typesetter in use.
func (r *Renderer) MathEngine() string {
	return string(r.engine)
}

// HighlightStyle returns the chroma style used for code blocks.
func (r *Renderer) HighlightStyle() string {
	return r.style
}

// Render converts text to a sanitized HTML fragment. Empty text renders to
// an empty fragment. Math errors are rendered inline, never returned.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (r *Renderer) Render(ctx context.Context, text string) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("render panic", "panic", rec)
			out, err = "", fmt.Errorf("%w: internal error: %v", ErrRender, rec)
		}
	}()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	extraction := r.math.Extract(markdown.NormalizeLineEndings(text))

	html, err := r.markdown.ToHTML(ctx, extraction.Text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %v", ErrHTMLConversion, err)
	}

	html = extraction.Expand(html)
	r.logger.Debug("rendered", "bytes", len(text), "mathSpans", extraction.Len())

	return r.sanitizer.Sanitize(html), nil
}
