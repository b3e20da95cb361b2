// Package markdown converts Markdown to an HTML fragment with goldmark.
//
// GFM, footnotes and heading IDs are enabled. Fenced code is highlighted by
// chroma with CSS classes and wrapped in a div naming its language. Fences
// tagged math or latex, and inline code written as `$…$`, go through a
// MathRenderer instead.
package markdown

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// ErrHTMLConversion indicates goldmark failed to render the document.
var ErrHTMLConversion = errors.New("HTML conversion failed")

// DefaultHighlightStyle is the chroma style used when none is configured.
const DefaultHighlightStyle = "github"

// Option configures a Converter.
type Option func(*Converter)

// WithHighlightStyle sets the chroma style name.
func WithHighlightStyle(name string) Option {
	return func(c *Converter) { c.style = name }
}

// WithRawHTML lets raw HTML in the source through goldmark. The output must
// still be sanitized.
func WithRawHTML(enabled bool) Option {
	return func(c *Converter) { c.rawHTML = enabled }
}

// WithMath sets the renderer used for math fences and `$…$` inline code.
func WithMath(m MathRenderer) Option {
	return func(c *Converter) { c.math = m }
}

// Converter renders Markdown to HTML. Safe for concurrent use.
type Converter struct {
	style   string
	rawHTML bool
	math    MathRenderer
	md      goldmark.Markdown
}

// New creates a Converter. Without WithMath, math fences render as error
// markers pointing at the missing renderer.
func New(opts ...Option) *Converter {
	c := &Converter{style: DefaultHighlightStyle}
	for _, opt := range opts {
		opt(c)
	}
	if c.math == nil {
		c.math = noMath{}
	}

	rendererOpts := []renderer.Option{}
	if c.rawHTML {
		rendererOpts = append(rendererOpts, html.WithUnsafe())
	}

	c.md = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			&mathExtension{math: c.math},
			highlighting.NewHighlighting(
				highlighting.WithStyle(c.style),
				highlighting.WithGuessLanguage(true),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
				highlighting.WithWrapperRenderer(wrapCodeBlock),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(rendererOpts...),
	)
	return c
}

// Style returns the chroma style name in use.
func (c *Converter) Style() string {
	return c.style
}

// ToHTML converts Markdown content to an HTML fragment.
// Supports context cancellation via goroutine + select pattern since
// goldmark doesn't natively support context.
func (c *Converter) ToHTML(ctx context.Context, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: panic: %v", ErrHTMLConversion, r)}
			}
		}()

		var buf bytes.Buffer
		src := convertHighlights(NormalizeLineEndings(content))
		if err := c.md.Convert([]byte(src), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		done <- result{html: convertMarkPlaceholders(buf.String())}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}

// wrapCodeBlock emits <div class="highlight language-x"> around fenced code.
// Unhighlighted blocks also get the <pre><code> chroma would have written.
func wrapCodeBlock(w util.BufWriter, cb highlighting.CodeBlockContext, entering bool) {
	if !entering {
		if !cb.Highlighted() {
			_, _ = w.WriteString("</code></pre>")
		}
		_, _ = w.WriteString("</div>\n")
		return
	}

	_, _ = w.WriteString(`<div class="highlight`)
	if lang, ok := cb.Language(); ok && len(lang) > 0 {
		_, _ = w.WriteString(" language-")
		_, _ = w.Write(util.EscapeHTML(lang))
	}
	_, _ = w.WriteString(`">`)
	if !cb.Highlighted() {
		_, _ = w.WriteString("<pre><code>")
	}
}

type noMath struct{}

func (noMath) RenderExpression(string, bool) string {
	return `<span class="katex-error" style="color:#ff6b6b">LaTeX Error: no math renderer configured</span>`
}
