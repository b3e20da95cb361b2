// Package mathtex finds LaTeX math in Markdown source and typesets it.
//
// Display math is delimited by $$…$$ and may span lines. Inline math is
// delimited by $…$ and may not. Spans inside code blocks or code spans
// are left alone. Each span is swapped for a Private Use Area token
// before Markdown parsing, so the typeset markup never passes through the
// Markdown parser; Extraction.Expand puts it back into the rendered HTML.
//
// Typesetting never fails from the caller's point of view: an invalid
// formula renders as a katex-error element carrying the failure message.
package mathtex

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/yuin/goldmark/util"

	"github.com/alnah/markforge/internal/mdscan"
)

// Placeholder delimiters. U+E002/U+E003 sit next to the ==highlight==
// markers (U+E000/U+E001) and pass through goldmark unchanged.
const (
	tokenStart = "\uE002"
	tokenEnd   = "\uE003"
)

// The delimiters as goldmark percent-encodes them in link destinations.
const (
	encodedStart = "%EE%80%82"
	encodedEnd   = "%EE%80%83"
)

// ErrorColor is the foreground color of the error marker.
const ErrorColor = "#ff6b6b"

// DefaultCacheSize bounds the number of memoized formulas.
const DefaultCacheSize = 512

var (
	displayPattern = regexp.MustCompile(`(?s)\$\$(.*?)\$\$`)
	inlinePattern  = regexp.MustCompile(`\$([^$\n]+)\$`)
	tokenPattern   = regexp.MustCompile(tokenStart + `(\d+)` + tokenEnd + `|` + encodedStart + `(\d+)` + encodedEnd)
	sentinelRunes  = strings.NewReplacer(tokenStart, "", tokenEnd, "")
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithEngine selects the built-in typesetting backend.
func WithEngine(e Engine) Option {
	return func(r *Renderer) { r.engine = e }
}

// WithTypesetter replaces the backend entirely. Mostly useful in tests.
func WithTypesetter(t Typesetter) Option {
	return func(r *Renderer) { r.typesetter = t }
}

// WithCacheSize sets the memo size. Zero or negative disables caching.
func WithCacheSize(n int) Option {
	return func(r *Renderer) { r.cacheSize = n }
}

// Renderer typesets math spans. Safe for concurrent use.
type Renderer struct {
	engine     Engine
	typesetter Typesetter
	cacheSize  int

	mu    sync.Mutex
	cache map[cacheKey]string
}

type cacheKey struct {
	src     string
	display bool
}

// New creates a Renderer. The default engine is KaTeX.
func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		engine:    EngineKaTeX,
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.typesetter == nil {
		t, err := typesetterFor(r.engine)
		if err != nil {
			return nil, err
		}
		r.typesetter = t
	}
	if r.cacheSize > 0 {
		r.cache = make(map[cacheKey]string, r.cacheSize)
	}
	return r, nil
}

// Engine returns the configured engine name.
func (r *Renderer) Engine() Engine {
	return r.engine
}

// RenderExpression typesets one expression. src is trimmed first.
// On failure it returns an error marker instead of an error.
func (r *Renderer) RenderExpression(src string, display bool) string {
	src = strings.TrimSpace(src)
	key := cacheKey{src: src, display: display}

	if out, ok := r.lookup(key); ok {
		return out
	}

	out, err := r.typeset(src, display)
	if err != nil {
		out = ErrorMarkup(err.Error(), display)
	}
	r.store(key, out)
	return out
}

func (r *Renderer) typeset(src string, display bool) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrTypesetPanic, rec)
		}
	}()
	return r.typesetter.Typeset(src, display)
}

func (r *Renderer) lookup(key cacheKey) (string, bool) {
	if r.cache == nil {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out, ok := r.cache[key]
	return out, ok
}

func (r *Renderer) store(key cacheKey, out string) {
	if r.cache == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.cache) >= r.cacheSize {
		clear(r.cache)
	}
	r.cache[key] = out
}

// ErrorMarkup builds the visible marker shown in place of a formula that
// failed to typeset.
func ErrorMarkup(msg string, display bool) string {
	tag := "span"
	if display {
		tag = "div"
	}
	escaped := html.EscapeString(msg)
	return fmt.Sprintf(`<%s class="katex-error" style="color:%s" title="%s">LaTeX Error: %s</%s>`,
		tag, ErrorColor, escaped, escaped, tag)
}

// ---------------------------------------------------------------------------
// Extraction
// ---------------------------------------------------------------------------

// Extraction is Markdown source with its math replaced by tokens, plus the
// typeset markup for each token.
type Extraction struct {
	// Text is the source to hand to the Markdown renderer.
	Text string

	spans []span
}

type span struct {
	src     string // the matched source, delimiters included
	html    string
	display bool
}

// Len returns the number of math spans found.
func (e *Extraction) Len() int {
	return len(e.spans)
}

// Extract scans text for math spans outside code and typesets each one.
// Display spans are matched first (shortest match, left to right); inline
// spans are matched in what remains. Spans with blank content stay literal.
func (r *Renderer) Extract(text string) *Extraction {
	e := &Extraction{}
	text = sentinelRunes.Replace(text)

	e.Text = mdscan.MapProse(text, func(prose string) string {
		prose = displayPattern.ReplaceAllStringFunc(prose, func(m string) string {
			inner := m[2 : len(m)-2]
			if strings.TrimSpace(inner) == "" {
				return m
			}
			return e.add(m, r.RenderExpression(inner, true), true)
		})
		return inlinePattern.ReplaceAllStringFunc(prose, func(m string) string {
			inner := m[1 : len(m)-1]
			if strings.TrimSpace(inner) == "" {
				return m
			}
			return e.add(m, r.RenderExpression(inner, false), false)
		})
	})
	return e
}

func (e *Extraction) add(src, markup string, display bool) string {
	e.spans = append(e.spans, span{src: src, html: markup, display: display})
	return tokenStart + strconv.Itoa(len(e.spans)-1) + tokenEnd
}

// Expand replaces the tokens in rendered HTML with typeset markup. A display
// token that is the only content of a paragraph replaces the paragraph.
// Tokens that ended up inside a tag (link destinations and titles, image
// alt text) get their escaped source back instead of markup.
func (e *Extraction) Expand(rendered string) string {
	if len(e.spans) == 0 {
		return rendered
	}

	for i, s := range e.spans {
		if !s.display {
			continue
		}
		wrapped := "<p>" + tokenStart + strconv.Itoa(i) + tokenEnd + "</p>"
		rendered = strings.Replace(rendered, wrapped, s.html, 1)
	}

	var b strings.Builder
	b.Grow(len(rendered))
	pos, inTag := 0, false
	for _, m := range tokenPattern.FindAllStringSubmatchIndex(rendered, -1) {
		inTag = tagOpen(rendered[pos:m[0]], inTag)
		b.WriteString(rendered[pos:m[0]])
		pos = m[1]

		encoded := m[2] < 0
		lo, hi := m[2], m[3]
		if encoded {
			if !inTag {
				b.WriteString(rendered[m[0]:m[1]])
				continue
			}
			lo, hi = m[4], m[5]
		}
		i, err := strconv.Atoi(rendered[lo:hi])
		if err != nil || i >= len(e.spans) {
			continue
		}

		s := e.spans[i]
		switch {
		case encoded:
			b.WriteString(html.EscapeString(string(util.URLEscape([]byte(s.src), false))))
		case inTag:
			b.WriteString(html.EscapeString(s.src))
		default:
			b.WriteString(s.html)
		}
	}
	b.WriteString(rendered[pos:])
	return b.String()
}

// tagOpen reports whether the position after chunk is inside a tag, given
// the state before it. Rendered text escapes < and >, so the last bracket
// decides.
func tagOpen(chunk string, before bool) bool {
	lt := strings.LastIndexByte(chunk, '<')
	gt := strings.LastIndexByte(chunk, '>')
	if lt < 0 && gt < 0 {
		return before
	}
	return lt > gt
}
