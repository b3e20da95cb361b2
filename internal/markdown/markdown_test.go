package markdown

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeMath renders expressions as [mode:src] so tests can see what reached it.
type fakeMath struct{}

func (fakeMath) RenderExpression(src string, display bool) string {
	mode := "inline"
	if display {
		mode = "display"
	}
	return fmt.Sprintf("[%s:%s]", mode, strings.TrimSpace(src))
}

func convert(t *testing.T, c *Converter, input string) string {
	t.Helper()
	out, err := c.ToHTML(context.Background(), input)
	if err != nil {
		t.Fatalf("ToHTML() error = %v", err)
	}
	return out
}

// ---------------------------------------------------------------------------
// TestToHTML - Standard Markdown and GFM
// ---------------------------------------------------------------------------

func TestToHTML(t *testing.T) {
	t.Parallel()

	c := New(WithMath(fakeMath{}))

	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "heading with id",
			input:    "# Title",
			contains: []string{`<h1 id="title">Title</h1>`},
		},
		{
			name:     "emphasis and links",
			input:    "*a* **b** [c](https://example.com)",
			contains: []string{"<em>a</em>", "<strong>b</strong>", `<a href="https://example.com">c</a>`},
		},
		{
			name:     "table",
			input:    "| a | b |\n|---|---|\n| 1 | 2 |",
			contains: []string{"<table>", "<th>a</th>", "<td>2</td>"},
		},
		{
			name:     "strikethrough",
			input:    "~~gone~~",
			contains: []string{"<del>gone</del>"},
		},
		{
			name:     "task list",
			input:    "- [x] done",
			contains: []string{`type="checkbox"`},
		},
		{
			name:     "footnote",
			input:    "text[^1]\n\n[^1]: note",
			contains: []string{"footnote"},
		},
		{
			name:     "blockquote and rule",
			input:    "> quoted\n\n---",
			contains: []string{"<blockquote>", "<hr>"},
		},
		{
			name:     "soft line break is not a br",
			input:    "a\nb",
			contains: []string{"<p>a\nb</p>"},
			excludes: []string{"<br"},
		},
		{
			name:     "crlf normalized",
			input:    "a\r\nb",
			contains: []string{"<p>a\nb</p>"},
		},
		{
			name:     "raw html omitted by default",
			input:    "<script>alert(1)</script>\n\ntext",
			contains: []string{"raw HTML omitted"},
			excludes: []string{"<script>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := convert(t, c, tt.input)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("ToHTML(%q) = %q, missing %q", tt.input, got, want)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("ToHTML(%q) = %q, contains %q", tt.input, got, bad)
				}
			}
		})
	}
}

func TestToHTML_RawHTML(t *testing.T) {
	t.Parallel()

	c := New(WithRawHTML(true))
	got := convert(t, c, "<div>hi</div>")
	if !strings.Contains(got, "<div>hi</div>") {
		t.Errorf("ToHTML() = %q, want raw HTML kept", got)
	}
}

// ---------------------------------------------------------------------------
// TestToHTML_Code - Highlighting and math overrides
// ---------------------------------------------------------------------------

func TestToHTML_Code(t *testing.T) {
	t.Parallel()

	c := New(WithMath(fakeMath{}))

	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "math fence",
			input:    "```math\nx^2\n```",
			contains: []string{"[display:x^2]"},
			excludes: []string{"<pre", "highlight"},
		},
		{
			name:     "latex fence",
			input:    "```LaTeX\n\\int_0^1 f\n```",
			contains: []string{`[display:\int_0^1 f]`},
			excludes: []string{"<pre"},
		},
		{
			name:     "math fence keeps dollars for the typesetter",
			input:    "```math\n$$a$$\n```",
			contains: []string{"[display:$$a$$]"},
		},
		{
			name:     "known language highlighted with classes",
			input:    "```go\nfunc main() {}\n```",
			contains: []string{`<div class="highlight language-go">`, `class="chroma"`, "</div>"},
			excludes: []string{"style="},
		},
		{
			name:     "code content escaped",
			input:    "```nosuchlanguage\n<b>bold</b>\n```",
			contains: []string{`<div class="highlight`, "&lt;b&gt;"},
			excludes: []string{"<b>bold</b>"},
		},
		{
			name:     "inline code escaped",
			input:    "use `a<b` here",
			contains: []string{"<code>a&lt;b</code>"},
		},
		{
			name:     "inline code math",
			input:    "see `$x+1$` now",
			contains: []string{"[inline:x+1]"},
			excludes: []string{"<code>"},
		},
		{
			name:     "lone dollar inline code",
			input:    "`$`",
			contains: []string{"<code>$</code>"},
		},
		{
			name:     "double dollar inline code is too short",
			input:    "`$$`",
			contains: []string{"<code>$$</code>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := convert(t, c, tt.input)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("ToHTML(%q) = %q, missing %q", tt.input, got, want)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("ToHTML(%q) = %q, contains %q", tt.input, got, bad)
				}
			}
		})
	}
}

func TestToHTML_NoMathRenderer(t *testing.T) {
	t.Parallel()

	got := convert(t, New(), "```math\nx\n```")
	if !strings.Contains(got, "katex-error") {
		t.Errorf("ToHTML() = %q, want error marker", got)
	}
}

// ---------------------------------------------------------------------------
// TestHighlights - ==mark== syntax
// ---------------------------------------------------------------------------

func TestHighlights(t *testing.T) {
	t.Parallel()

	c := New()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "marked text", input: "a ==b== c", want: "<p>a <mark>b</mark> c</p>"},
		{name: "inline code untouched", input: "`==b==`", want: "<p><code>==b==</code></p>"},
		{name: "forged placeholders dropped", input: "a " + MarkEndPlaceholder + "b", want: "<p>a b</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := strings.TrimSpace(convert(t, c, tt.input))
			if got != tt.want {
				t.Errorf("ToHTML(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestToHTML_Context - Cancellation
// ---------------------------------------------------------------------------

func TestToHTML_Context(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().ToHTML(ctx, "# x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ToHTML() error = %v, want %v", err, context.Canceled)
	}
}

func TestNew_Style(t *testing.T) {
	t.Parallel()

	if got := New().Style(); got != DefaultHighlightStyle {
		t.Errorf("Style() = %q, want %q", got, DefaultHighlightStyle)
	}
	if got := New(WithHighlightStyle("monokai")).Style(); got != "monokai" {
		t.Errorf("Style() = %q, want %q", got, "monokai")
	}
}
