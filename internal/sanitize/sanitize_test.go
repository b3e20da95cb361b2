package sanitize

// Notes:
// - Adversarial inputs are checked two ways: forbidden substrings (the
//   blocklist guarantee) and a parse with golang.org/x/net/html to confirm
//   no dangerous element or on* attribute survives tree construction.
// - Entity-encoded schemes (jav&#x09;ascript:) are a known blocklist gap and
//   are only covered by ModePolicy.

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var adversarial = []string{
	`<script>alert(1)</script>`,
	`<SCRIPT SRC=//evil.example/x.js></SCRIPT>`,
	`<script type="text/javascript">
	var a = "</scr" + "ipt>";
</script>`,
	`<scr<script>ipt>alert(1)</script>`,
	`<<script>script>alert(1)<</script>/script>`,
	`<script>unterminated`,
	`<img src=x onerror=alert(1)>`,
	`<img src="x" ONERROR = "alert(1)">`,
	`<body onload='boot()'>`,
	`<svg onload=alert(1)><script>alert(2)</script></svg>`,
	`<a href="javascript:alert(1)">x</a>`,
	`<a href="JaVaScRiPt:alert(1)">x</a>`,
	"<a href=\"java\nscript:alert(1)\">x</a>",
	"<a href=\"java\tscript:alert(1)\">x</a>",
	`<a href="data:text/html;base64,PHNjcmlwdD4=">x</a>`,
	`<script src="data:application/javascript,alert(1)"></script>`,
	`<iframe src="https://evil.example"></iframe>`,
	`<IFRAME SRC=x>`,
	`<iframe><iframe></iframe></iframe>`,
	`<object data="x.swf"><param name="a"></object>`,
	`<embed src="x.swf">`,
	`<base href="https://evil.example/">`,
	`<meta http-equiv="refresh" content="0;url=https://evil.example">`,
	`<meta http-equiv=refresh content=0>`,
	`<link rel="stylesheet" href="javascript:alert(1)">`,
	`<style>body{background:url(javascript:alert(1))}</style>`,
	`<STYLE>@import "x";</STYLE>`,
	`<style`,
	`<div style="color:red" onclick='x()' onmouseover="y()">ok</div>`,
}

var forbidden = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)data:text/html`),
	regexp.MustCompile(`(?i)<iframe`),
	regexp.MustCompile(`(?i)<object`),
	regexp.MustCompile(`(?i)<embed`),
	regexp.MustCompile(`(?i)<base`),
	regexp.MustCompile(`(?i)<style`),
	regexp.MustCompile(`(?i)http-equiv\s*=\s*["']?refresh`),
}

var dangerousElements = map[string]bool{
	"script": true, "iframe": true, "object": true, "embed": true,
	"base": true, "style": true,
}

func assertSafe(t *testing.T, input, got string) {
	t.Helper()

	for _, re := range forbidden {
		if re.MatchString(got) {
			t.Errorf("Sanitize(%q) = %q, matches %s", input, got, re)
		}
	}

	nodes, err := html.ParseFragment(strings.NewReader(got), &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"})
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if dangerousElements[n.Data] {
				t.Errorf("Sanitize(%q) = %q, parses to <%s>", input, got, n.Data)
			}
			for _, a := range n.Attr {
				if strings.HasPrefix(strings.ToLower(a.Key), "on") && len(a.Key) > 2 {
					t.Errorf("Sanitize(%q) = %q, parses with attribute %s", input, got, a.Key)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
}

// ---------------------------------------------------------------------------
// TestBlocklist - Removal guarantees
// ---------------------------------------------------------------------------

func TestBlocklist_Adversarial(t *testing.T) {
	t.Parallel()

	for _, input := range adversarial {
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			assertSafe(t, input, Blocklist(input))
		})
	}
}

func TestBlocklist_Idempotent(t *testing.T) {
	t.Parallel()

	for _, input := range adversarial {
		once := Blocklist(input)
		if twice := Blocklist(once); twice != once {
			t.Errorf("Blocklist not idempotent for %q: %q then %q", input, once, twice)
		}
	}
}

func TestBlocklist(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "safe markup unchanged",
			input: `<h1 id="title">Title</h1><p>Some <em>text</em> and <a href="https://example.com">a link</a>.</p>`,
			want:  `<h1 id="title">Title</h1><p>Some <em>text</em> and <a href="https://example.com">a link</a>.</p>`,
		},
		{
			name:  "script element with content",
			input: "text <script>bad()</script> more",
			want:  "text  more",
		},
		{
			name:  "unquoted handler",
			input: `<img src=x onerror=alert(1)>`,
			want:  `<img src=x>`,
		},
		{
			name:  "quoted handlers stripped, inline style kept",
			input: `<div style="color:red" onclick="x()">ok</div>`,
			want:  `<div style="color:red">ok</div>`,
		},
		{
			name:  "javascript scheme removed from href",
			input: `<a href="javascript:alert(1)">x</a>`,
			want:  `<a href="alert(1)">x</a>`,
		},
		{
			name:  "iframe with content",
			input: `a<iframe src="x">fallback</iframe>b`,
			want:  `ab`,
		},
		{
			name:  "style element",
			input: `<style>p{}</style><p>x</p>`,
			want:  `<p>x</p>`,
		},
		{
			name:  "meta refresh",
			input: `<meta http-equiv="refresh" content="0"><p>x</p>`,
			want:  `<p>x</p>`,
		},
		{
			name:  "escaped code is not touched",
			input: `<pre><code>&lt;script&gt;alert(1)&lt;/script&gt;</code></pre>`,
			want:  `<pre><code>&lt;script&gt;alert(1)&lt;/script&gt;</code></pre>`,
		},
		{
			name:  "katex markup unchanged",
			input: `<span class="katex"><span class="katex-mathml"><math xmlns="http://www.w3.org/1998/Math/MathML"><semantics><mrow><msup><mi>x</mi><mn>2</mn></msup></mrow><annotation encoding="application/x-tex">x^2</annotation></semantics></math></span><span class="katex-html" aria-hidden="true"><span class="base"><span class="strut" style="height:0.8141em;"></span></span></span></span>`,
			want:  `<span class="katex"><span class="katex-mathml"><math xmlns="http://www.w3.org/1998/Math/MathML"><semantics><mrow><msup><mi>x</mi><mn>2</mn></msup></mrow><annotation encoding="application/x-tex">x^2</annotation></semantics></math></span><span class="katex-html" aria-hidden="true"><span class="base"><span class="strut" style="height:0.8141em;"></span></span></span></span>`,
		},
		{
			name:  "highlighted code unchanged",
			input: `<div class="highlight language-go"><pre tabindex="0" class="chroma"><code><span class="line"><span class="cl"><span class="kd">func</span></span></span></code></pre></div>`,
			want:  `<div class="highlight language-go"><pre tabindex="0" class="chroma"><code><span class="line"><span class="cl"><span class="kd">func</span></span></span></code></pre></div>`,
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Blocklist(tt.input); got != tt.want {
				t.Errorf("Blocklist(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRules_Order(t *testing.T) {
	t.Parallel()

	got := Rules()
	if len(got) == 0 {
		t.Fatal("Rules() returned no rules")
	}
	if got[0].Name != "script element" {
		t.Errorf("first rule = %q, want %q", got[0].Name, "script element")
	}

	// Returned slice is a copy.
	got[0].Name = "changed"
	if Rules()[0].Name != "script element" {
		t.Error("Rules() exposes the package rule slice")
	}
}

// ---------------------------------------------------------------------------
// TestSanitizer - Modes
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode    Mode
		want    Mode
		wantErr error
	}{
		{mode: ModeBlocklist, want: ModeBlocklist},
		{mode: ModePolicy, want: ModePolicy},
		{mode: "", want: ModeBlocklist},
		{mode: "Policy", want: ModePolicy},
		{mode: "strict", wantErr: ErrUnknownMode},
	}

	for _, tt := range tests {
		s, err := New(tt.mode)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("New(%q) error = %v, want %v", tt.mode, err, tt.wantErr)
			continue
		}
		if err == nil && s.Mode() != tt.want {
			t.Errorf("New(%q).Mode() = %q, want %q", tt.mode, s.Mode(), tt.want)
		}
	}
}

func TestSanitizer_Policy(t *testing.T) {
	t.Parallel()

	s, err := New(ModePolicy)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("adversarial", func(t *testing.T) {
		t.Parallel()
		for _, input := range adversarial {
			assertSafe(t, input, s.Sanitize(input))
		}
	})

	t.Run("entity encoded scheme", func(t *testing.T) {
		t.Parallel()
		input := `<a href="jav&#x09;ascript:alert(1)">x</a>`
		got := s.Sanitize(input)
		if strings.Contains(got, "href") {
			t.Errorf("Sanitize(%q) = %q, want href dropped", input, got)
		}
	})

	t.Run("keeps rendered document markup", func(t *testing.T) {
		t.Parallel()

		input := `<h2 id="intro">Intro</h2>` +
			`<p><mark>hi</mark> <span class="katex"><math xmlns="http://www.w3.org/1998/Math/MathML"><mi>x</mi></math></span></p>` +
			`<ul><li><input checked="" disabled="" type="checkbox"> done</li></ul>` +
			`<div class="highlight language-go"><pre class="chroma"><code>x</code></pre></div>`
		got := s.Sanitize(input)

		for _, want := range []string{`id="intro"`, "<mark>hi</mark>", `class="katex"`, "<mi>x</mi>", `type="checkbox"`, `class="highlight language-go"`} {
			if !strings.Contains(got, want) {
				t.Errorf("Sanitize() = %q, missing %q", got, want)
			}
		}
	})

	t.Run("drops elements outside the allow list", func(t *testing.T) {
		t.Parallel()

		got := s.Sanitize(`<form action="/x"><button>go</button></form>`)
		if strings.Contains(got, "<form") || strings.Contains(got, "<button") {
			t.Errorf("Sanitize() = %q, want form controls removed", got)
		}
	})
}

func BenchmarkBlocklist(b *testing.B) {
	doc := strings.Repeat(`<p>Some <strong>text</strong> with <a href="https://example.com">links</a> and <code>code</code>.</p>`, 200)
	for b.Loop() {
		Blocklist(doc)
	}
}
