package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// MathRenderer typesets a single LaTeX expression. It never fails: invalid
// input comes back as error markup.
type MathRenderer interface {
	RenderExpression(src string, display bool) string
}

// mathLanguages are the fence info strings treated as display math.
var mathLanguages = [][]byte{[]byte("math"), []byte("latex")}

// KindMathBlock is the node kind of a fenced math block.
var KindMathBlock = ast.NewNodeKind("MathBlock")

// MathBlock replaces a fenced code block tagged math or latex.
type MathBlock struct {
	ast.BaseBlock
}

// Kind implements ast.Node.
func (n *MathBlock) Kind() ast.NodeKind {
	return KindMathBlock
}

// Dump implements ast.Node.
func (n *MathBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// mathExtension swaps math fences for MathBlock nodes and renders both those
// and $-delimited inline code through a MathRenderer.
type mathExtension struct {
	math MathRenderer
}

func (e *mathExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithASTTransformers(util.Prioritized(mathTransformer{}, 100)),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(util.Prioritized(&mathNodeRenderer{math: e.math}, 100)),
	)
}

type mathTransformer struct{}

func (mathTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	var fences []*ast.FencedCodeBlock
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fcb, ok := node.(*ast.FencedCodeBlock); ok && isMathLanguage(fcb.Language(reader.Source())) {
			fences = append(fences, fcb)
		}
		return ast.WalkContinue, nil
	})

	for _, fcb := range fences {
		parent := fcb.Parent()
		if parent == nil {
			continue
		}
		block := &MathBlock{}
		block.SetLines(fcb.Lines())
		parent.ReplaceChild(parent, fcb, block)
	}
}

func isMathLanguage(lang []byte) bool {
	for _, m := range mathLanguages {
		if bytes.EqualFold(lang, m) {
			return true
		}
	}
	return false
}

type mathNodeRenderer struct {
	math MathRenderer
}

func (r *mathNodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindMathBlock, r.renderMathBlock)
	reg.Register(ast.KindCodeSpan, r.renderCodeSpan)
}

func (r *mathNodeRenderer) renderMathBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	var b strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		b.Write(line.Value(source))
	}
	_, _ = w.WriteString(r.math.RenderExpression(b.String(), true))
	_ = w.WriteByte('\n')
	return ast.WalkSkipChildren, nil
}

// renderCodeSpan renders `$…$` as inline math and anything else as escaped
// <code>, with line breaks folded to spaces.
func (r *mathNodeRenderer) renderCodeSpan(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	var content []byte
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			value := t.Segment.Value(source)
			if bytes.HasSuffix(value, []byte("\n")) {
				value = append(value[:len(value)-1:len(value)-1], ' ')
			}
			content = append(content, value...)
		case *ast.String:
			content = append(content, t.Value...)
		}
	}

	if len(content) > 2 && content[0] == '$' && content[len(content)-1] == '$' {
		_, _ = w.WriteString(r.math.RenderExpression(string(content[1:len(content)-1]), false))
		return ast.WalkSkipChildren, nil
	}

	_, _ = w.WriteString("<code>")
	_, _ = w.Write(util.EscapeHTML(content))
	_, _ = w.WriteString("</code>")
	return ast.WalkSkipChildren, nil
}
