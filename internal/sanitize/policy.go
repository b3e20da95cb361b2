package sanitize

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var mathMLElements = []string{
	"math", "semantics", "annotation", "mrow", "mi", "mo", "mn", "ms", "mtext",
	"mspace", "msup", "msub", "msubsup", "mfrac", "msqrt", "mroot", "mover",
	"munder", "munderover", "mtable", "mtr", "mtd", "mstyle", "mpadded",
	"mphantom", "menclose",
}

var mathMLAttrs = []string{
	"xmlns", "display", "mathvariant", "stretchy", "fence", "separator",
	"lspace", "rspace", "accent", "accentunder", "encoding", "columnalign",
	"rowspacing", "columnspacing", "width", "height", "depth", "minsize",
	"maxsize", "scriptlevel", "displaystyle", "movablelimits", "linethickness",
	"notation",
}

var checkboxType = regexp.MustCompile(`^checkbox$`)

// katexStyles are the inline style properties KaTeX emits for layout.
var katexStyles = []string{
	"height", "vertical-align", "margin-left", "margin-right", "top", "width",
	"min-width", "padding-left", "border-bottom-width", "color", "position",
	"left", "right",
}

// newPolicy extends the UGC policy with what rendered documents need:
// classes for KaTeX and chroma, heading anchors, MathML, KaTeX's SVG
// strokes, task list checkboxes and <mark>.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).Globally()
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6", "li", "sup", "div")
	p.AllowAttrs("aria-hidden").OnElements("span")
	p.AllowAttrs("title").OnElements("span", "div")
	p.AllowAttrs("align").OnElements("th", "td")
	p.AllowStyles(katexStyles...).OnElements("span", "div", "svg")

	p.AllowElements(mathMLElements...)
	p.AllowAttrs(mathMLAttrs...).OnElements(mathMLElements...)

	p.AllowElements("svg", "path", "line")
	p.AllowAttrs("xmlns", "width", "height", "viewBox", "preserveAspectRatio").OnElements("svg")
	p.AllowAttrs("d").OnElements("path")
	p.AllowAttrs("x1", "y1", "x2", "y2", "stroke-width").OnElements("line")

	p.AllowElements("mark", "input")
	p.AllowAttrs("type").Matching(checkboxType).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")

	return p
}
