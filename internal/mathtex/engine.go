package mathtex

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"git.sr.ht/~mekyt/latex2mathml"
	katex "github.com/FurqanSoftware/goldmark-katex"
)

// Engine names a typesetting backend.
type Engine string

// Supported engines.
const (
	EngineKaTeX  Engine = "katex"
	EngineMathML Engine = "mathml"
)

// mathMLNamespace is the xmlns written on every <math> root.
const mathMLNamespace = "http://www.w3.org/1998/Math/MathML"

// Typesetter turns a single LaTeX expression into HTML markup.
// Implementations may fail; the Renderer converts failures into error markers.
type Typesetter interface {
	Typeset(src string, display bool) (string, error)
}

// ParseEngine validates an engine name (case-insensitive).
func ParseEngine(name string) (Engine, error) {
	switch e := Engine(strings.ToLower(strings.TrimSpace(name))); e {
	case EngineKaTeX, EngineMathML:
		return e, nil
	case "":
		return EngineKaTeX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}

// typesetterFor returns the built-in typesetter for an engine.
func typesetterFor(e Engine) (Typesetter, error) {
	switch e {
	case EngineKaTeX:
		return katexTypesetter{}, nil
	case EngineMathML:
		return mathMLTypesetter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, e)
	}
}

// ---------------------------------------------------------------------------
// KaTeX
// ---------------------------------------------------------------------------

// katexTypesetter runs KaTeX in an embedded JavaScript runtime. Output uses
// the KaTeX class names, so it matches the CDN stylesheet linked by exports.
type katexTypesetter struct{}

func (katexTypesetter) Typeset(src string, display bool) (string, error) {
	var buf bytes.Buffer
	if err := katex.Render(&buf, []byte(src), display); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ---------------------------------------------------------------------------
// MathML
// ---------------------------------------------------------------------------

// mathMLTypesetter converts to presentation MathML in pure Go.
// latex2mathml is lenient, so structural checks run first to reject input
// that KaTeX would refuse.
type mathMLTypesetter struct{}

var environmentPattern = regexp.MustCompile(`\\(begin|end)\s*\{([^}]*)\}`)

func (mathMLTypesetter) Typeset(src string, display bool) (out string, err error) {
	if err := checkBalance(src); err != nil {
		return "", err
	}

	mode := "inline"
	if display {
		mode = "block"
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTypesetPanic, r)
		}
	}()
	return latex2mathml.Convert(src, mathMLNamespace, mode, 0), nil
}

// checkBalance verifies unescaped braces and \begin/\end pairs nest properly.
func checkBalance(src string) error {
	depth := 0
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++ // skip the escaped character, e.g. \{ or \\
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unexpected '}' at position %d", ErrUnbalancedBraces, i)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: expected '}' at end of input", ErrUnbalancedBraces)
	}

	var stack []string
	for _, m := range environmentPattern.FindAllStringSubmatch(src, -1) {
		name := strings.TrimSpace(m[2])
		if m[1] == "begin" {
			stack = append(stack, name)
			continue
		}
		if len(stack) == 0 || stack[len(stack)-1] != name {
			return fmt.Errorf("%w: \\end{%s} without matching \\begin", ErrUnbalancedEnvironment, name)
		}
		stack = stack[:len(stack)-1]
	}
	if len(stack) > 0 {
		return fmt.Errorf("%w: \\begin{%s} is never closed", ErrUnbalancedEnvironment, stack[len(stack)-1])
	}
	return nil
}
