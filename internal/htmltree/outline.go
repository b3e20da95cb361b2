package htmltree

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Heading is one entry of a document outline.
type Heading struct {
	Level  int    // 1-6
	ID     string // anchor id, may be empty
	Text   string // visible text, whitespace collapsed
	Number string // hierarchical number such as "2.1"
}

var headingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// Outline lists the headings of an HTML fragment in document order.
// Headings nested inside other elements (blockquotes, list items) count.
func Outline(fragment string) ([]Heading, error) {
	doc, err := parseFragment(fragment)
	if err != nil {
		return nil, err
	}

	var headings []Heading
	numbers := newNumberingState()

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level, ok := headingLevels[n.DataAtom]; ok {
				headings = append(headings, Heading{
					Level:  level,
					ID:     attr(n, "id"),
					Text:   strings.Join(strings.Fields(textContent(n)), " "),
					Number: numbers.next(level),
				})
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return headings, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		// KaTeX duplicates each formula as hidden MathML; keep the visible half.
		if c.Type == html.ElementNode && strings.Contains(" "+attr(c, "class")+" ", " katex-mathml ") {
			continue
		}
		b.WriteString(textContent(c))
	}
	return b.String()
}

// numberingState tracks hierarchical heading numbers. A heading that skips
// levels (h1 then h3) is numbered as the next level down.
type numberingState struct {
	counters [6]int
	depth    int
}

func newNumberingState() *numberingState {
	return &numberingState{}
}

func (s *numberingState) next(level int) string {
	depth := level
	if depth > s.depth+1 {
		depth = s.depth + 1
	}
	s.counters[depth-1]++
	for i := depth; i < len(s.counters); i++ {
		s.counters[i] = 0
	}
	s.depth = depth

	parts := make([]string, depth)
	for i := 0; i < depth; i++ {
		parts[i] = strconv.Itoa(s.counters[i])
	}
	return strings.Join(parts, ".")
}
