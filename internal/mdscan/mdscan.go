// Package mdscan locates Markdown code regions in raw source text.
//
// Text transforms that run before rendering (math extraction, ==highlight==
// markers) must leave code untouched. mdscan parses the source with the same
// goldmark block and inline rules the renderer uses and reports where code
// spans and code blocks sit, so both sides agree on what is code. A dollar
// sign is ordinary text to goldmark, so the source can be parsed as is.
package mdscan

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// scanner parses with GFM so table cells and autolinks split inline content
// the way the renderer does. goldmark parsers are safe for concurrent use.
var scanner = goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser()

// Region is a half-open byte range [Start, End) of the source.
type Region struct {
	Start int
	End   int
}

// CodeRegions returns the code spans, fenced code blocks and indented code
// blocks of src in ascending order. Regions never overlap. Block regions
// cover the block content; span regions include their backtick delimiters.
// An unclosed fence extends to the end of its container, and an unmatched
// backtick run is literal text, exactly as goldmark renders them.
func CodeRegions(src string) []Region {
	source := []byte(src)
	doc := scanner.Parse(text.NewReader(source))

	var regions []Region
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var (
			r  Region
			ok bool
		)
		switch n.Kind() {
		case ast.KindCodeSpan:
			r, ok = spanRegion(n, source)
		case ast.KindFencedCodeBlock, ast.KindCodeBlock:
			r, ok = blockRegion(n)
		default:
			return ast.WalkContinue, nil
		}
		// Walk order is source order; the guard keeps the result sorted
		// and disjoint even for odd container nesting.
		if ok && (len(regions) == 0 || r.Start >= regions[len(regions)-1].End) {
			regions = append(regions, r)
		}
		return ast.WalkSkipChildren, nil
	})
	return regions
}

// MapProse applies fn to every stretch of src outside code regions and
// returns the reassembled text. Code regions are copied verbatim.
func MapProse(src string, fn func(string) string) string {
	regions := CodeRegions(src)
	if len(regions) == 0 {
		return fn(src)
	}

	var b strings.Builder
	b.Grow(len(src))
	pos := 0
	for _, r := range regions {
		b.WriteString(fn(src[pos:r.Start]))
		b.WriteString(src[r.Start:r.End])
		pos = r.End
	}
	b.WriteString(fn(src[pos:]))
	return b.String()
}

// spanRegion covers the text segments of a code span, widened over the
// stripped padding space and the backtick delimiters.
func spanRegion(n ast.Node, source []byte) (Region, bool) {
	r := Region{Start: -1}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		t, ok := c.(*ast.Text)
		if !ok {
			continue
		}
		if r.Start < 0 || t.Segment.Start < r.Start {
			r.Start = t.Segment.Start
		}
		if t.Segment.Stop > r.End {
			r.End = t.Segment.Stop
		}
	}
	if r.Start < 0 {
		return Region{}, false
	}

	if r.Start > 1 && source[r.Start-1] == ' ' && source[r.Start-2] == '`' {
		r.Start--
	}
	for r.Start > 0 && source[r.Start-1] == '`' {
		r.Start--
	}
	if r.End < len(source)-1 && source[r.End] == ' ' && source[r.End+1] == '`' {
		r.End++
	}
	for r.End < len(source) && source[r.End] == '`' {
		r.End++
	}
	return r, true
}

// blockRegion covers the content lines of a code block. An empty block has
// nothing to protect.
func blockRegion(n ast.Node) (Region, bool) {
	lines := n.Lines()
	if lines.Len() == 0 {
		return Region{}, false
	}
	return Region{Start: lines.At(0).Start, End: lines.At(lines.Len() - 1).Stop}, true
}
