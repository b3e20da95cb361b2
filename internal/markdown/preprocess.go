package markdown

import (
	"regexp"
	"strings"

	"github.com/alnah/markforge/internal/mdscan"
)

// Highlight placeholders use Unicode Private Use Area characters.
// They pass through goldmark unchanged (no WithUnsafe needed) and are
// turned into <mark> tags after HTML generation.
const (
	MarkStartPlaceholder = "\uE000"
	MarkEndPlaceholder   = "\uE001"
)

var (
	crlfOrCR         = regexp.MustCompile(`\r\n?`)
	highlightPattern = regexp.MustCompile(`==([^=\n]+?)==`)
	markReplacer     = strings.NewReplacer(MarkStartPlaceholder, "<mark>", MarkEndPlaceholder, "</mark>")
	markStripper     = strings.NewReplacer(MarkStartPlaceholder, "", MarkEndPlaceholder, "")
)

// NormalizeLineEndings converts \r\n and \r to \n.
func NormalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}

// convertHighlights transforms ==text== outside code into placeholder markers.
// Placeholder runes already present in the input are dropped so that
// convertMarkPlaceholders only ever produces balanced tags.
func convertHighlights(content string) string {
	content = markStripper.Replace(content)
	return mdscan.MapProse(content, func(prose string) string {
		return highlightPattern.ReplaceAllString(prose, MarkStartPlaceholder+"$1"+MarkEndPlaceholder)
	})
}

// convertMarkPlaceholders turns placeholder markers into <mark> tags.
func convertMarkPlaceholders(content string) string {
	return markReplacer.Replace(content)
}
