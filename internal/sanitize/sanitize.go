// Package sanitize strips script-capable constructs from rendered HTML.
//
// The default mode is an ordered blocklist of case-insensitive rewrite
// rules. Each rule removes what it matches; later rules catch residue the
// earlier ones leave. The chain is re-run until a pass changes nothing, so
// nested or split constructs (<scr<script></script>ipt>) are removed too and
// sanitizing is idempotent.
//
// The blocklist does not parse HTML. It is not robust against every parsing
// ambiguity a browser might resolve differently; ModePolicy adds a
// bluemonday allow-list pass after the blocklist for callers that need
// stronger guarantees.
package sanitize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ErrUnknownMode indicates an unsupported sanitizer mode name.
var ErrUnknownMode = errors.New("unknown sanitizer mode")

// Mode selects the sanitizing strategy.
type Mode string

// Supported modes.
const (
	ModeBlocklist Mode = "blocklist"
	ModePolicy    Mode = "policy"
)

// ParseMode validates a mode name (case-insensitive). Empty means blocklist.
func ParseMode(name string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(name))); m {
	case ModeBlocklist, ModePolicy:
		return m, nil
	case "":
		return ModeBlocklist, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}

// Rule is one rewrite pass: every match of Pattern is replaced by Replace.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace string
}

// javascriptScheme tolerates whitespace between letters, which browsers
// strip from URL schemes.
const javascriptScheme = `j\s*a\s*v\s*a\s*s\s*c\s*r\s*i\s*p\s*t\s*:`

// rules is applied in order. The order mirrors the priority of the threats.
var rules = []Rule{
	{Name: "script element", Pattern: regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)},
	{Name: "script tag", Pattern: regexp.MustCompile(`(?i)</?script[^>]*>?`)},
	{Name: "event handler quoted", Pattern: regexp.MustCompile(`(?i)\s*\bon\w+\s*=\s*["'][^"']*["']`)},
	{Name: "event handler unquoted", Pattern: regexp.MustCompile(`(?i)\s*\bon\w+\s*=\s*[^>\s]*`)},
	{Name: "javascript scheme", Pattern: regexp.MustCompile(`(?i)` + javascriptScheme)},
	{Name: "data html uri", Pattern: regexp.MustCompile(`(?i)data:text/html`)},
	{Name: "data javascript uri", Pattern: regexp.MustCompile(`(?i)data:application/javascript`)},
	{Name: "iframe element", Pattern: regexp.MustCompile(`(?is)<iframe\b.*?</iframe\s*>`)},
	{Name: "object or embed element", Pattern: regexp.MustCompile(`(?is)<(?:object|embed)\b.*?</(?:object|embed)\s*>`)},
	{Name: "frame tag", Pattern: regexp.MustCompile(`(?i)</?(?:iframe|object|embed)[^>]*>?`)},
	{Name: "base tag", Pattern: regexp.MustCompile(`(?i)<base[^>]*>?`)},
	{Name: "meta refresh", Pattern: regexp.MustCompile(`(?i)<meta\b[^>]*http-equiv\s*=\s*["']?refresh["']?[^>]*>?`)},
	{Name: "javascript link", Pattern: regexp.MustCompile(`(?i)<link\b[^>]*href\s*=\s*["']?` + javascriptScheme + `[^>]*>?`)},
	{Name: "style element", Pattern: regexp.MustCompile(`(?is)<style\b.*?</style\s*>`)},
	{Name: "style tag", Pattern: regexp.MustCompile(`(?i)</?style[^>]*>?`)},
	{Name: "javascript url attribute", Pattern: regexp.MustCompile(`(?i)\s*(?:href|src)\s*=\s*["']?` + javascriptScheme)},
	{Name: "data html url attribute", Pattern: regexp.MustCompile(`(?i)\s*(?:href|src)\s*=\s*["']?data:text/html`)},
}

// Rules returns a copy of the ordered blocklist.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Blocklist applies the rule chain until it reaches a fixed point.
// Every rule deletes non-empty matches, so each changing pass shortens the
// input and the loop terminates.
func Blocklist(html string) string {
	for {
		next := html
		for _, r := range rules {
			next = r.Pattern.ReplaceAllLiteralString(next, r.Replace)
		}
		if next == html {
			return next
		}
		html = next
	}
}

// Sanitizer applies the configured mode. Safe for concurrent use.
type Sanitizer struct {
	mode   Mode
	policy *bluemonday.Policy
}

// New creates a Sanitizer for mode.
func New(mode Mode) (*Sanitizer, error) {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	s := &Sanitizer{mode: mode}
	if mode == ModePolicy {
		s.policy = newPolicy()
	}
	return s, nil
}

// Mode returns the active mode.
func (s *Sanitizer) Mode() Mode {
	return s.mode
}

// Sanitize never fails; input with nothing to remove is returned unchanged
// in blocklist mode.
func (s *Sanitizer) Sanitize(html string) string {
	html = Blocklist(html)
	if s.policy != nil {
		html = Blocklist(s.policy.Sanitize(html))
	}
	return html
}
