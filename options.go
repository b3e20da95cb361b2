package markforge

import (
	"log/slog"
	"time"
)

// Option configures a Renderer or an Exporter.
type Option func(*config)

// config holds the settings shared by Renderer and Exporter.
type config struct {
	mathEngine     string
	mathCacheSize  int
	highlightStyle string
	rawHTML        bool
	sanitizer      string

	style     string
	assetPath string
	timeout   time.Duration
	lang      string

	logger *slog.Logger
}

// Defaults used when no option overrides them.
const (
	defaultTimeout = 30 * time.Second
	defaultLang    = "en"
)

func newConfig(opts []Option) config {
	cfg := config{
		timeout: defaultTimeout,
		lang:    defaultLang,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return cfg
}

// WithMathEngine selects the typesetter: "katex" (default) or "mathml".
func WithMathEngine(name string) Option {
	return func(c *config) { c.mathEngine = name }
}

// WithMathCacheSize bounds the typeset-expression memo. Zero keeps the default.
func WithMathCacheSize(n int) Option {
	return func(c *config) { c.mathCacheSize = n }
}

// WithHighlightStyle sets the chroma style for code blocks.
func WithHighlightStyle(name string) Option {
	return func(c *config) { c.highlightStyle = name }
}

// WithRawHTML lets raw HTML in the Markdown through the renderer.
// The sanitizer still runs.
func WithRawHTML(enabled bool) Option {
	return func(c *config) { c.rawHTML = enabled }
}

// WithSanitizer selects the sanitizer mode: "blocklist" (default) or "policy".
func WithSanitizer(mode string) Option {
	return func(c *config) { c.sanitizer = mode }
}

// WithStyle sets the export stylesheet by asset name.
func WithStyle(name string) Option {
	return func(c *config) { c.style = name }
}

// WithAssetPath adds a directory searched for styles and templates before
// the embedded assets.
func WithAssetPath(dir string) Option {
	return func(c *config) { c.assetPath = dir }
}

// WithTimeout sets the PDF export timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("markforge: WithTimeout duration must be positive")
	}
	return func(c *config) { c.timeout = d }
}

// WithLang sets the lang attribute of exported documents.
func WithLang(lang string) Option {
	return func(c *config) {
		if lang != "" {
			c.lang = lang
		}
	}
}

// WithLogger routes diagnostics to l.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}
