package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	flag "github.com/spf13/pflag"

	"github.com/alnah/markforge"
	"github.com/alnah/markforge/internal/config"
	"github.com/alnah/markforge/internal/hints"
	"github.com/alnah/markforge/internal/settings"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// renderFlags holds Markdown pipeline flags.
type renderFlags struct {
	mathEngine     string
	highlightStyle string
	sanitizer      string
	rawHTML        bool
}

// exportFlags holds export flags.
type exportFlags struct {
	format    string
	output    string
	workers   int
	timeout   string
	style     string
	assetsDir string
	lang      string
}

// newFlagSet creates a FlagSet that reports errors instead of exiting.
func newFlagSet(name string, w io.Writer, usage func(io.Writer)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() { usage(w) }
	return fs
}

// parseFlags wraps parse failures in ErrUsage. flag.ErrHelp is returned as is.
func parseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUsage, err)
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs")
}

// addRenderFlags adds render pipeline flags to a FlagSet.
func addRenderFlags(fs *flag.FlagSet, f *renderFlags) {
	fs.StringVar(&f.mathEngine, "math", "", "math engine: katex, mathml")
	fs.StringVar(&f.highlightStyle, "highlight", "", "code highlight style (chroma name)")
	fs.StringVar(&f.sanitizer, "sanitizer", "", "sanitizer mode: blocklist, policy")
	fs.BoolVar(&f.rawHTML, "raw-html", false, "keep raw HTML from the source (still sanitized)")
}

// addExportFlags adds export flags to a FlagSet.
func addExportFlags(fs *flag.FlagSet, f *exportFlags) {
	fs.StringVarP(&f.format, "format", "f", string(markforge.FormatPDF), "output format: html, pdf")
	fs.StringVarP(&f.output, "output", "o", "", "output file or directory")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "PDF generation timeout (e.g., 30s, 2m)")
	fs.StringVar(&f.style, "style", "", "CSS style name")
	fs.StringVar(&f.assetsDir, "assets", "", "directory searched for styles/ and templates/")
	fs.StringVar(&f.lang, "lang", "", "document language (html lang attribute)")
}

// mergeRenderFlags applies explicitly set render flags over the config.
func mergeRenderFlags(fs *flag.FlagSet, f *renderFlags, cfg *config.Config) {
	if fs.Changed("math") {
		cfg.Render.MathEngine = f.mathEngine
	}
	if fs.Changed("highlight") {
		cfg.Render.HighlightStyle = f.highlightStyle
	}
	if fs.Changed("sanitizer") {
		cfg.Render.Sanitizer = f.sanitizer
	}
	if fs.Changed("raw-html") {
		cfg.Render.RawHTML = f.rawHTML
	}
}

// mergeExportFlags applies explicitly set export flags over the config.
// --format and --output are not config fields and are read directly.
func mergeExportFlags(fs *flag.FlagSet, f *exportFlags, cfg *config.Config) {
	if fs.Changed("workers") {
		cfg.Export.Workers = f.workers
	}
	if fs.Changed("timeout") {
		cfg.Export.Timeout = f.timeout
	}
	if fs.Changed("style") {
		cfg.Export.Style = f.style
	}
	if fs.Changed("assets") {
		cfg.Export.AssetsDir = f.assetsDir
	}
	if fs.Changed("lang") {
		cfg.Export.Lang = f.lang
	}
}

// ---------------------------------------------------------------------------
// Shared setup
// ---------------------------------------------------------------------------

// newLogger returns a text logger on w. Warnings and errors by default,
// debug with --verbose, errors only with --quiet.
func newLogger(w io.Writer, f commonFlags) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case f.verbose:
		level = slog.LevelDebug
	case f.quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig loads --config when given, else discovers markforge.yaml.
// A missing default file yields config.DefaultConfig.
func loadConfig(name string, logger *slog.Logger) (*config.Config, error) {
	if name == "" {
		cfg, path, err := config.Discover()
		if err != nil {
			return nil, configError(err)
		}
		if path != "" {
			logger.Debug("config loaded", "path", path)
		}
		return cfg, nil
	}

	cfg, err := config.Load(name)
	if err != nil {
		return nil, configError(err)
	}
	logger.Debug("config loaded", "name", name)
	return cfg, nil
}

func configError(err error) error {
	if errors.Is(err, config.ErrConfigNotFound) {
		return fmt.Errorf("%w%s", err, hints.ForConfigNotFound(config.SearchPaths(config.DefaultName)))
	}
	return err
}

// libraryOptions converts the merged config into library options.
func libraryOptions(cfg *config.Config, logger *slog.Logger) []markforge.Option {
	return []markforge.Option{
		markforge.WithMathEngine(cfg.Render.MathEngine),
		markforge.WithMathCacheSize(cfg.Render.MathCacheSize),
		markforge.WithHighlightStyle(cfg.Render.HighlightStyle),
		markforge.WithRawHTML(cfg.Render.RawHTML),
		markforge.WithSanitizer(cfg.Render.Sanitizer),
		markforge.WithStyle(cfg.Export.Style),
		markforge.WithAssetPath(cfg.Export.AssetsDir),
		markforge.WithTimeout(cfg.ExportTimeout()),
		markforge.WithLang(cfg.Export.Lang),
		markforge.WithLogger(logger),
	}
}

// openSettings opens the settings store named by the config, or the
// default ~/.markforge-config.json.
func openSettings(cfg *config.Config, logger *slog.Logger) (*settings.Store, error) {
	path := cfg.Settings.Path
	if path == "" {
		var err error
		if path, err = settings.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return settings.Open(path, logger), nil
}

// setupCommand runs the steps shared by every pipeline command: logger,
// config, flag merge and validation.
func setupCommand(fs *flag.FlagSet, common commonFlags, rf *renderFlags, stderr io.Writer) (*config.Config, *slog.Logger, error) {
	logger := newLogger(stderr, common)
	cfg, err := loadConfig(common.config, logger)
	if err != nil {
		return nil, nil, err
	}
	if rf != nil {
		mergeRenderFlags(fs, rf, cfg)
	}
	return cfg, logger, nil
}
