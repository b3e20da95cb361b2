package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/alnah/markforge"
	"github.com/alnah/markforge/internal/assets"
	"github.com/alnah/markforge/internal/hints"
	"github.com/alnah/markforge/internal/mathtex"
)

// runExport exports Markdown files and directories to HTML or PDF.
func runExport(ctx context.Context, args []string, env *Environment) error {
	fs := newFlagSet("export", env.Stderr, printExportUsage)
	var (
		common commonFlags
		rf     renderFlags
		ef     exportFlags
	)
	addCommonFlags(fs, &common)
	addRenderFlags(fs, &rf)
	addExportFlags(fs, &ef)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: export needs at least one file or directory", ErrNoInput)
	}

	cfg, logger, err := setupCommand(fs, common, &rf, env.Stderr)
	if err != nil {
		return err
	}
	mergeExportFlags(fs, &ef, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	format, err := markforge.ParseFormat(ef.format)
	if err != nil {
		return err
	}

	outputDir := ef.output
	if outputDir == "" {
		outputDir = cfg.Export.OutputDir
	}
	files, err := discoverFiles(fs.Args(), outputDir, format)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no Markdown files in %s", ErrNoInput, strings.Join(fs.Args(), ", "))
	}

	setMaxProcs(logger)
	size := min(markforge.ResolvePoolSize(cfg.Export.Workers), len(files))
	logger.Debug("starting export", "files", len(files), "format", format, "workers", size)

	pool := markforge.NewExporterPool(size, libraryOptions(cfg, logger)...)
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Warn("closing exporters", "error", err)
		}
	}()

	results := exportBatch(ctx, &poolAdapter{pool: pool}, files, format)
	return reportResults(results, common, env)
}

// setMaxProcs aligns GOMAXPROCS with the container CPU quota before the
// pool is sized from it.
func setMaxProcs(logger *slog.Logger) {
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))
}

// reportResults prints one line per file and returns an error wrapping the
// first failure, so the exit code reflects its cause.
func reportResults(results []exportResult, common commonFlags, env *Environment) error {
	failed := printResults(results, common.quiet, common.verbose, env)
	if failed == 0 {
		return nil
	}
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("%d of %d exports failed: %w", failed, len(results), r.Err)
		}
	}
	return nil
}

// errorHint returns an actionable hint for common export failures.
func errorHint(err error) string {
	switch {
	case errors.Is(err, markforge.ErrBrowserConnect), errors.Is(err, markforge.ErrPageCreate):
		return hints.ForBrowserConnect()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, markforge.ErrPDFGeneration):
		return hints.ForTimeout()
	case errors.Is(err, markforge.ErrStyleNotFound):
		return hints.ForStyleNotFound([]string{assets.DefaultStyleName})
	case errors.Is(err, ErrOutputDir):
		return hints.ForOutputDirectory()
	case errors.Is(err, markforge.ErrInvalidMathEngine), errors.Is(err, mathtex.ErrUnknownEngine):
		return hints.ForMathEngine([]string{string(mathtex.EngineKaTeX), string(mathtex.EngineMathML)})
	default:
		return ""
	}
}
