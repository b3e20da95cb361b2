package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/markforge"
	"github.com/alnah/markforge/internal/fileutil"
)

const dirPermissions = 0o750 // rwxr-x---

// Exporter is the slice of *markforge.Exporter used by batch export.
type Exporter interface {
	Export(ctx context.Context, in markforge.Input, format markforge.Format, dest string) error
}

// Compile-time interface implementation check.
var _ Exporter = (*markforge.Exporter)(nil)

// Pool abstracts exporter pool operations for testability.
type Pool interface {
	Acquire() (Exporter, error)
	Release(Exporter)
	Size() int
}

// poolAdapter exposes *markforge.ExporterPool as a Pool.
type poolAdapter struct {
	pool *markforge.ExporterPool
}

func (a *poolAdapter) Acquire() (Exporter, error) {
	exp, err := a.pool.Acquire()
	if err != nil {
		return nil, err
	}
	return exp, nil
}

func (a *poolAdapter) Release(e Exporter) {
	exp, ok := e.(*markforge.Exporter)
	if !ok {
		panic(fmt.Sprintf("poolAdapter.Release: unexpected type %T", e))
	}
	a.pool.Release(exp)
}

func (a *poolAdapter) Size() int {
	return a.pool.Size()
}

// ---------------------------------------------------------------------------
// Discovery
// ---------------------------------------------------------------------------

// exportJob is one file to export.
type exportJob struct {
	InputPath  string
	OutputPath string
}

// discoverFiles expands files and directories into export jobs. Directories
// are walked recursively and their layout is mirrored under outputDir.
func discoverFiles(inputs []string, outputDir string, format markforge.Format) ([]exportJob, error) {
	single := len(inputs) == 1
	var jobs []exportJob
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadMarkdown, err)
		}

		if !info.IsDir() {
			if !fileutil.IsMarkdown(input) {
				return nil, fmt.Errorf("%w: %s (want .md or .markdown)", ErrInvalidExtension, input)
			}
			jobs = append(jobs, exportJob{
				InputPath:  input,
				OutputPath: resolveOutputPath(input, outputDir, "", format, single),
			})
			continue
		}

		err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("scanning %s: %w", path, err)
			}
			if d.IsDir() || !fileutil.IsMarkdown(path) {
				return nil
			}
			jobs = append(jobs, exportJob{
				InputPath:  path,
				OutputPath: resolveOutputPath(path, outputDir, input, format, false),
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return jobs, nil
}

// resolveOutputPath determines the output path for a Markdown file.
// With no outputDir the file lands next to its source. A single input with
// an outputDir ending in the format extension names the file itself.
func resolveOutputPath(inputPath, outputDir, baseInputDir string, format markforge.Format, single bool) string {
	ext := format.Ext()
	base := fileutil.BaseName(inputPath)

	if outputDir == "" {
		return fileutil.SiblingPath(inputPath, ext)
	}

	if single && strings.EqualFold(filepath.Ext(outputDir), ext) {
		return outputDir
	}

	if baseInputDir != "" {
		relPath, err := filepath.Rel(baseInputDir, inputPath)
		if err == nil {
			return filepath.Join(outputDir, filepath.Dir(relPath), base+ext)
		}
	}

	return filepath.Join(outputDir, base+ext)
}

// ---------------------------------------------------------------------------
// Batch
// ---------------------------------------------------------------------------

// exportResult holds the outcome of a single export.
type exportResult struct {
	InputPath  string
	OutputPath string
	Err        error
	Duration   time.Duration
}

// exportBatch runs jobs concurrently, at most pool.Size() at a time.
// A failed job does not stop the others.
func exportBatch(ctx context.Context, pool Pool, jobs []exportJob, format markforge.Format) []exportResult {
	if len(jobs) == 0 {
		return nil
	}

	results := make([]exportResult, len(jobs))
	var g errgroup.Group
	g.SetLimit(pool.Size())

	for i, job := range jobs {
		g.Go(func() error {
			results[i] = exportFile(ctx, pool, job, format)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// exportFile exports one job with an exporter borrowed from pool.
func exportFile(ctx context.Context, pool Pool, job exportJob, format markforge.Format) exportResult {
	start := time.Now()
	result := exportResult{InputPath: job.InputPath, OutputPath: job.OutputPath}
	finish := func(err error) exportResult {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	if err := ctx.Err(); err != nil {
		return finish(err)
	}

	content, err := os.ReadFile(job.InputPath) // #nosec G304 -- discovered path
	if err != nil {
		return finish(fmt.Errorf("%w: %w", ErrReadMarkdown, err))
	}

	if err := os.MkdirAll(filepath.Dir(job.OutputPath), dirPermissions); err != nil {
		return finish(fmt.Errorf("%w: %w", ErrOutputDir, err))
	}

	exp, err := pool.Acquire()
	if err != nil {
		return finish(fmt.Errorf("%w: %w", ErrExporterInit, err))
	}
	defer pool.Release(exp)

	in := markforge.Input{Text: string(content), Path: job.InputPath}
	return finish(exp.Export(ctx, in, format, job.OutputPath))
}

// countResults tallies succeeded and failed exports.
func countResults(results []exportResult) (succeeded, failed int) {
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			succeeded++
		}
	}
	return succeeded, failed
}

// printResults outputs export results and returns the failure count.
func printResults(results []exportResult, quiet, verbose bool, env *Environment) int {
	succeeded, failed := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", r.InputPath, r.Err, errorHint(r.Err))
			continue
		}

		if quiet {
			continue
		}

		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%v)\n", r.InputPath, r.OutputPath, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", succeeded, failed)
	}

	return failed
}
