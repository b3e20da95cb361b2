package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alnah/markforge"
)

// runRender prints the sanitized HTML fragment of one Markdown file.
func runRender(ctx context.Context, args []string, env *Environment) error {
	fs := newFlagSet("render", env.Stderr, printRenderUsage)
	var (
		common commonFlags
		rf     renderFlags
	)
	addCommonFlags(fs, &common)
	addRenderFlags(fs, &rf)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: render takes one file, or - for stdin", ErrUsage)
	}

	cfg, logger, err := setupCommand(fs, common, &rf, env.Stderr)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	text, err := readInput(fs.Arg(0), env.Stdin)
	if err != nil {
		return err
	}

	renderer, err := markforge.NewRenderer(libraryOptions(cfg, logger)...)
	if err != nil {
		return err
	}
	html, err := renderer.Render(ctx, text)
	if err != nil {
		return err
	}
	_, err = io.WriteString(env.Stdout, html)
	return err
}

// readInput reads a Markdown file, or stdin when path is "-".
func readInput(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) // #nosec G304 -- user-provided path
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReadMarkdown, err)
	}
	return string(data), nil
}
