package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/alnah/markforge"
	"github.com/alnah/markforge/internal/hints"
	"github.com/alnah/markforge/internal/preview"
)

// runServe serves a live preview of one Markdown file until ctx is done.
func runServe(ctx context.Context, args []string, env *Environment) error {
	fs := newFlagSet("serve", env.Stderr, printServeUsage)
	var (
		common   commonFlags
		rf       renderFlags
		addr     string
		noReload bool
	)
	addCommonFlags(fs, &common)
	addRenderFlags(fs, &rf)
	fs.StringVarP(&addr, "addr", "a", "", "listen address (host:port)")
	fs.BoolVar(&noReload, "no-reload", false, "disable live reload")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: serve takes one Markdown file", ErrUsage)
	}
	path := fs.Arg(0)

	cfg, logger, err := setupCommand(fs, common, &rf, env.Stderr)
	if err != nil {
		return err
	}
	if fs.Changed("addr") {
		cfg.Preview.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %w", ErrReadMarkdown, err)
	}

	exp, err := markforge.NewExporter(libraryOptions(cfg, logger)...)
	if err != nil {
		return err
	}
	defer func() { _ = exp.Close() }()

	srv, err := preview.New(path, exp, exp.Renderer(),
		preview.WithLogger(logger),
		preview.WithLiveReload(!noReload),
	)
	if err != nil {
		return err
	}

	ln, err := preview.Listen(ctx, cfg.Preview.Addr)
	if err != nil {
		if errors.Is(err, preview.ErrListen) {
			return fmt.Errorf("%w%s", err, hints.ForAddrInUse())
		}
		return err
	}
	if !common.quiet {
		fmt.Fprintf(env.Stdout, "Previewing %s at http://%s (Ctrl+C to stop)\n", srv.Path(), ln.Addr())
	}
	return srv.Serve(ctx, ln)
}
