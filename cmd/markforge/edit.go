package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alnah/markforge"
	"github.com/alnah/markforge/internal/document"
	"github.com/alnah/markforge/internal/settings"
)

const logFilePermissions = 0o600

// runEdit opens the terminal editor on a file, the last opened file, or the
// welcome document.
func runEdit(ctx context.Context, args []string, env *Environment) error {
	fs := newFlagSet("edit", env.Stderr, printEditUsage)
	var (
		common  commonFlags
		rf      renderFlags
		last    bool
		logFile string
	)
	addCommonFlags(fs, &common)
	addRenderFlags(fs, &rf)
	fs.BoolVar(&last, "last", false, "reopen the last opened file")
	fs.StringVar(&logFile, "log-file", "", "write logs to this file (the terminal is taken by the editor)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("%w: edit takes at most one file", ErrUsage)
	}

	logOut := io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions) // #nosec G304 -- user-provided path
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		logOut = f
	}

	cfg, logger, err := setupCommand(fs, common, &rf, logOut)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := openSettings(cfg, logger)
	if err != nil {
		return err
	}

	exp, err := markforge.NewExporter(libraryOptions(cfg, logger)...)
	if err != nil {
		return err
	}
	defer func() { _ = exp.Close() }()

	first := firstCommand(fs.Arg(0), last, store)
	logger.Debug("starting editor", "first", first.Op, "path", first.Path)

	return env.Editor(ctx, newSessionFactory(exp, store, logger), first)
}

// firstCommand picks what the editor shows on start: the named file, the
// last opened file with --last, else the welcome document.
func firstCommand(path string, last bool, store *settings.Store) *document.Command {
	if path == "" && last {
		path = store.GetString(settings.KeyLastOpened, "")
	}
	if path != "" {
		return &document.Command{Op: document.OpOpen, Path: path}
	}
	return &document.Command{Op: document.OpLoad, Text: document.Welcome}
}

func newSessionFactory(exp *markforge.Exporter, store *settings.Store, logger *slog.Logger) func(document.Prompter) *document.Session {
	return func(p document.Prompter) *document.Session {
		return document.NewSession(exp.Renderer(),
			document.WithExporter(exp),
			document.WithSettings(store),
			document.WithPrompter(p),
			document.WithLogger(logger),
		)
	}
}
