package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/alnah/markforge/internal/document"
	"github.com/alnah/markforge/internal/tui"
)

// EditorFunc runs the interactive editor until the user quits.
type EditorFunc func(ctx context.Context, newSession tui.SessionFactory, first *document.Command) error

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	EnvFile string // loaded before dispatch; a missing file is ignored
	Editor  EditorFunc
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		EnvFile: ".env",
		Editor: func(ctx context.Context, newSession tui.SessionFactory, first *document.Command) error {
			return tui.Run(ctx, newSession, first)
		},
	}
}

// loadEnvFile exports the variables of a dotenv file, typically ROD_* and
// MARKFORGE_CONFIG. Variables already set in the process win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: loading %s: %v", ErrUsage, path, err)
	}
	return nil
}
