package main

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alnah/markforge/internal/preview"
)

// ---------------------------------------------------------------------------
// TestRunServe - Preview server lifecycle
// ---------------------------------------------------------------------------

func TestRunServe(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, "")
	doc := writeFile(t, dir, "doc.md", "# Served\n")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	env, stdout, _ := testEnv(t)
	err := runServe(ctx, []string{"-c", cfg, "--addr", "127.0.0.1:0", "--no-reload", doc}, env)
	if err != nil {
		t.Fatalf("runServe() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "Previewing") || !strings.Contains(stdout.String(), "http://127.0.0.1:") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunServe_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, "")
	doc := writeFile(t, dir, "doc.md", "x")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ln.Close() }()

	tests := []struct {
		name     string
		args     []string
		wantErr  error
		wantCode int
	}{
		{"no file", []string{"-c", cfg}, ErrUsage, ExitUsage},
		{"missing file", []string{"-c", cfg, filepath.Join(dir, "nope.md")}, ErrReadMarkdown, ExitIO},
		{"bad addr", []string{"-c", cfg, "--addr", "nohostport", doc}, nil, ExitUsage},
		{"addr in use", []string{"-c", cfg, "--no-reload", "--addr", ln.Addr().String(), doc}, preview.ErrListen, ExitIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, _, _ := testEnv(t)
			err := runServe(context.Background(), tt.args, env)
			if err == nil {
				t.Fatal("runServe() error = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if got := exitCodeFor(err); got != tt.wantCode {
				t.Errorf("exit code = %d, want %d", got, tt.wantCode)
			}
		})
	}
}
