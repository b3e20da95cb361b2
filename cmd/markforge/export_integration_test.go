//go:build integration

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunExport_PDF_Integration(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, "export:\n  timeout: 60s\n")
	doc := writeFile(t, dir, "report.md", "# Report\n\n$E = mc^2$\n\n```go\nfunc main() {}\n```\n")
	out := filepath.Join(dir, "out", "report.pdf")

	env, stdout, stderr := testEnv(t)
	if err := runExport(context.Background(), []string{"-c", cfg, "-o", out, doc}, env); err != nil {
		t.Fatalf("runExport() error = %v (stderr: %s)", err, stderr)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "%PDF-") {
		t.Errorf("output is not a PDF (starts with %q)", data[:min(8, len(data))])
	}
	if !strings.Contains(stdout.String(), "Created "+out) {
		t.Errorf("stdout = %q", stdout.String())
	}
}
