package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testEnv returns an environment writing to buffers, with no dotenv file
// and an editor that fails the test if started.
func testEnv(t *testing.T) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	env := &Environment{
		Stdin:  strings.NewReader(""),
		Stdout: &stdout,
		Stderr: &stderr,
	}
	return env, &stdout, &stderr
}

// writeFile writes content under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeTestConfig writes a config that keeps settings inside dir and
// returns its path, so tests never touch the user's home.
func writeTestConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	settingsPath := filepath.Join(dir, "settings.json")
	content := "settings:\n  path: " + settingsPath + "\n" + extra
	return writeFile(t, dir, "markforge.yaml", content)
}
