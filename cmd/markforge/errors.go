package main

import "errors"

// CLI errors. Library errors are mapped in exit_codes.go.
var (
	ErrUsage            = errors.New("invalid usage")
	ErrNoInput          = errors.New("no input files")
	ErrReadMarkdown     = errors.New("failed to read markdown")
	ErrInvalidExtension = errors.New("not a Markdown file")
	ErrExporterInit     = errors.New("failed to start exporter")
	ErrOutputDir        = errors.New("failed to create output directory")
)
