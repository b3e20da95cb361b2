package main

import (
	"errors"
	"os"

	"github.com/alnah/markforge"
	"github.com/alnah/markforge/internal/config"
	"github.com/alnah/markforge/internal/document"
	"github.com/alnah/markforge/internal/preview"
	"github.com/alnah/markforge/internal/settings"
)

// Exit codes for CLI operations.
const (
	ExitSuccess = 0 // Successful execution
	ExitGeneral = 1 // General/unknown error
	ExitUsage   = 2 // Invalid flags, config, or arguments
	ExitIO      = 3 // File not found, permission denied, write errors
	ExitBrowser = 4 // Chrome not found, connection failed, PDF generation timeout
)

// exitCodeFor maps an error to the appropriate exit code.
// Returns ExitSuccess for nil, ExitGeneral for unrecognized errors.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case isBrowserError(err):
		return ExitBrowser
	case isIOError(err):
		return ExitIO
	case isUsageError(err):
		return ExitUsage
	default:
		return ExitGeneral
	}
}

func isBrowserError(err error) bool {
	return errors.Is(err, markforge.ErrBrowserConnect) ||
		errors.Is(err, markforge.ErrPageCreate) ||
		errors.Is(err, markforge.ErrPageLoad) ||
		errors.Is(err, markforge.ErrPDFGeneration)
}

func isIOError(err error) bool {
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadMarkdown) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrOutputDir) ||
		errors.Is(err, markforge.ErrWriteOutput) ||
		errors.Is(err, document.ErrRead) ||
		errors.Is(err, document.ErrWrite) ||
		errors.Is(err, settings.ErrSave) ||
		errors.Is(err, preview.ErrListen)
}

func isUsageError(err error) bool {
	return errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, markforge.ErrInvalidFormat) ||
		errors.Is(err, markforge.ErrInvalidMathEngine) ||
		errors.Is(err, markforge.ErrInvalidSanitizer) ||
		errors.Is(err, markforge.ErrInvalidAssetPath) ||
		errors.Is(err, markforge.ErrStyleNotFound) ||
		errors.Is(err, settings.ErrEmptyKey) ||
		errors.Is(err, settings.ErrValue)
}
