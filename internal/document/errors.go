package document

import "errors"

// Sentinel errors for session operations.
var (
	ErrNoPath     = errors.New("document has no path and no prompter is available")
	ErrCanceled   = errors.New("canceled by user")
	ErrNoExporter = errors.New("export is not configured")
	ErrRead       = errors.New("failed to read document")
	ErrWrite      = errors.New("failed to write document")
	ErrUnknownOp  = errors.New("unknown command")
)
