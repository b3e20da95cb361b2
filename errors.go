package markforge

import "errors"

// Sentinel errors for library operations.
var (
	ErrHTMLConversion = errors.New("HTML conversion failed")
	ErrRender         = errors.New("rendering failed")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrWriteOutput    = errors.New("failed to write output file")
	ErrTemplate       = errors.New("document template failed")

	// Configuration errors.
	ErrInvalidFormat     = errors.New("invalid export format")
	ErrInvalidMathEngine = errors.New("invalid math engine")
	ErrInvalidSanitizer  = errors.New("invalid sanitizer mode")
	ErrInvalidAssetPath  = errors.New("invalid asset path")
	ErrStyleNotFound     = errors.New("style not found")
)
