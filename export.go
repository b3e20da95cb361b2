package markforge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/alnah/markforge/internal/assets"
	"github.com/alnah/markforge/internal/fileutil"
	"github.com/alnah/markforge/internal/htmltree"
)

// KaTeXStylesheet is linked by exported documents when the KaTeX engine is used.
const KaTeXStylesheet = "https://cdn.jsdelivr.net/npm/katex@0.16.8/dist/katex.min.css"

// ContentSecurityPolicy is set on exported documents. Scripts fall back to
// default-src 'self', so none of the document's own markup can run code.
const ContentSecurityPolicy = "default-src 'self'; " +
	"style-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net; " +
	"font-src 'self' https://cdn.jsdelivr.net; " +
	"img-src 'self' file: data: https:;"

// untitled is the title of a document without a path.
const untitled = "Untitled"

// outputPerm is the mode of exported files.
const outputPerm = 0o644

// Format is an export target.
type Format string

// Supported formats.
const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// ParseFormat validates a format name (case-insensitive).
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatHTML, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (must be html or pdf)", ErrInvalidFormat, name)
	}
}

// Ext returns the file extension for the format, with its leading dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Input is a document to export.
type Input struct {
	Text string // Markdown source
	Path string // Source file path; empty for an unsaved document
}

// Title returns the file name without extension, or "Untitled".
func (in Input) Title() string {
	if in.Path == "" {
		return untitled
	}
	return fileutil.BaseName(in.Path)
}

// documentData feeds the document template.
type documentData struct {
	Lang            string
	CSP             string
	Title           string
	KaTeXStylesheet string
	CSS             template.CSS
	Body            template.HTML
}

// Exporter writes rendered documents as standalone HTML or PDF.
// Safe for concurrent use; PDF exports are serialized on one browser.
type Exporter struct {
	cfg      config
	renderer *Renderer
	tmpl     *template.Template
	css      string
	logger   *slog.Logger

	pdfMu sync.Mutex
	pdf   pdfConverter
}

// NewExporter creates an Exporter and its Renderer. The browser is started
// lazily on the first PDF export.
func NewExporter(opts ...Option) (*Exporter, error) {
	cfg := newConfig(opts)

	renderer, err := newRenderer(cfg)
	if err != nil {
		return nil, err
	}

	loader, err := assets.NewAssetResolver(cfg.assetPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
	}

	styleName := cfg.style
	if styleName == "" {
		styleName = assets.DefaultStyleName
	}
	css, err := loader.LoadStyle(styleName)
	if err != nil {
		if errors.Is(err, assets.ErrStyleNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrStyleNotFound, styleName)
		}
		return nil, fmt.Errorf("loading style %q: %w", styleName, err)
	}

	chromaCSS, err := highlightCSS(renderer.HighlightStyle())
	if err != nil {
		return nil, err
	}

	source, err := loader.LoadTemplate(assets.DocumentTemplateName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	tmpl, err := template.New(assets.DocumentTemplateName).Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}

	return &Exporter{
		cfg:      cfg,
		renderer: renderer,
		tmpl:     tmpl,
		css:      css + "\n" + chromaCSS,
		logger:   cfg.logger,
	}, nil
}

// highlightCSS returns the chroma stylesheet for class-based highlighting.
func highlightCSS(style string) (string, error) {
	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, styles.Get(style)); err != nil {
		return "", fmt.Errorf("writing highlight CSS: %w", err)
	}
	return buf.String(), nil
}

// Renderer returns the Renderer used for document bodies.
func (e *Exporter) Renderer() *Renderer {
	return e.renderer
}

// Document renders in as a standalone HTML document with the export CSP.
func (e *Exporter) Document(ctx context.Context, in Input) (string, error) {
	return e.document(ctx, in, ContentSecurityPolicy, false)
}

// PreviewPage renders in as a standalone page without a CSP, for a
// loopback preview server that injects its own reload script.
func (e *Exporter) PreviewPage(ctx context.Context, in Input) (string, error) {
	return e.document(ctx, in, "", false)
}

// document builds the page. With absolutePaths, relative image and link
// targets are rewritten to file:// URLs under the source directory.
func (e *Exporter) document(ctx context.Context, in Input, csp string, absolutePaths bool) (string, error) {
	body, err := e.renderer.Render(ctx, in.Text)
	if err != nil {
		return "", err
	}

	if absolutePaths && in.Path != "" {
		sourceDir, err := filepath.Abs(filepath.Dir(in.Path))
		if err != nil {
			return "", fmt.Errorf("resolving source directory: %w", err)
		}
		body, err = htmltree.RewriteRelativePaths(body, sourceDir)
		if err != nil {
			return "", fmt.Errorf("rewriting relative paths: %w", err)
		}
	}

	data := documentData{
		Lang:  e.cfg.lang,
		CSP:   csp,
		Title: in.Title(),
		CSS:   template.CSS(e.css), // #nosec G203 -- stylesheet comes from trusted assets
		Body:  template.HTML(body), // #nosec G203 -- body is sanitized above
	}
	if e.renderer.MathEngine() == "katex" {
		data.KaTeXStylesheet = KaTeXStylesheet
	}

	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	return buf.String(), nil
}

// Export writes in to dest in the given format.
func (e *Exporter) Export(ctx context.Context, in Input, format Format, dest string) error {
	switch format {
	case FormatHTML:
		return e.ExportHTML(ctx, in, dest)
	case FormatPDF:
		return e.ExportPDF(ctx, in, dest)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
}

// ExportHTML writes the standalone document to dest, replacing it atomically.
func (e *Exporter) ExportHTML(ctx context.Context, in Input, dest string) error {
	doc, err := e.Document(ctx, in)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(dest, []byte(doc), outputPerm); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	e.logger.Info("exported", "format", FormatHTML, "path", dest)
	return nil
}

// ExportPDF prints the document through headless Chrome and writes it to
// dest. A failed export never replaces an existing file at dest.
func (e *Exporter) ExportPDF(ctx context.Context, in Input, dest string) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.timeout)
	defer cancel()

	doc, err := e.document(ctx, in, ContentSecurityPolicy, true)
	if err != nil {
		return err
	}

	e.pdfMu.Lock()
	if e.pdf == nil {
		e.pdf = newRodConverter(e.cfg.timeout, e.logger)
	}
	pdf, err := e.pdf.ToPDF(ctx, doc)
	e.pdfMu.Unlock()
	if err != nil {
		return err
	}

	if err := fileutil.WriteFileAtomic(dest, pdf, outputPerm); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	e.logger.Info("exported", "format", FormatPDF, "path", dest, "bytes", len(pdf))
	return nil
}

// Close releases the browser, if one was started.
func (e *Exporter) Close() error {
	e.pdfMu.Lock()
	defer e.pdfMu.Unlock()
	if e.pdf != nil {
		err := e.pdf.Close()
		e.pdf = nil
		return err
	}
	return nil
}
