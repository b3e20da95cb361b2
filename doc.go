// Package markforge renders Markdown with LaTeX math to sanitized HTML and
// exports it as standalone HTML or PDF documents.
//
// # Quick Start
//
// Render a fragment for a live preview:
//
//	r, err := markforge.NewRenderer()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fragment, err := r.Render(ctx, "# Hello\n\n$$e^{i\\pi} + 1 = 0$$")
//
// Export a document, closing the exporter to release the browser:
//
//	exp, err := markforge.NewExporter(markforge.WithTimeout(time.Minute))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exp.Close()
//
//	err = exp.Export(ctx, markforge.Input{Text: text, Path: "notes.md"},
//	    markforge.FormatPDF, "notes.pdf")
//
// # Rendering Pipeline
//
//  1. Line endings normalized to \n
//  2. Math spans ($$...$$ then $...$) outside code replaced by placeholders
//  3. Markdown to HTML via Goldmark (GFM, footnotes, chroma highlighting,
//     math fences, inline-code math)
//  4. Placeholders expanded to typeset math (KaTeX or MathML)
//  5. HTML sanitized (regex blocklist, or bluemonday policy)
//
// Math failures never fail a render: the span becomes a visible
// katex-error element carrying the message.
//
// # Export
//
// HTML export wraps the fragment in a standalone document with a
// Content-Security-Policy, the KaTeX stylesheet, GitHub-light CSS and the
// chroma stylesheet for the configured highlight style. PDF export prints the
// same document through headless Chrome (go-rod) on A4 paper with 20 mm
// margins. Output files are replaced atomically.
//
// # Browser Requirements
//
// PDF generation requires Chrome/Chromium. The go-rod library automatically
// downloads a managed Chromium instance on first run (~/.cache/rod/browser/).
//
// For containers and CI environments, set ROD_NO_SANDBOX=1 to disable the
// Chrome sandbox. Use ROD_BROWSER_BIN to specify a custom Chrome binary.
package markforge
