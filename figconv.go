// Package figconv converts annotated scientific PDFs into an archive
// of publication assets: a LaTeX body, one SVG per annotated figure,
// and the annotation document itself.
//
// Basic usage:
//
//	archive, warnings, err := figconv.Open("paper.pdf", "paper.tei.xml").Archive(ctx)
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", tei.FormatWarnings(warnings))
//	}
//
// With options:
//
//	archive, _, err := figconv.Open("paper.pdf", "paper.tei.xml").
//	    Workers(4).
//	    Previews().
//	    Archive(ctx)
//
// For advanced use cases, the lower-level tei, crop, and pipeline
// packages are also available.
package figconv

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/scipress/figconv/pipeline"
	"github.com/scipress/figconv/tei"
)

// Converter provides a fluent interface for running conversions. Each
// configuration method returns a new Converter instance, and terminal
// operations never mutate the receiver, making it safe for concurrent
// use and allowing method chaining.
type Converter struct {
	// Sources: file paths or in-memory bytes
	pdfPath string
	teiPath string
	pdf     []byte
	teiXML  []byte
	loaded  bool

	// Configuration
	options ConvertOptions

	// Accumulated error (fail-fast)
	err error
}

// Open prepares a conversion from a PDF file and its annotation
// document. Inputs are read lazily by the terminal operations.
//
// Example:
//
//	archive, warnings, err := figconv.Open("paper.pdf", "paper.tei.xml").Archive(ctx)
func Open(pdfPath, teiPath string) *Converter {
	return &Converter{
		pdfPath: pdfPath,
		teiPath: teiPath,
		options: defaultOptions(),
	}
}

// FromBytes prepares a conversion from in-memory inputs.
func FromBytes(pdf, teiXML []byte) *Converter {
	return &Converter{
		pdf:     pdf,
		teiXML:  teiXML,
		loaded:  true,
		options: defaultOptions(),
	}
}

// clone creates a shallow copy of the Converter with a deep copy of
// options, so each chain method returns an independent instance.
func (c *Converter) clone() *Converter {
	return &Converter{
		pdfPath: c.pdfPath,
		teiPath: c.teiPath,
		pdf:     c.pdf,
		teiXML:  c.teiXML,
		loaded:  c.loaded,
		options: c.options.clone(),
		err:     c.err,
	}
}

// Logger enables structured logging for the run.
func (c *Converter) Logger(logger zerolog.Logger) *Converter {
	newConv := c.clone()
	newConv.options.logger = logger
	return newConv
}

// Workers sets the number of concurrent SVG renders.
func (c *Converter) Workers(n int) *Converter {
	newConv := c.clone()
	if n < 1 {
		newConv.err = fmt.Errorf("worker count must be positive, got %d", n)
		return newConv
	}
	newConv.options.workers = n
	return newConv
}

// Previews adds a raster JPEG preview per figure to the working area.
func (c *Converter) Previews() *Converter {
	newConv := c.clone()
	newConv.options.previews = true
	return newConv
}

// ArchiveExtensions overrides which file types the archive collects.
func (c *Converter) ArchiveExtensions(exts ...string) *Converter {
	newConv := c.clone()
	newConv.options.archiveExts = append([]string(nil), exts...)
	return newConv
}

// RendererBinary overrides the pdf2svg executable.
func (c *Converter) RendererBinary(path string) *Converter {
	newConv := c.clone()
	newConv.options.rendererBinary = path
	return newConv
}

// ConverterBinary overrides the teitolatex executable, with optional
// extra arguments placed before the input and output paths.
func (c *Converter) ConverterBinary(path string, args ...string) *Converter {
	newConv := c.clone()
	newConv.options.converterBinary = path
	newConv.options.converterArgs = append([]string(nil), args...)
	return newConv
}

// inputs returns the conversion inputs, reading the files on every
// call when the Converter was built from paths. It does not touch the
// receiver, so terminal operations may run concurrently.
func (c *Converter) inputs() (pdf, teiXML []byte, err error) {
	if c.loaded {
		return c.pdf, c.teiXML, nil
	}
	pdf, err = os.ReadFile(c.pdfPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading PDF: %w", err)
	}
	teiXML, err = os.ReadFile(c.teiPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading annotation document: %w", err)
	}
	return pdf, teiXML, nil
}

// Figures locates the annotated figures without running the rest of
// the pipeline, using the same dialect dispatch as Archive.
func (c *Converter) Figures() ([]tei.Figure, []tei.Warning, error) {
	if c.err != nil {
		return nil, nil, c.err
	}
	_, teiXML, err := c.inputs()
	if err != nil {
		return nil, nil, err
	}
	return pipeline.Locate(teiXML)
}

// Archive runs the full conversion and returns the zip archive bytes
// plus any non-fatal locator warnings.
func (c *Converter) Archive(ctx context.Context) ([]byte, []tei.Warning, error) {
	if c.err != nil {
		return nil, nil, c.err
	}
	pdf, teiXML, err := c.inputs()
	if err != nil {
		return nil, nil, err
	}
	return pipeline.Convert(ctx, teiXML, pdf, c.options.pipelineOptions())
}

// WriteArchive runs the full conversion and writes the archive to
// path.
func (c *Converter) WriteArchive(ctx context.Context, path string) ([]tei.Warning, error) {
	data, warnings, err := c.Archive(ctx)
	if err != nil {
		return warnings, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return warnings, fmt.Errorf("writing archive: %w", err)
	}
	return warnings, nil
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustArchive wraps a call to Archive and panics on error, discarding
// warnings.
func MustArchive(data []byte, _ []tei.Warning, err error) []byte {
	if err != nil {
		panic(err)
	}
	return data
}
