// Package pipeline orchestrates the full conversion: locate figures in
// the annotation document, convert the narrative to LaTeX, crop one
// page region per figure, render each region to SVG, and package the
// results into a single zip archive.
//
// All intermediate files live in an exclusive working directory that is
// removed on every exit path; the archive bytes are the only output
// that survives a run.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/scipress/figconv/crop"
	"github.com/scipress/figconv/exttool"
	"github.com/scipress/figconv/format"
	"github.com/scipress/figconv/pack"
	"github.com/scipress/figconv/reader"
	"github.com/scipress/figconv/tei"
)

// Options configures a conversion run. The zero value uses the tools
// from the search path, sequential rendering, no previews, and a
// disabled logger.
type Options struct {
	Logger    zerolog.Logger
	Renderer  exttool.Renderer
	Converter exttool.Converter
	Previewer exttool.Previewer

	// Workers bounds concurrent SVG renders. Values below 2 render
	// sequentially.
	Workers int

	// Previews adds a raster JPEG per figure to the working area.
	// Previews are not part of the default archive member set.
	Previews bool

	// ArchiveExtensions overrides pack.DefaultExtensions.
	ArchiveExtensions []string
}

// Convert runs the whole pipeline over an annotation document and its
// PDF, returning the archive bytes plus any non-fatal locator
// warnings. Any stage failure aborts the run with no partial output.
func Convert(ctx context.Context, teiXML, pdfBytes []byte, opts Options) ([]byte, []tei.Warning, error) {
	log := opts.Logger

	dir, err := os.MkdirTemp("", "figconv-*")
	if err != nil {
		return nil, nil, fmt.Errorf("creating working directory: %w", err)
	}
	defer os.RemoveAll(dir)
	log.Debug().Str("workdir", dir).Msg("working directory created")

	if f := format.DetectFromMagic(pdfBytes); f != format.PDF {
		return nil, nil, fmt.Errorf("source document is %s, expected PDF", f)
	}

	figures, warnings, err := Locate(teiXML)
	if err != nil {
		return nil, nil, fmt.Errorf("locating figures: %w", err)
	}
	for _, w := range warnings {
		log.Warn().Str("element", w.Element).Msg(w.Message)
	}
	log.Info().Int("figures", len(figures)).Int("skipped", len(warnings)).Msg("figures located")

	if _, err := opts.Converter.ConvertNarrative(ctx, teiXML, dir); err != nil {
		return nil, warnings, fmt.Errorf("converting narrative: %w", err)
	}
	log.Info().Msg("narrative converted")

	src, err := reader.FromBytes(pdfBytes)
	if err != nil {
		return nil, warnings, fmt.Errorf("opening document: %w", err)
	}
	defer src.Close()

	artifacts, err := crop.Crop(src, figures, dir)
	if err != nil {
		return nil, warnings, err
	}
	log.Info().Int("cropped", len(artifacts)).Msg("pages cropped")

	if err := renderAll(ctx, opts, artifacts); err != nil {
		return nil, warnings, err
	}

	if opts.Previews {
		for label, art := range artifacts {
			jpegPath := art.Path[:len(art.Path)-len(".pdf")] + ".jpg"
			if err := opts.Previewer.Preview(ctx, art.Path, jpegPath); err != nil {
				return nil, warnings, fmt.Errorf("previewing figure %q: %w", label, err)
			}
			log.Debug().Str("figure", label).Msg("preview rendered")
		}
	}

	data, err := pack.Archive(dir, opts.ArchiveExtensions)
	if err != nil {
		return nil, warnings, fmt.Errorf("packaging results: %w", err)
	}
	log.Info().Int("bytes", len(data)).Msg("archive assembled")
	return data, warnings, nil
}

// Locate finds the annotated figures, dispatching on the document's
// markup dialect; some annotation exporters serialize the same element
// structure as HTML. Every entry point that lists or converts figures
// goes through this dispatch so both dialects behave identically.
func Locate(doc []byte) ([]tei.Figure, []tei.Warning, error) {
	if format.DetectFromMagic(doc) == format.HTML {
		return tei.LocateHTML(doc)
	}
	return tei.Locate(doc)
}

// renderAll converts every cropped page to SVG, fanning out over a
// bounded worker pool when opts.Workers allows it. The first failure
// cancels the remaining work.
func renderAll(ctx context.Context, opts Options, artifacts map[string]crop.Artifact) error {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > runtime.NumCPU() {
		workers = runtime.NumCPU()
	}
	if workers > len(artifacts) {
		workers = len(artifacts)
	}
	if len(artifacts) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan crop.Artifact, len(artifacts))
	for _, art := range artifacts {
		jobs <- art
	}
	close(jobs)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for art := range jobs {
				if ctx.Err() != nil {
					return
				}
				svgPath, err := opts.Renderer.Render(ctx, art.Path)
				if err != nil {
					fail(fmt.Errorf("rendering figure %q: %w", art.Label, err))
					return
				}
				opts.Logger.Debug().Str("figure", art.Label).Str("svg", svgPath).Msg("figure rendered")
			}
		}()
	}
	wg.Wait()
	return firstErr
}
