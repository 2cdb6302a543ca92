package figconv

import (
	"github.com/rs/zerolog"

	"github.com/scipress/figconv/exttool"
	"github.com/scipress/figconv/pipeline"
)

// ConvertOptions holds configuration for a conversion run.
type ConvertOptions struct {
	// Logging (disabled unless set)
	logger zerolog.Logger

	// Rendering
	workers  int
	previews bool

	// External tools
	rendererBinary  string
	converterBinary string
	converterArgs   []string

	// Packaging
	archiveExts []string
}

// defaultOptions returns the default conversion options.
func defaultOptions() ConvertOptions {
	return ConvertOptions{
		logger:      zerolog.Nop(),
		workers:     1,
		previews:    false,
		archiveExts: nil, // nil means the default .tex/.svg/.xml set
	}
}

// clone creates a deep copy of ConvertOptions.
func (o ConvertOptions) clone() ConvertOptions {
	newOpts := ConvertOptions{
		logger:          o.logger,
		workers:         o.workers,
		previews:        o.previews,
		rendererBinary:  o.rendererBinary,
		converterBinary: o.converterBinary,
	}

	if o.converterArgs != nil {
		newOpts.converterArgs = make([]string, len(o.converterArgs))
		copy(newOpts.converterArgs, o.converterArgs)
	}
	if o.archiveExts != nil {
		newOpts.archiveExts = make([]string, len(o.archiveExts))
		copy(newOpts.archiveExts, o.archiveExts)
	}

	return newOpts
}

// pipelineOptions converts the fluent configuration into the
// orchestrator's options.
func (o ConvertOptions) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		Logger:            o.logger,
		Renderer:          exttool.Renderer{Binary: o.rendererBinary},
		Converter:         exttool.Converter{Binary: o.converterBinary, Args: o.converterArgs},
		Workers:           o.workers,
		Previews:          o.previews,
		ArchiveExtensions: o.archiveExts,
	}
}
