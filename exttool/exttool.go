// Package exttool runs the external converters the pipeline depends
// on: pdf2svg for vector rendering of cropped pages and teitolatex for
// the document body. Both are invoked as subprocesses; a missing or
// failing tool is fatal for the run.
package exttool

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ToolError reports a subprocess that could not be started or exited
// non-zero. Stderr carries the tool's own diagnostics.
type ToolError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Tool, strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// run executes the tool and waits for it, honoring ctx cancellation.
func run(ctx context.Context, tool string, args ...string) error {
	cmd := exec.CommandContext(ctx, tool, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &ToolError{
			Tool:   tool,
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return nil
}

// Renderer converts a single-page PDF to SVG via pdf2svg.
type Renderer struct {
	// Binary is the executable to invoke. Empty means "pdf2svg" from
	// the search path.
	Binary string
}

// Render converts pdfPath to an SVG file with the same stem and
// returns its path. A tool that exits zero without producing output is
// reported as a ToolError too.
func (r Renderer) Render(ctx context.Context, pdfPath string) (string, error) {
	binary := r.Binary
	if binary == "" {
		binary = "pdf2svg"
	}
	svgPath := strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + ".svg"
	if err := run(ctx, binary, pdfPath, svgPath); err != nil {
		return "", err
	}
	if _, err := os.Stat(svgPath); err != nil {
		return "", &ToolError{
			Tool: binary,
			Args: []string{pdfPath, svgPath},
			Err:  fmt.Errorf("tool exited cleanly but produced no output: %w", err),
		}
	}
	return svgPath, nil
}

// Converter transforms an annotation document to LaTeX via teitolatex.
type Converter struct {
	// Binary is the executable to invoke. Empty means "teitolatex"
	// from the search path.
	Binary string
	// Args are extra arguments placed before the input and output
	// paths.
	Args []string
}

// ConvertNarrative writes the annotation document to teidoc.xml in dir
// and converts it to teidoc.tex, returning the output path. Keeping
// teidoc.xml in dir also places it in the final archive alongside the
// LaTeX body.
func (c Converter) ConvertNarrative(ctx context.Context, doc []byte, dir string) (string, error) {
	xmlPath := filepath.Join(dir, "teidoc.xml")
	texPath := filepath.Join(dir, "teidoc.tex")
	if err := os.WriteFile(xmlPath, doc, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", xmlPath, err)
	}

	binary := c.Binary
	if binary == "" {
		binary = "teitolatex"
	}
	args := append(append([]string{}, c.Args...), xmlPath, texPath)
	if err := run(ctx, binary, args...); err != nil {
		return "", err
	}
	if _, err := os.Stat(texPath); err != nil {
		return "", &ToolError{
			Tool: binary,
			Args: args,
			Err:  fmt.Errorf("tool exited cleanly but produced no output: %w", err),
		}
	}
	return texPath, nil
}
