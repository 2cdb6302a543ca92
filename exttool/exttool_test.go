package exttool

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// stubTool writes an executable shell script standing in for an
// external converter.
func stubTool(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "tool.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("writing stub: %v", err)
	}
	return path
}

func TestRendererDerivesOutputPath(t *testing.T) {
	tool := stubTool(t, `cp "$1" "$2"`)
	dir := t.TempDir()
	src := filepath.Join(dir, "fig_1.pdf")
	if err := os.WriteFile(src, []byte("%PDF-1.7"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := Renderer{Binary: tool}
	svgPath, err := r.Render(context.Background(), src)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if svgPath != filepath.Join(dir, "fig_1.svg") {
		t.Errorf("unexpected output path %q", svgPath)
	}

	data, err := os.ReadFile(svgPath)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if string(data) != "%PDF-1.7" {
		t.Errorf("tool did not receive expected arguments")
	}
}

func TestRendererRejectsSilentlyEmptyTool(t *testing.T) {
	tool := stubTool(t, `exit 0`)

	r := Renderer{Binary: tool}
	_, err := r.Render(context.Background(), filepath.Join(t.TempDir(), "fig_1.pdf"))
	if err == nil {
		t.Fatal("expected error when tool produces no output")
	}
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %T", err)
	}
}

func TestToolFailureCarriesStderr(t *testing.T) {
	tool := stubTool(t, `echo "cannot open input" >&2; exit 3`)

	r := Renderer{Binary: tool}
	_, err := r.Render(context.Background(), "in.pdf")
	if err == nil {
		t.Fatal("expected error")
	}

	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %T", err)
	}
	if !strings.Contains(toolErr.Stderr, "cannot open input") {
		t.Errorf("stderr not captured: %q", toolErr.Stderr)
	}
	if !strings.Contains(toolErr.Error(), "cannot open input") {
		t.Errorf("Error() omits stderr: %q", toolErr.Error())
	}
}

func TestMissingToolFails(t *testing.T) {
	c := Converter{Binary: filepath.Join(t.TempDir(), "no-such-tool")}
	_, err := c.ConvertNarrative(context.Background(), []byte("<TEI/>"), t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing tool")
	}
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %T", err)
	}
}

func TestConvertNarrativeWritesInputAndOutput(t *testing.T) {
	tool := stubTool(t, `cat "$1" > "$2"`)
	dir := t.TempDir()

	c := Converter{Binary: tool}
	texPath, err := c.ConvertNarrative(context.Background(), []byte("<TEI/>"), dir)
	if err != nil {
		t.Fatalf("ConvertNarrative returned error: %v", err)
	}
	if texPath != filepath.Join(dir, "teidoc.tex") {
		t.Errorf("unexpected output path %q", texPath)
	}

	xml, err := os.ReadFile(filepath.Join(dir, "teidoc.xml"))
	if err != nil {
		t.Fatalf("teidoc.xml not written: %v", err)
	}
	if string(xml) != "<TEI/>" {
		t.Errorf("teidoc.xml content mangled: %q", xml)
	}
	tex, err := os.ReadFile(texPath)
	if err != nil {
		t.Fatalf("teidoc.tex not written: %v", err)
	}
	if string(tex) != "<TEI/>" {
		t.Errorf("tool did not receive expected arguments: %q", tex)
	}
}

func TestConvertNarrativePassesExtraArgs(t *testing.T) {
	// The stub shifts one extra flag before input/output.
	tool := stubTool(t, `[ "$1" = "--strict" ] || exit 9
shift
cat "$1" > "$2"`)

	c := Converter{Binary: tool, Args: []string{"--strict"}}
	if _, err := c.ConvertNarrative(context.Background(), []byte("<TEI/>"), t.TempDir()); err != nil {
		t.Fatalf("ConvertNarrative returned error: %v", err)
	}
}

func TestRenderHonorsCancellation(t *testing.T) {
	tool := stubTool(t, `sleep 10`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := Renderer{Binary: tool}
	if _, err := r.Render(ctx, "in.pdf"); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestDownscale(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		maxDim       int
		wantW, wantH int
	}{
		{name: "shrinks wide image", w: 1280, h: 640, maxDim: 640, wantW: 640, wantH: 320},
		{name: "shrinks tall image", w: 300, h: 900, maxDim: 300, wantW: 100, wantH: 300},
		{name: "passes small image through", w: 100, h: 80, maxDim: 640, wantW: 100, wantH: 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewRGBA(image.Rect(0, 0, tt.w, tt.h))
			got := downscale(src, tt.maxDim)
			bounds := got.Bounds()
			if bounds.Dx() != tt.wantW || bounds.Dy() != tt.wantH {
				t.Errorf("expected %dx%d, got %dx%d", tt.wantW, tt.wantH, bounds.Dx(), bounds.Dy())
			}
		})
	}
}
