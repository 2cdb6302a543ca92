package exttool

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"
)

// Previewer renders a cropped figure PDF to a raster JPEG thumbnail.
// SVG remains the primary output; previews exist so figures can be
// inspected without an SVG renderer.
type Previewer struct {
	// MaxDim caps the longer edge of the preview in pixels. Zero means
	// 640.
	MaxDim int
	// Quality is the JPEG quality. Zero means 85.
	Quality int
}

// Preview renders the first page of pdfPath to jpegPath.
func (p Previewer) Preview(ctx context.Context, pdfPath, jpegPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", pdfPath, err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return fmt.Errorf("%s has no pages", pdfPath)
	}
	img, err := doc.Image(0)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", pdfPath, err)
	}

	maxDim := p.MaxDim
	if maxDim <= 0 {
		maxDim = 640
	}
	scaled := downscale(img, maxDim)

	quality := p.Quality
	if quality <= 0 {
		quality = 85
	}

	out, err := os.Create(jpegPath)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(out, scaled, &jpeg.Options{Quality: quality}); err != nil {
		out.Close()
		return fmt.Errorf("encoding %s: %w", jpegPath, err)
	}
	return out.Close()
}

// downscale shrinks img so its longer edge is at most maxDim,
// preserving aspect ratio. Images already within bounds pass through.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(longest)
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
