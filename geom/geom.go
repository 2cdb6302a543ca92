// Package geom maps figure bounding boxes between coordinate frames.
//
// Annotation documents place figures in a top-left-origin frame with y
// increasing downward. PDF pages use a bottom-left origin with y
// increasing upward, and each page's extent differs. [Transform] is the
// single place that axis flip happens; everything downstream works in
// the page frame.
package geom

import (
	"fmt"
	"math"
)

// PageBox is a page's addressable extent in PDF units. MinX and MinY
// are the box's lower-left corner in the page coordinate space; a
// MediaBox need not start at (0,0).
type PageBox struct {
	MinX   float64
	MinY   float64
	Width  float64
	Height float64
}

// PageBoxFromMedia derives a PageBox from a MediaBox array [x1 y1 x2 y2].
func PageBoxFromMedia(box []float64) (PageBox, error) {
	if len(box) != 4 {
		return PageBox{}, fmt.Errorf("media box has %d elements, expected 4", len(box))
	}
	return PageBox{MinX: box[0], MinY: box[1], Width: box[2] - box[0], Height: box[3] - box[1]}, nil
}

// Rect is an axis-aligned rectangle in the page frame, defined by its
// lower-left and upper-right corners.
type Rect struct {
	LLx, LLy float64
	URx, URy float64
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 {
	return r.URx - r.LLx
}

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 {
	return r.URy - r.LLy
}

// Array returns the rectangle as the [llx lly urx ury] slice PDF box
// entries use.
func (r Rect) Array() []float64 {
	return []float64{r.LLx, r.LLy, r.URx, r.URy}
}

// Transform maps a figure box from the annotation frame into the page
// frame. (x, y) anchors the box's top-left corner, y measured downward
// from the page top; (w, h) is its extent. The result is in absolute
// page coordinates, anchored against the page box's own corners so an
// offset MediaBox crops where the annotation points:
//
//	lowerLeft  = (minX+x, minY+H-(y+h))
//	upperRight = (minX+x+w, minY+H-y)
//
// Fails on non-finite input and on non-positive width or height. The
// invariant LLx < URx && LLy < URy holds for every successful call.
func Transform(x, y, w, h float64, box PageBox) (Rect, error) {
	for _, v := range [...]float64{x, y, w, h, box.MinX, box.MinY, box.Width, box.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Rect{}, fmt.Errorf("non-finite coordinate %v", v)
		}
	}
	if w <= 0 || h <= 0 {
		return Rect{}, fmt.Errorf("non-positive figure extent %gx%g", w, h)
	}

	top := box.MinY + box.Height
	return Rect{
		LLx: box.MinX + x,
		LLy: top - (y + h),
		URx: box.MinX + x + w,
		URy: top - y,
	}, nil
}

// Untransform maps an absolute page-frame rectangle back to
// annotation-frame origin and extent. It is the inverse of Transform.
func Untransform(r Rect, box PageBox) (x, y, w, h float64) {
	return r.LLx - box.MinX, box.MinY + box.Height - r.URy, r.Width(), r.Height()
}
