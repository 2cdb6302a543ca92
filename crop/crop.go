// Package crop produces single-page PDF files whose visible region is
// restricted to a figure's bounding box.
//
// Cropping is metadata-only: page content streams, fonts, and images
// are carried over byte for byte, and only the page's CropBox and
// TrimBox entries change. Renderers that honor the crop box display
// just the figure region.
package crop

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scipress/figconv/core"
	"github.com/scipress/figconv/geom"
	"github.com/scipress/figconv/pages"
	"github.com/scipress/figconv/reader"
	"github.com/scipress/figconv/tei"
)

// ErrPageOutOfRange reports a figure that names a page the source
// document does not have. Unlike malformed markers, this indicates the
// annotations and the document do not belong together, so the run
// aborts.
var ErrPageOutOfRange = errors.New("figure page out of range")

// Artifact describes one cropped page written to disk.
type Artifact struct {
	Label string
	Page  int // 1-indexed source page
	Path  string
	Box   geom.Rect // crop region in the page frame
}

// Crop writes one single-page PDF per figure into dir, named
// "<label>.pdf". Artifacts are keyed by figure label. Any failure
// aborts the whole batch.
func Crop(r *reader.Reader, figures []tei.Figure, dir string) (map[string]Artifact, error) {
	pageCount, err := r.PageCount()
	if err != nil {
		return nil, fmt.Errorf("reading page count: %w", err)
	}

	// Validate the whole batch before the first write so a bad figure
	// cannot leave earlier artifacts behind.
	for _, fig := range figures {
		if fig.Page < 1 || fig.Page > pageCount {
			return nil, fmt.Errorf("figure %q names page %d of a %d-page document: %w",
				fig.Label, fig.Page, pageCount, ErrPageOutOfRange)
		}
	}

	artifacts := make(map[string]Artifact, len(figures))
	for _, fig := range figures {
		art, err := cropOne(r, fig, dir)
		if err != nil {
			return nil, fmt.Errorf("cropping figure %q: %w", fig.Label, err)
		}
		artifacts[fig.Label] = art
	}
	return artifacts, nil
}

func cropOne(r *reader.Reader, fig tei.Figure, dir string) (Artifact, error) {
	page, err := r.GetPage(fig.Page - 1)
	if err != nil {
		return Artifact{}, err
	}
	media, err := page.MediaBox()
	if err != nil {
		return Artifact{}, err
	}
	pageBox, err := geom.PageBoxFromMedia(media)
	if err != nil {
		return Artifact{}, err
	}
	box, err := geom.Transform(fig.X, fig.Y, fig.W, fig.H, pageBox)
	if err != nil {
		return Artifact{}, err
	}

	doc, err := buildPageDocument(r, page, box)
	if err != nil {
		return Artifact{}, err
	}

	path := filepath.Join(dir, fig.Label+".pdf")
	out, err := os.Create(path)
	if err != nil {
		return Artifact{}, err
	}
	if _, err := doc.WriteTo(out); err != nil {
		out.Close()
		return Artifact{}, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return Artifact{}, err
	}

	return Artifact{Label: fig.Label, Page: fig.Page, Path: path, Box: box}, nil
}

// buildPageDocument assembles a one-page document around the given
// page, with its crop and trim boxes set to box.
func buildPageDocument(r *reader.Reader, page *pages.Page, box geom.Rect) (*core.Writer, error) {
	w := core.NewWriter()
	c := &copier{src: r, dst: w, memo: make(map[int]core.IndirectRef)}

	catalogRef := w.Reserve()
	pagesRef := w.Reserve()
	pageRef := w.Reserve()

	pageDict, err := c.copyPageDict(page, pagesRef, box)
	if err != nil {
		return nil, err
	}

	w.Put(catalogRef, core.Dict{
		"Type":  core.Name("Catalog"),
		"Pages": pagesRef,
	})
	w.Put(pagesRef, core.Dict{
		"Type":  core.Name("Pages"),
		"Kids":  core.Array{pageRef},
		"Count": core.Int(1),
	})
	w.Put(pageRef, pageDict)
	w.SetRoot(catalogRef)
	return w, nil
}

// copier deep-copies an object graph out of a source document,
// renumbering every indirect object. memo breaks reference cycles.
type copier struct {
	src  *reader.Reader
	dst  *core.Writer
	memo map[int]core.IndirectRef
}

// copyPageDict copies a page dictionary for a standalone document. The
// original /Parent is dropped, inheritable attributes are materialized
// onto the page, and the crop and trim boxes are set identically.
func (c *copier) copyPageDict(page *pages.Page, parent core.IndirectRef, box geom.Rect) (core.Dict, error) {
	out := core.Dict{}
	src := page.Dict()
	for _, key := range src.Keys() {
		if key == "Parent" {
			continue
		}
		copied, err := c.copy(src.Get(key))
		if err != nil {
			return nil, fmt.Errorf("copying page /%s: %w", key, err)
		}
		out.Set(key, copied)
	}

	// MediaBox and Resources may live on an ancestor Pages node, which
	// the standalone document no longer has.
	for _, key := range []string{"MediaBox", "Resources", "Rotate"} {
		if out.Has(key) {
			continue
		}
		if inherited := page.Inherited(key); inherited != nil {
			copied, err := c.copy(inherited)
			if err != nil {
				return nil, fmt.Errorf("copying inherited /%s: %w", key, err)
			}
			out.Set(key, copied)
		}
	}

	boxArr := make(core.Array, 4)
	for i, v := range box.Array() {
		boxArr[i] = core.Real(v)
	}
	out.Set("CropBox", boxArr)
	out.Set("TrimBox", boxArr)
	out.Set("Parent", parent)
	return out, nil
}

func (c *copier) copy(obj core.Object) (core.Object, error) {
	switch v := obj.(type) {
	case core.IndirectRef:
		if ref, ok := c.memo[v.Number]; ok {
			return ref, nil
		}
		ref := c.dst.Reserve()
		c.memo[v.Number] = ref
		target, err := c.src.GetObject(v.Number)
		if err != nil {
			return nil, fmt.Errorf("resolving object %d: %w", v.Number, err)
		}
		copied, err := c.copy(target)
		if err != nil {
			return nil, err
		}
		c.dst.Put(ref, copied)
		return ref, nil

	case core.Dict:
		out := make(core.Dict, len(v))
		for _, key := range v.Keys() {
			copied, err := c.copy(v.Get(key))
			if err != nil {
				return nil, err
			}
			out.Set(key, copied)
		}
		return out, nil

	case core.Array:
		out := make(core.Array, len(v))
		for i, elem := range v {
			copied, err := c.copy(elem)
			if err != nil {
				return nil, err
			}
			out[i] = copied
		}
		return out, nil

	case *core.Stream:
		dict, err := c.copy(v.Dict)
		if err != nil {
			return nil, err
		}
		// Raw stream bytes pass through untouched; no decode happens
		// anywhere on the crop path.
		return &core.Stream{Dict: dict.(core.Dict), Data: v.Data}, nil

	default:
		return obj, nil
	}
}
