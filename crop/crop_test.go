package crop

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/scipress/figconv/core"
	"github.com/scipress/figconv/reader"
	"github.com/scipress/figconv/tei"
)

// buildFixturePDF assembles a two-page document. The first page
// inherits its MediaBox from the Pages node; the second overrides it.
func buildFixturePDF(t *testing.T) []byte {
	t.Helper()

	w := core.NewWriter()
	catalogRef := w.Reserve()
	pagesRef := w.Reserve()
	page1Ref := w.Reserve()
	page2Ref := w.Reserve()

	contentRef := w.Add(&core.Stream{
		Dict: core.Dict{},
		Data: []byte("0 0 m 100 100 l S"),
	})
	fontRef := w.Add(core.Dict{
		"Type":     core.Name("Font"),
		"Subtype":  core.Name("Type1"),
		"BaseFont": core.Name("Helvetica"),
	})
	resources := core.Dict{
		"Font": core.Dict{"F1": fontRef},
	}

	w.Put(catalogRef, core.Dict{
		"Type":  core.Name("Catalog"),
		"Pages": pagesRef,
	})
	w.Put(pagesRef, core.Dict{
		"Type":      core.Name("Pages"),
		"Kids":      core.Array{page1Ref, page2Ref},
		"Count":     core.Int(2),
		"MediaBox":  core.Array{core.Int(0), core.Int(0), core.Int(612), core.Int(792)},
		"Resources": resources,
	})
	w.Put(page1Ref, core.Dict{
		"Type":     core.Name("Page"),
		"Parent":   pagesRef,
		"Contents": contentRef,
	})
	w.Put(page2Ref, core.Dict{
		"Type":     core.Name("Page"),
		"Parent":   pagesRef,
		"Contents": contentRef,
		"MediaBox": core.Array{core.Int(0), core.Int(0), core.Int(595), core.Int(842)},
	})
	w.SetRoot(catalogRef)

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("building fixture: %v", err)
	}
	return buf.Bytes()
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestCropWritesOnePDFPerFigure(t *testing.T) {
	src, err := reader.FromBytes(buildFixturePDF(t))
	if err != nil {
		t.Fatalf("opening fixture: %v", err)
	}
	defer src.Close()

	figures := []tei.Figure{
		{Label: "fig_1", Page: 2, X: 114.62, Y: 220.63, W: 380.77, H: 7.53},
		{Label: "fig_2", Page: 1, X: 50, Y: 100, W: 200, H: 150},
	}

	dir := t.TempDir()
	artifacts, err := Crop(src, figures, dir)
	if err != nil {
		t.Fatalf("Crop returned error: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(artifacts))
	}

	art, ok := artifacts["fig_1"]
	if !ok {
		t.Fatal("missing artifact for fig_1")
	}
	if art.Path != filepath.Join(dir, "fig_1.pdf") {
		t.Errorf("unexpected artifact path %q", art.Path)
	}
	if art.Page != 2 {
		t.Errorf("expected page 2, got %d", art.Page)
	}

	// Page 2 is 842 units tall, so the annotation-frame box maps to
	// lowerLeft (114.62, 613.84), upperRight (495.39, 621.37).
	if !approxEqual(art.Box.LLx, 114.62) || !approxEqual(art.Box.LLy, 613.84) ||
		!approxEqual(art.Box.URx, 495.39) || !approxEqual(art.Box.URy, 621.37) {
		t.Errorf("unexpected crop box %+v", art.Box)
	}

	for _, a := range artifacts {
		if _, err := os.Stat(a.Path); err != nil {
			t.Errorf("artifact %q not on disk: %v", a.Label, err)
		}
	}
}

func TestCroppedDocumentRoundTrips(t *testing.T) {
	src, err := reader.FromBytes(buildFixturePDF(t))
	if err != nil {
		t.Fatalf("opening fixture: %v", err)
	}
	defer src.Close()

	figures := []tei.Figure{
		{Label: "fig_1", Page: 1, X: 50, Y: 100, W: 200, H: 150},
	}

	dir := t.TempDir()
	artifacts, err := Crop(src, figures, dir)
	if err != nil {
		t.Fatalf("Crop returned error: %v", err)
	}

	cropped, err := reader.Open(artifacts["fig_1"].Path)
	if err != nil {
		t.Fatalf("reopening cropped document: %v", err)
	}
	defer cropped.Close()

	count, err := cropped.PageCount()
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 page, got %d", count)
	}

	page, err := cropped.GetPage(0)
	if err != nil {
		t.Fatalf("get page: %v", err)
	}

	// The inherited MediaBox must be materialized on the page itself.
	if page.Dict().Get("MediaBox") == nil {
		t.Error("MediaBox not materialized on cropped page")
	}
	if page.Dict().Get("Resources") == nil {
		t.Error("Resources not materialized on cropped page")
	}

	media, err := page.MediaBox()
	if err != nil {
		t.Fatalf("media box: %v", err)
	}
	want := []float64{0, 0, 612, 792}
	for i := range want {
		if !approxEqual(media[i], want[i]) {
			t.Errorf("media box[%d]: expected %v, got %v", i, want[i], media[i])
		}
	}

	cropBox, err := page.CropBox()
	if err != nil {
		t.Fatalf("crop box: %v", err)
	}
	// Page 1 is 792 units tall: lowerLeft (50, 542), upperRight (250, 692).
	wantCrop := []float64{50, 542, 250, 692}
	for i := range wantCrop {
		if !approxEqual(cropBox[i], wantCrop[i]) {
			t.Errorf("crop box[%d]: expected %v, got %v", i, wantCrop[i], cropBox[i])
		}
	}

	// TrimBox is set identically to CropBox.
	trimObj := page.Dict().Get("TrimBox")
	trimArr, ok := trimObj.(core.Array)
	if !ok {
		t.Fatalf("TrimBox missing or wrong type: %T", trimObj)
	}
	for i := range wantCrop {
		v, ok := trimArr.Numeric(i)
		if !ok || !approxEqual(v, wantCrop[i]) {
			t.Errorf("trim box[%d]: expected %v, got %v", i, wantCrop[i], v)
		}
	}

	// Content bytes carry over untouched.
	contentObj, err := cropped.Resolve(page.Dict().Get("Contents"))
	if err != nil {
		t.Fatalf("resolving contents: %v", err)
	}
	stream, ok := contentObj.(*core.Stream)
	if !ok {
		t.Fatalf("contents is %T, expected stream", contentObj)
	}
	if string(stream.Data) != "0 0 m 100 100 l S" {
		t.Errorf("content stream changed: %q", stream.Data)
	}
}

func TestCropRejectsOutOfRangePage(t *testing.T) {
	src, err := reader.FromBytes(buildFixturePDF(t))
	if err != nil {
		t.Fatalf("opening fixture: %v", err)
	}
	defer src.Close()

	// A valid figure ahead of the bad one must not leave an artifact
	// behind: the batch is validated before anything is written.
	dir := t.TempDir()
	figures := []tei.Figure{
		{Label: "fig_ok", Page: 1, X: 10, Y: 10, W: 10, H: 10},
		{Label: "fig_1", Page: 5, X: 10, Y: 10, W: 10, H: 10},
	}

	artifacts, err := Crop(src, figures, dir)
	if !errors.Is(err, ErrPageOutOfRange) {
		t.Fatalf("expected ErrPageOutOfRange, got %v", err)
	}
	if artifacts != nil {
		t.Errorf("expected nil artifacts on failure, got %v", artifacts)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no files written, found %d", len(entries))
	}
}

func TestCropOffsetOriginMediaBox(t *testing.T) {
	w := core.NewWriter()
	catalogRef := w.Reserve()
	pagesRef := w.Reserve()
	pageRef := w.Reserve()
	contentRef := w.Add(&core.Stream{Dict: core.Dict{}, Data: []byte("0 0 m 10 10 l S")})

	w.Put(catalogRef, core.Dict{"Type": core.Name("Catalog"), "Pages": pagesRef})
	w.Put(pagesRef, core.Dict{
		"Type":  core.Name("Pages"),
		"Kids":  core.Array{pageRef},
		"Count": core.Int(1),
	})
	w.Put(pageRef, core.Dict{
		"Type":     core.Name("Page"),
		"Parent":   pagesRef,
		"Contents": contentRef,
		"MediaBox": core.Array{core.Int(0), core.Int(100), core.Int(612), core.Int(892)},
	})
	w.SetRoot(catalogRef)

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("building fixture: %v", err)
	}

	src, err := reader.FromBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("opening fixture: %v", err)
	}
	defer src.Close()

	// y=0 is the page top, which for this media box sits at 892.
	figures := []tei.Figure{
		{Label: "fig_1", Page: 1, X: 50, Y: 0, W: 100, H: 10},
	}
	artifacts, err := Crop(src, figures, t.TempDir())
	if err != nil {
		t.Fatalf("Crop returned error: %v", err)
	}

	box := artifacts["fig_1"].Box
	if !approxEqual(box.URy, 892) || !approxEqual(box.LLy, 882) {
		t.Errorf("crop box y extent = [%g, %g], want [882, 892]", box.LLy, box.URy)
	}
	if !approxEqual(box.LLx, 50) || !approxEqual(box.URx, 150) {
		t.Errorf("crop box x extent = [%g, %g], want [50, 150]", box.LLx, box.URx)
	}

	// The written document carries the absolute coordinates too.
	cropped, err := reader.Open(artifacts["fig_1"].Path)
	if err != nil {
		t.Fatalf("reopening cropped document: %v", err)
	}
	defer cropped.Close()
	page, err := cropped.GetPage(0)
	if err != nil {
		t.Fatalf("get page: %v", err)
	}
	cb, err := page.CropBox()
	if err != nil {
		t.Fatalf("crop box: %v", err)
	}
	want := []float64{50, 882, 150, 892}
	for i := range want {
		if !approxEqual(cb[i], want[i]) {
			t.Errorf("crop box[%d]: expected %v, got %v", i, want[i], cb[i])
		}
	}
}

func TestCropRejectsDegenerateBox(t *testing.T) {
	src, err := reader.FromBytes(buildFixturePDF(t))
	if err != nil {
		t.Fatalf("opening fixture: %v", err)
	}
	defer src.Close()

	figures := []tei.Figure{
		{Label: "fig_1", Page: 1, X: 10, Y: 10, W: 0, H: 10},
	}

	if _, err := Crop(src, figures, t.TempDir()); err == nil {
		t.Error("expected error for zero-width figure")
	}
}
