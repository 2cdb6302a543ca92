package tei

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Figure is one located figure region: a unique label plus its bounding
// box in the annotation frame (origin top-left, y increasing downward).
type Figure struct {
	Label string
	Page  int // 1-indexed
	X, Y  float64
	W, H  float64
}

// Warning records a non-fatal problem with one marker element. The run
// continues with the remaining figures.
type Warning struct {
	Element string // element context, e.g. "figure #2"
	Message string
}

// FormatWarnings renders warnings as a single diagnostic string.
func FormatWarnings(warnings []Warning) string {
	parts := make([]string, len(warnings))
	for i, w := range warnings {
		parts[i] = fmt.Sprintf("%s: %s", w.Element, w.Message)
	}
	return strings.Join(parts, "; ")
}

// Element is one node of an annotation document tree. Wrappers exist
// for XML and HTML markup; traversal code sees only this interface.
type Element interface {
	// Name returns the element's local name, lowercased.
	Name() string
	// Attr returns the attribute with the given local name.
	Attr(name string) (string, bool)
	// Children returns the element's child elements in document order.
	Children() []Element
}

// Selector recognizes figure-marker elements of one annotation dialect.
type Selector interface {
	// IsMarker reports whether the element is a figure marker.
	IsMarker(e Element) bool
	// Label returns the marker's unique identifier attribute.
	Label(e Element) (string, bool)
	// Coords returns the marker's coordinate attribute.
	Coords(e Element) (string, bool)
}

// TEISelector matches TEI-style <figure> elements carrying an xml:id
// (or plain id) attribute and a coords attribute.
type TEISelector struct{}

func (TEISelector) IsMarker(e Element) bool {
	return e.Name() == "figure"
}

func (TEISelector) Label(e Element) (string, bool) {
	if id, ok := e.Attr("id"); ok {
		return id, true
	}
	return "", false
}

func (TEISelector) Coords(e Element) (string, bool) {
	return e.Attr("coords")
}

// Locate parses an XML annotation document and returns every figure the
// default TEI selector finds, in document order.
func Locate(doc []byte) ([]Figure, []Warning, error) {
	root, err := ParseXML(doc)
	if err != nil {
		return nil, nil, err
	}
	figures, warnings := Collect(root, TEISelector{})
	return figures, warnings, nil
}

// Collect walks the element tree depth-first and gathers every marker
// the selector recognizes. Markers with missing attributes or
// malformed coordinates produce warnings and are skipped; duplicate
// labels keep the first occurrence.
func Collect(root Element, sel Selector) ([]Figure, []Warning) {
	var figures []Figure
	var warnings []Warning
	seen := make(map[string]bool)
	count := 0

	walk(root, func(e Element) {
		if !sel.IsMarker(e) {
			return
		}
		count++
		context := fmt.Sprintf("figure #%d", count)

		label, hasLabel := sel.Label(e)
		coords, hasCoords := sel.Coords(e)
		if hasLabel {
			context = fmt.Sprintf("figure #%d (%s)", count, label)
		}
		if !hasLabel || !hasCoords {
			missing := "identifier"
			if hasLabel {
				missing = "coordinate"
			}
			warnings = append(warnings, Warning{
				Element: context,
				Message: fmt.Sprintf("missing %s attribute, figure skipped", missing),
			})
			return
		}

		// Labels become filenames later; normalize so visually equal
		// identifiers collide here instead of in the filesystem.
		label = norm.NFC.String(label)
		if !safeLabel(label) {
			warnings = append(warnings, Warning{
				Element: context,
				Message: fmt.Sprintf("label %q is not usable as a file name, figure skipped", label),
			})
			return
		}
		if seen[label] {
			warnings = append(warnings, Warning{
				Element: context,
				Message: "duplicate label, figure skipped",
			})
			return
		}

		page, x, y, w, h, err := ParseCoords(coords)
		if err != nil {
			warnings = append(warnings, Warning{
				Element: context,
				Message: fmt.Sprintf("malformed coordinates %q: %v, figure skipped", coords, err),
			})
			return
		}

		seen[label] = true
		figures = append(figures, Figure{Label: label, Page: page, X: x, Y: y, W: w, H: h})
	})

	return figures, warnings
}

// safeLabel reports whether a label can be used as a bare file name
// inside the working area. Path separators or a ".." component would
// let a label address files outside it.
func safeLabel(label string) bool {
	if label == "" {
		return false
	}
	if strings.ContainsAny(label, `/\`) {
		return false
	}
	if label == "." || strings.Contains(label, "..") {
		return false
	}
	return true
}

// walk visits e and its descendants depth-first in document order.
func walk(e Element, visit func(Element)) {
	visit(e)
	for _, child := range e.Children() {
		walk(child, visit)
	}
}

// ParseCoords parses a coordinate attribute of the form
// "page,x,y,w,h[;...]". Only the first semicolon-separated segment is
// used; the meaning of additional segments is undocumented and they are
// discarded rather than interpreted. The page decodes as an integer,
// the four box fields as floats.
func ParseCoords(coords string) (page int, x, y, w, h float64, err error) {
	first := coords
	if i := strings.IndexByte(coords, ';'); i >= 0 {
		first = coords[:i]
	}

	fields := strings.Split(first, ",")
	if len(fields) < 5 {
		return 0, 0, 0, 0, 0, fmt.Errorf("expected 5 comma-separated fields, got %d", len(fields))
	}

	page, err = strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("invalid page number %q: %w", fields[0], err)
	}
	if page < 1 {
		return 0, 0, 0, 0, 0, fmt.Errorf("page number %d is not positive", page)
	}

	box := make([]float64, 4)
	for i := 0; i < 4; i++ {
		box[i], err = strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
		if err != nil {
			return 0, 0, 0, 0, 0, fmt.Errorf("invalid coordinate %q: %w", fields[i+1], err)
		}
	}

	return page, box[0], box[1], box[2], box[3], nil
}
