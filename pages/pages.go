package pages

import (
	"fmt"

	"github.com/scipress/figconv/core"
)

// ObjectResolver resolves indirect references while walking the page tree.
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// PageTree represents the PDF page tree
type PageTree struct {
	root     core.Dict
	resolver ObjectResolver
	pages    []*Page // cached flattened page list
}

// NewPageTree creates a new page tree from the root pages dictionary
func NewPageTree(root core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{
		root:     root,
		resolver: resolver,
	}
}

// Count returns the total number of pages
func (t *PageTree) Count() (int, error) {
	count, ok := t.root.GetInt("Count")
	if !ok {
		return 0, fmt.Errorf("page tree missing /Count entry")
	}
	return int(count), nil
}

// GetPage returns the page at the given index (0-based)
func (t *PageTree) GetPage(index int) (*Page, error) {
	if t.pages == nil {
		if err := t.loadPages(); err != nil {
			return nil, err
		}
	}
	if index < 0 || index >= len(t.pages) {
		return nil, fmt.Errorf("page index %d out of range [0, %d)", index, len(t.pages))
	}
	return t.pages[index], nil
}

// Pages returns all pages as a slice
func (t *PageTree) Pages() ([]*Page, error) {
	if t.pages == nil {
		if err := t.loadPages(); err != nil {
			return nil, err
		}
	}
	return t.pages, nil
}

func (t *PageTree) loadPages() error {
	t.pages = make([]*Page, 0)
	if err := t.traverse(t.root, nil); err != nil {
		return fmt.Errorf("failed to traverse page tree: %w", err)
	}
	return nil
}

// traverse walks a page tree node depth-first. parent is the node's
// Pages dictionary, carried for inheritable attributes.
func (t *PageTree) traverse(node core.Dict, parent core.Dict) error {
	typeName, ok := node.GetName("Type")
	if !ok {
		return fmt.Errorf("page node missing /Type entry")
	}

	switch string(typeName) {
	case "Pages":
		kidsObj := node.Get("Kids")
		if kidsObj == nil {
			return fmt.Errorf("Pages node missing /Kids entry")
		}
		kidsResolved, err := t.resolver.Resolve(kidsObj)
		if err != nil {
			return fmt.Errorf("failed to resolve /Kids: %w", err)
		}
		kids, ok := kidsResolved.(core.Array)
		if !ok {
			return fmt.Errorf("invalid /Kids type: %T", kidsResolved)
		}

		for i, kidObj := range kids {
			kidResolved, err := t.resolver.Resolve(kidObj)
			if err != nil {
				return fmt.Errorf("failed to resolve kid %d: %w", i, err)
			}
			kidDict, ok := kidResolved.(core.Dict)
			if !ok {
				return fmt.Errorf("invalid kid type: %T", kidResolved)
			}
			if err := t.traverse(kidDict, node); err != nil {
				return err
			}
		}

	case "Page":
		t.pages = append(t.pages, NewPage(node, parent, t.resolver))

	default:
		return fmt.Errorf("unexpected page node type: %s", typeName)
	}

	return nil
}

// Page represents a single PDF page
type Page struct {
	dict     core.Dict
	parent   core.Dict // parent Pages node, for inheritable attributes
	resolver ObjectResolver
}

// NewPage creates a new page from a dictionary
func NewPage(dict core.Dict, parent core.Dict, resolver ObjectResolver) *Page {
	return &Page{
		dict:     dict,
		parent:   parent,
		resolver: resolver,
	}
}

// Dict returns the raw page dictionary.
func (p *Page) Dict() core.Dict {
	return p.dict
}

// MediaBox returns the page media box [x1 y1 x2 y2].
// Inheritable: falls back to the parent Pages node.
func (p *Page) MediaBox() ([]float64, error) {
	return p.box("MediaBox")
}

// CropBox returns the page crop box, defaulting to MediaBox when absent.
func (p *Page) CropBox() ([]float64, error) {
	box, err := p.box("CropBox")
	if err != nil {
		return p.MediaBox()
	}
	return box, nil
}

func (p *Page) box(name string) ([]float64, error) {
	boxObj := p.Inherited(name)
	if boxObj == nil {
		return nil, fmt.Errorf("%s not found", name)
	}

	boxResolved, err := p.resolver.Resolve(boxObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	boxArr, ok := boxResolved.(core.Array)
	if !ok {
		return nil, fmt.Errorf("invalid %s type: %T", name, boxResolved)
	}
	if len(boxArr) != 4 {
		return nil, fmt.Errorf("invalid %s length: %d (expected 4)", name, len(boxArr))
	}

	box := make([]float64, 4)
	for i := range boxArr {
		v, ok := boxArr.Numeric(i)
		if !ok {
			return nil, fmt.Errorf("invalid %s element type: %T", name, boxArr[i])
		}
		box[i] = v
	}
	return box, nil
}

// Inherited looks up an attribute on the page dictionary, falling back
// to the parent Pages node. Returns nil when neither has it.
func (p *Page) Inherited(name string) core.Object {
	if obj := p.dict.Get(name); obj != nil {
		return obj
	}
	if p.parent != nil {
		return p.parent.Get(name)
	}
	return nil
}

// Rotate returns the page rotation (0, 90, 180, or 270). Inheritable.
func (p *Page) Rotate() int {
	rotateObj := p.Inherited("Rotate")
	if rotateObj == nil {
		return 0
	}
	if rotate, ok := rotateObj.(core.Int); ok {
		return int(rotate)
	}
	return 0
}

// Width returns the page width from MediaBox
func (p *Page) Width() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[2] - box[0], nil
}

// Height returns the page height from MediaBox
func (p *Page) Height() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[3] - box[1], nil
}
