package reader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/scipress/figconv/core"
	"github.com/scipress/figconv/pages"
)

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)`)

// Source is what a Reader reads from. Both os.File and bytes.Reader
// satisfy it.
type Source interface {
	io.ReaderAt
	io.ReadSeeker
}

// Reader provides access to a PDF document: its version, trailer,
// object graph, and page tree.
type Reader struct {
	src      Source
	size     int64
	closer   io.Closer // set when the reader owns the underlying file
	xref     *core.XRefTable
	trailer  core.Dict
	version  PDFVersion
	objCache map[int]core.Object
	stmCache map[int]*core.ObjectStream // object streams by object number
	pageTree *pages.PageTree
}

// Ensure Reader implements pages.ObjectResolver and core.ReferenceResolver
var (
	_ pages.ObjectResolver   = (*Reader)(nil)
	_ core.ReferenceResolver = (*Reader)(nil)
)

// New creates a Reader over any seekable source.
func New(src Source) (*Reader, error) {
	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to determine size: %w", err)
	}

	r := &Reader{
		src:      src,
		size:     size,
		objCache: make(map[int]core.Object),
		stmCache: make(map[int]*core.ObjectStream),
	}

	version, err := r.parseHeader()
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	r.version = version

	xrefTable, err := r.loadXRef()
	if err != nil {
		return nil, fmt.Errorf("failed to load xref: %w", err)
	}
	r.xref = xrefTable
	r.trailer = xrefTable.Trailer

	return r, nil
}

// Open opens a PDF file and returns a Reader that owns the file handle.
func Open(filename string) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r, err := New(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// FromBytes creates a Reader over an in-memory PDF.
func FromBytes(data []byte) (*Reader, error) {
	return New(bytes.NewReader(data))
}

// Close releases the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// parseHeader parses the PDF header (%PDF-x.y)
func (r *Reader) parseHeader() (PDFVersion, error) {
	if _, err := r.src.Seek(0, io.SeekStart); err != nil {
		return PDFVersion{}, fmt.Errorf("failed to seek to start: %w", err)
	}

	header := make([]byte, 16)
	n, err := r.src.Read(header)
	if err != nil && err != io.EOF {
		return PDFVersion{}, fmt.Errorf("failed to read header: %w", err)
	}
	headerStr := string(header[:n])
	if !strings.HasPrefix(headerStr, "%PDF-") {
		return PDFVersion{}, fmt.Errorf("invalid PDF header: %q", headerStr)
	}

	matches := versionRe.FindStringSubmatch(headerStr[5:])
	if len(matches) < 3 {
		return PDFVersion{}, fmt.Errorf("invalid version format: %q", headerStr)
	}

	var major, minor int
	fmt.Sscanf(matches[1], "%d", &major)
	fmt.Sscanf(matches[2], "%d", &minor)
	return PDFVersion{Major: major, Minor: minor}, nil
}

// loadXRef loads the cross-reference data, merging incremental updates.
func (r *Reader) loadXRef() (*core.XRefTable, error) {
	xrefParser := core.NewXRefParser(r.src)
	table, err := xrefParser.ParseXRefFromEOF()
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref: %w", err)
	}

	if table.Trailer.Get("Prev") != nil {
		tables, err := xrefParser.ParseAllXRefs()
		if err != nil {
			return nil, fmt.Errorf("failed to parse all xrefs: %w", err)
		}
		table = core.MergeXRefTables(tables...)
	}

	return table, nil
}

// Version returns the PDF version
func (r *Reader) Version() PDFVersion {
	return r.version
}

// Trailer returns the trailer dictionary
func (r *Reader) Trailer() core.Dict {
	return r.trailer
}

// GetObject loads an object by its number, following the cross-reference
// entry to a byte offset or into an object stream. Objects are cached.
func (r *Reader) GetObject(objNum int) (core.Object, error) {
	if obj, ok := r.objCache[objNum]; ok {
		return obj, nil
	}

	entry, ok := r.xref.Get(objNum)
	if !ok {
		return nil, fmt.Errorf("object %d not found in xref table", objNum)
	}
	if !entry.InUse {
		return nil, fmt.Errorf("object %d is not in use", objNum)
	}

	var obj core.Object
	var err error
	switch entry.Type {
	case core.XRefEntryUncompressed:
		obj, err = r.loadAt(objNum, entry.Offset)
	case core.XRefEntryCompressed:
		obj, err = r.loadCompressed(objNum, int(entry.Offset))
	default:
		err = fmt.Errorf("object %d has unexpected entry type %d", objNum, entry.Type)
	}
	if err != nil {
		return nil, err
	}

	r.objCache[objNum] = obj
	return obj, nil
}

// loadAt parses the indirect object at a byte offset. Each load gets
// its own section reader: resolving an indirect /Length re-enters
// GetObject while this parse is still in flight.
func (r *Reader) loadAt(objNum int, offset int64) (core.Object, error) {
	if offset < 0 || offset >= r.size {
		return nil, fmt.Errorf("object %d offset %d out of file bounds", objNum, offset)
	}

	parser := core.NewParser(io.NewSectionReader(r.src, offset, r.size-offset))
	parser.SetReferenceResolver(r)
	indObj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse object %d: %w", objNum, err)
	}
	if indObj.Ref.Number != objNum {
		return nil, fmt.Errorf("object number mismatch: expected %d, got %d", objNum, indObj.Ref.Number)
	}
	return indObj.Object, nil
}

// loadCompressed extracts an object stored inside an object stream.
func (r *Reader) loadCompressed(objNum, containerNum int) (core.Object, error) {
	objStm, ok := r.stmCache[containerNum]
	if !ok {
		containerObj, err := r.GetObject(containerNum)
		if err != nil {
			return nil, fmt.Errorf("failed to load object stream %d: %w", containerNum, err)
		}
		stream, isStream := containerObj.(*core.Stream)
		if !isStream {
			return nil, fmt.Errorf("object %d is not a stream: %T", containerNum, containerObj)
		}
		objStm, err = core.NewObjectStream(stream)
		if err != nil {
			return nil, fmt.Errorf("object %d is not an object stream: %w", containerNum, err)
		}
		r.stmCache[containerNum] = objStm
	}

	obj, err := objStm.GetObjectByNumber(objNum)
	if err != nil {
		return nil, fmt.Errorf("failed to extract object %d from stream %d: %w", objNum, containerNum, err)
	}
	return obj, nil
}

// ResolveReference resolves an indirect reference.
// Implements core.ReferenceResolver.
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.GetObject(ref.Number)
}

// Resolve resolves obj if it is an indirect reference, otherwise
// returns it as-is. Implements pages.ObjectResolver.
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return r.ResolveReference(ref)
	}
	return obj, nil
}

// GetCatalog returns the document catalog (root object)
func (r *Reader) GetCatalog() (core.Dict, error) {
	rootRef, ok := r.trailer.GetIndirectRef("Root")
	if !ok {
		return nil, fmt.Errorf("trailer missing /Root entry")
	}

	obj, err := r.ResolveReference(rootRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog: %w", err)
	}
	catalog, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("catalog is not a dictionary: %T", obj)
	}
	return catalog, nil
}

// PageCount returns the number of pages in the PDF
func (r *Reader) PageCount() (int, error) {
	if err := r.ensurePageTree(); err != nil {
		return 0, err
	}
	return r.pageTree.Count()
}

// GetPage returns the page at the given index (0-based)
func (r *Reader) GetPage(index int) (*pages.Page, error) {
	if err := r.ensurePageTree(); err != nil {
		return nil, err
	}
	return r.pageTree.GetPage(index)
}

func (r *Reader) ensurePageTree() error {
	if r.pageTree != nil {
		return nil
	}

	catalog, err := r.GetCatalog()
	if err != nil {
		return fmt.Errorf("failed to get catalog: %w", err)
	}

	pagesRef := catalog.Get("Pages")
	if pagesRef == nil {
		return fmt.Errorf("catalog missing /Pages entry")
	}
	pagesObj, err := r.Resolve(pagesRef)
	if err != nil {
		return fmt.Errorf("failed to resolve pages: %w", err)
	}
	pagesDict, ok := pagesObj.(core.Dict)
	if !ok {
		return fmt.Errorf("pages is not a dictionary: %T", pagesObj)
	}

	r.pageTree = pages.NewPageTree(pagesDict, r)
	return nil
}
