package core

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// XRefEntryType classifies a cross-reference entry.
type XRefEntryType int

const (
	XRefEntryFree         XRefEntryType = iota // type 0: free object
	XRefEntryUncompressed                      // type 1: object at a byte offset
	XRefEntryCompressed                        // type 2: object inside an object stream
)

// XRefEntry represents a single cross-reference entry
type XRefEntry struct {
	Type       XRefEntryType
	Offset     int64 // Byte offset (uncompressed) or containing object stream number (compressed)
	Generation int   // Generation number (uncompressed) or index within the object stream (compressed)
	InUse      bool
}

// XRefTable represents a PDF cross-reference table
type XRefTable struct {
	Entries map[int]*XRefEntry
	Trailer Dict
}

// NewXRefTable creates a new empty XRef table
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
		Trailer: make(Dict),
	}
}

// Get retrieves an XRef entry by object number
func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

// Set adds or updates an XRef entry
func (x *XRefTable) Set(objNum int, entry *XRefEntry) {
	x.Entries[objNum] = entry
}

// Size returns the number of entries in the table
func (x *XRefTable) Size() int {
	return len(x.Entries)
}

// XRefParser parses PDF cross-reference data, both traditional tables
// (PDF 1.0-1.4) and cross-reference streams (PDF 1.5+).
type XRefParser struct {
	reader io.ReadSeeker
}

// NewXRefParser creates a new XRef parser
func NewXRefParser(r io.ReadSeeker) *XRefParser {
	return &XRefParser{reader: r}
}

// FindXRef finds the byte offset of the last XRef section by scanning
// backwards from EOF for "startxref\n<offset>\n%%EOF".
func (x *XRefParser) FindXRef() (int64, error) {
	fileSize, err := x.reader.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to seek to end: %w", err)
	}

	readSize := int64(1024)
	if fileSize < readSize {
		readSize = fileSize
	}

	if _, err := x.reader.Seek(fileSize-readSize, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek to startxref area: %w", err)
	}

	buf := make([]byte, readSize)
	n, err := x.reader.Read(buf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("failed to read startxref area: %w", err)
	}
	content := string(buf[:n])

	idx := strings.LastIndex(content, "startxref")
	if idx == -1 {
		return 0, fmt.Errorf("startxref not found in PDF")
	}

	lines := strings.Split(content[idx+len("startxref"):], "\n")
	if len(lines) < 2 {
		return 0, fmt.Errorf("invalid startxref format")
	}
	offset, err := strconv.ParseInt(strings.TrimSpace(lines[1]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid xref offset: %w", err)
	}
	return offset, nil
}

// isXRefStream reports whether the data at the current reader position
// begins an XRef stream ("n g obj" followed by a /XRef dictionary)
// rather than a traditional "xref" table.
func (x *XRefParser) isXRefStream() (bool, error) {
	buf := make([]byte, 64)
	n, err := x.reader.Read(buf)
	if err != nil && err != io.EOF {
		return false, err
	}
	head := strings.TrimLeft(string(buf[:n]), " \t\r\n")

	if strings.HasPrefix(head, "xref") {
		return false, nil
	}
	// An XRef stream starts with an indirect object header.
	fields := strings.Fields(head)
	if len(fields) >= 3 && fields[2] == "obj" {
		if _, err := strconv.Atoi(fields[0]); err == nil {
			if _, err := strconv.Atoi(fields[1]); err == nil {
				return true, nil
			}
		}
	}
	return false, fmt.Errorf("unrecognized xref section: %q", head)
}

// ParseXRef parses the XRef section at the given byte offset,
// dispatching on whether it is a table or an XRef stream.
func (x *XRefParser) ParseXRef(offset int64) (*XRefTable, error) {
	if _, err := x.reader.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to xref: %w", err)
	}
	isStream, err := x.isXRefStream()
	if err != nil {
		return nil, err
	}

	if _, err := x.reader.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to xref: %w", err)
	}
	if isStream {
		return x.parseXRefStream()
	}
	return x.parseXRefTable()
}

// parseXRefTable parses a traditional cross-reference table.
func (x *XRefParser) parseXRefTable() (*XRefTable, error) {
	scanner := bufio.NewScanner(x.reader)

	if !scanner.Scan() {
		return nil, fmt.Errorf("failed to read xref keyword")
	}
	if line := strings.TrimSpace(scanner.Text()); line != "xref" {
		return nil, fmt.Errorf("expected 'xref' keyword, got %q", line)
	}

	table := NewXRefTable()
	foundTrailer := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if line == "trailer" {
			trailer, err := x.parseTrailer(scanner)
			if err != nil {
				return nil, fmt.Errorf("failed to parse trailer: %w", err)
			}
			table.Trailer = trailer
			foundTrailer = true
			break
		}

		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid subsection header: %s", line)
		}
		firstObjNum, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid first object number: %w", err)
		}
		count, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid count: %w", err)
		}

		for i := 0; i < count; i++ {
			if !scanner.Scan() {
				return nil, fmt.Errorf("unexpected end of xref subsection")
			}
			entry, err := x.parseEntry(scanner.Text())
			if err != nil {
				return nil, fmt.Errorf("failed to parse xref entry: %w", err)
			}
			table.Set(firstObjNum+i, entry)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	if !foundTrailer {
		return nil, fmt.Errorf("xref table missing trailer")
	}
	return table, nil
}

// parseEntry parses a 20-byte table entry: "nnnnnnnnnn ggggg n|f".
func (x *XRefParser) parseEntry(line string) (*XRefEntry, error) {
	if len(line) < 18 {
		return nil, fmt.Errorf("xref entry too short: %q", line)
	}

	offset, err := strconv.ParseInt(strings.TrimSpace(line[0:10]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid offset in %q: %w", line, err)
	}
	generation, err := strconv.Atoi(strings.TrimSpace(line[10:16]))
	if err != nil {
		return nil, fmt.Errorf("invalid generation in %q: %w", line, err)
	}

	switch strings.TrimSpace(line[16:18]) {
	case "n":
		return &XRefEntry{Type: XRefEntryUncompressed, Offset: offset, Generation: generation, InUse: true}, nil
	case "f":
		return &XRefEntry{Type: XRefEntryFree, Offset: offset, Generation: generation, InUse: false}, nil
	default:
		return nil, fmt.Errorf("invalid in-use flag in entry %q", line)
	}
}

// parseTrailer parses the trailer dictionary after the "trailer" keyword
func (x *XRefParser) parseTrailer(scanner *bufio.Scanner) (Dict, error) {
	var dictText strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		dictText.WriteString(line)
		dictText.WriteString("\n")
		if strings.Contains(line, ">>") {
			break
		}
	}

	parser := NewParser(strings.NewReader(dictText.String()))
	obj, err := parser.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse trailer dictionary: %w", err)
	}
	dict, ok := obj.(Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is not a dictionary, got %T", obj)
	}
	return dict, nil
}

// parseXRefStream parses a PDF 1.5+ cross-reference stream. The stream
// dictionary doubles as the trailer.
func (x *XRefParser) parseXRefStream() (*XRefTable, error) {
	parser := NewParser(x.reader)
	indObj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref stream object: %w", err)
	}
	stream, ok := indObj.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("xref section is not a stream, got %T", indObj.Object)
	}
	if typeName, _ := stream.Dict.GetName("Type"); typeName != "XRef" {
		return nil, fmt.Errorf("xref stream has type %q, expected XRef", typeName)
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode xref stream: %w", err)
	}

	wArr, ok := stream.Dict.GetArray("W")
	if !ok {
		return nil, fmt.Errorf("xref stream missing /W array")
	}
	w := make([]int, len(wArr))
	for i := range wArr {
		wi, ok := wArr.Get(i).(Int)
		if !ok {
			return nil, fmt.Errorf("invalid /W element at %d: %T", i, wArr.Get(i))
		}
		w[i] = int(wi)
	}
	if len(w) < 3 {
		return nil, fmt.Errorf("/W array has %d elements, expected 3", len(w))
	}

	size, ok := stream.Dict.GetInt("Size")
	if !ok {
		return nil, fmt.Errorf("xref stream missing /Size")
	}

	// /Index defaults to [0 Size]: subsection start/count pairs.
	index := []int{0, int(size)}
	if idxArr, ok := stream.Dict.GetArray("Index"); ok {
		index = index[:0]
		for i := 0; i < idxArr.Len(); i++ {
			v, ok := idxArr.Get(i).(Int)
			if !ok {
				return nil, fmt.Errorf("invalid /Index element at %d: %T", i, idxArr.Get(i))
			}
			index = append(index, int(v))
		}
		if len(index)%2 != 0 {
			return nil, fmt.Errorf("/Index has odd length %d", len(index))
		}
	}

	table := NewXRefTable()
	pos := 0
	for i := 0; i < len(index); i += 2 {
		start, count := index[i], index[i+1]
		for objNum := start; objNum < start+count; objNum++ {
			entry, n, err := x.parseXRefStreamEntry(data[pos:], w)
			if err != nil {
				return nil, fmt.Errorf("failed to parse entry for object %d: %w", objNum, err)
			}
			pos += n
			table.Set(objNum, entry)
		}
	}

	// The stream dictionary is the trailer; drop the stream-only keys.
	trailer := stream.Dict.Clone()
	for _, key := range []string{"Type", "W", "Index", "Filter", "DecodeParms", "Length"} {
		trailer.Delete(key)
	}
	table.Trailer = trailer

	return table, nil
}

// parseXRefStreamEntry decodes one fixed-width entry according to the
// /W field widths. Returns the entry and the number of bytes consumed.
// A zero-width type field defaults to type 1 (uncompressed).
func (x *XRefParser) parseXRefStreamEntry(data []byte, w []int) (*XRefEntry, int, error) {
	need := w[0] + w[1] + w[2]
	if len(data) < need {
		return nil, 0, fmt.Errorf("insufficient data: need %d bytes, have %d", need, len(data))
	}

	entryType := int64(1)
	pos := 0
	if w[0] > 0 {
		entryType = readBigEndianInt(data[pos:], w[0])
		pos += w[0]
	}
	field1 := readBigEndianInt(data[pos:], w[1])
	pos += w[1]
	field2 := readBigEndianInt(data[pos:], w[2])
	pos += w[2]

	switch entryType {
	case 0:
		return &XRefEntry{Type: XRefEntryFree, Offset: field1, Generation: int(field2), InUse: false}, pos, nil
	case 1:
		return &XRefEntry{Type: XRefEntryUncompressed, Offset: field1, Generation: int(field2), InUse: true}, pos, nil
	case 2:
		// field1 = object stream number, field2 = index within it
		return &XRefEntry{Type: XRefEntryCompressed, Offset: field1, Generation: int(field2), InUse: true}, pos, nil
	default:
		return nil, 0, fmt.Errorf("unknown xref stream entry type %d", entryType)
	}
}

// readBigEndianInt reads a big-endian integer of the given byte width.
// Width zero yields zero.
func readBigEndianInt(data []byte, width int) int64 {
	var val int64
	for i := 0; i < width; i++ {
		val = val<<8 | int64(data[i])
	}
	return val
}

// ParseXRefFromEOF finds and parses the XRef section by scanning from EOF
func (x *XRefParser) ParseXRefFromEOF() (*XRefTable, error) {
	offset, err := x.FindXRef()
	if err != nil {
		return nil, fmt.Errorf("failed to find xref: %w", err)
	}
	table, err := x.ParseXRef(offset)
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref: %w", err)
	}
	return table, nil
}

// ParsePrevXRef parses the XRef section referenced by the trailer's
// /Prev entry, if any. Handles incremental updates.
func (x *XRefParser) ParsePrevXRef(table *XRefTable) (*XRefTable, error) {
	prevObj := table.Trailer.Get("Prev")
	if prevObj == nil {
		return nil, nil
	}
	prevInt, ok := prevObj.(Int)
	if !ok {
		return nil, fmt.Errorf("invalid /Prev entry type: %T", prevObj)
	}
	prevTable, err := x.ParseXRef(int64(prevInt))
	if err != nil {
		return nil, fmt.Errorf("failed to parse previous xref: %w", err)
	}
	return prevTable, nil
}

// ParseAllXRefs parses the main XRef section and every /Prev predecessor,
// returning them oldest first.
func (x *XRefParser) ParseAllXRefs() ([]*XRefTable, error) {
	mainTable, err := x.ParseXRefFromEOF()
	if err != nil {
		return nil, err
	}

	tables := []*XRefTable{mainTable}
	current := mainTable
	for {
		prev, err := x.ParsePrevXRef(current)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prev xref: %w", err)
		}
		if prev == nil {
			break
		}
		tables = append([]*XRefTable{prev}, tables...)
		current = prev
	}
	return tables, nil
}

// MergeXRefTables merges tables from incremental updates; later entries
// override earlier ones.
func MergeXRefTables(tables ...*XRefTable) *XRefTable {
	merged := NewXRefTable()
	for _, table := range tables {
		for objNum, entry := range table.Entries {
			merged.Set(objNum, entry)
		}
		merged.Trailer = table.Trailer
	}
	return merged
}
