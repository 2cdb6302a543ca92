package core

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// SerializeObject appends the PDF syntax for obj to buf. Dictionary
// keys are written in sorted order so that serializing the same object
// graph twice yields byte-identical output.
func SerializeObject(buf *bytes.Buffer, obj Object) {
	switch v := obj.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(v.String())
	case Int:
		buf.WriteString(v.String())
	case Real:
		buf.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 64))
	case String:
		serializeString(buf, string(v))
	case Name:
		serializeName(buf, string(v))
	case Array:
		buf.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			SerializeObject(buf, elem)
		}
		buf.WriteByte(']')
	case Dict:
		serializeDict(buf, v)
	case *Stream:
		// The writer sets /Length before serializing; the payload is
		// written separately so raw bytes pass through untouched.
		serializeDict(buf, v.Dict)
	case IndirectRef:
		fmt.Fprintf(buf, "%d %d R", v.Number, v.Generation)
	default:
		// Unknown types have no PDF syntax; write null rather than
		// corrupt the file.
		buf.WriteString("null")
	}
}

func serializeDict(buf *bytes.Buffer, d Dict) {
	keys := d.Keys()
	sort.Strings(keys)

	buf.WriteString("<<")
	for _, key := range keys {
		buf.WriteByte(' ')
		serializeName(buf, key)
		buf.WriteByte(' ')
		SerializeObject(buf, d[key])
	}
	buf.WriteString(" >>")
}

// serializeName writes /Name, escaping delimiter and non-regular
// characters with #xx.
func serializeName(buf *bytes.Buffer, name string) {
	buf.WriteByte('/')
	for i := 0; i < len(name); i++ {
		b := name[i]
		if b <= 0x20 || b >= 0x7f || isDelimiter(b) || b == '#' {
			fmt.Fprintf(buf, "#%02X", b)
		} else {
			buf.WriteByte(b)
		}
	}
}

// serializeString writes a literal string, escaping parentheses,
// backslashes, and non-printable bytes.
func serializeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('(')
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b == '(' || b == ')' || b == '\\':
			buf.WriteByte('\\')
			buf.WriteByte(b)
		case b == '\n':
			buf.WriteString("\\n")
		case b == '\r':
			buf.WriteString("\\r")
		case b < 0x20 || b >= 0x7f:
			fmt.Fprintf(buf, "\\%03o", b)
		default:
			buf.WriteByte(b)
		}
	}
	buf.WriteByte(')')
}

// Writer assembles a new PDF file from indirect objects. Object numbers
// are allocated sequentially; output is deterministic for a given
// sequence of allocations.
type Writer struct {
	objects map[int]Object
	next    int
	root    IndirectRef
}

// NewWriter creates an empty document writer.
func NewWriter() *Writer {
	return &Writer{
		objects: make(map[int]Object),
		next:    1,
	}
}

// Reserve allocates the next object number without supplying the object
// yet. Needed for cyclic structures (a page referencing its parent).
func (w *Writer) Reserve() IndirectRef {
	ref := IndirectRef{Number: w.next}
	w.next++
	return ref
}

// Put supplies the object for a previously reserved reference.
func (w *Writer) Put(ref IndirectRef, obj Object) {
	w.objects[ref.Number] = obj
}

// Add allocates a number for obj and returns its reference.
func (w *Writer) Add(obj Object) IndirectRef {
	ref := w.Reserve()
	w.Put(ref, obj)
	return ref
}

// SetRoot declares the document catalog for the trailer.
func (w *Writer) SetRoot(ref IndirectRef) {
	w.root = ref
}

// WriteTo serializes the document: header, body objects in numeric
// order, cross-reference table, and trailer.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	if w.root.Number == 0 {
		return 0, fmt.Errorf("document root not set")
	}
	for num := 1; num < w.next; num++ {
		if _, ok := w.objects[num]; !ok {
			return 0, fmt.Errorf("object %d reserved but never supplied", num)
		}
	}

	var buf bytes.Buffer
	// Binary comment line per convention, so transfer tools treat the
	// file as binary.
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := make(map[int]int64, len(w.objects))
	for num := 1; num < w.next; num++ {
		obj := w.objects[num]
		offsets[num] = int64(buf.Len())

		fmt.Fprintf(&buf, "%d 0 obj\n", num)
		if stream, ok := obj.(*Stream); ok {
			dict := stream.Dict.Clone()
			dict.Set("Length", Int(len(stream.Data)))
			serializeDict(&buf, dict)
			buf.WriteString("\nstream\n")
			buf.Write(stream.Data)
			buf.WriteString("\nendstream")
		} else {
			SerializeObject(&buf, obj)
		}
		buf.WriteString("\nendobj\n")
	}

	xrefOffset := int64(buf.Len())
	fmt.Fprintf(&buf, "xref\n0 %d\n", w.next)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num < w.next; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}

	trailer := Dict{
		"Size": Int(w.next),
		"Root": w.root,
	}
	buf.WriteString("trailer\n")
	serializeDict(&buf, trailer)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	n, err := out.Write(buf.Bytes())
	return int64(n), err
}
