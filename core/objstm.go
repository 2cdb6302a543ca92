package core

import (
	"bytes"
	"fmt"
)

// ObjectStream represents a PDF object stream (Type /ObjStm, PDF 1.5+):
// multiple non-stream objects packed into one compressed stream.
// Compressed cross-reference entries (type 2) point into these.
type ObjectStream struct {
	stream  *Stream
	n       int // number of objects
	first   int // byte offset of the first object in the decoded data
	offsets []objStmOffset
	objects map[int]Object // cache keyed by index
	decoded []byte
}

// objStmOffset pairs an object number with its offset in the decoded data.
type objStmOffset struct {
	ObjNum int
	Offset int
}

// NewObjectStream validates a Stream as an object stream. The stream
// must carry /Type /ObjStm and the /N and /First entries.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is nil")
	}

	typeName, ok := stream.Dict.GetName("Type")
	if !ok || typeName != "ObjStm" {
		return nil, fmt.Errorf("stream is not an object stream, got type: %v", stream.Dict.Get("Type"))
	}

	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream has invalid /N: %v", stream.Dict.Get("N"))
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream has invalid /First: %v", stream.Dict.Get("First"))
	}

	return &ObjectStream{
		stream:  stream,
		n:       int(n),
		first:   int(first),
		objects: make(map[int]Object),
	}, nil
}

// N returns the number of objects stored in the stream.
func (os *ObjectStream) N() int {
	return os.n
}

// decode decodes the stream data and parses the header pairs.
// Called lazily on first access.
func (os *ObjectStream) decode() error {
	if os.decoded != nil {
		return nil
	}

	decoded, err := os.stream.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode object stream: %w", err)
	}
	if os.first > len(decoded) {
		return fmt.Errorf("/First offset %d exceeds decoded length %d", os.first, len(decoded))
	}
	os.decoded = decoded

	// Header: N pairs of "objNum offset" as plain integers.
	parser := NewParser(bytes.NewReader(decoded[:os.first]))
	os.offsets = make([]objStmOffset, 0, os.n)
	for i := 0; i < os.n; i++ {
		objNum, err := parseHeaderInt(parser, "object number", i)
		if err != nil {
			return err
		}
		offset, err := parseHeaderInt(parser, "offset", i)
		if err != nil {
			return err
		}
		os.offsets = append(os.offsets, objStmOffset{ObjNum: objNum, Offset: offset})
	}
	return nil
}

func parseHeaderInt(parser *Parser, what string, i int) (int, error) {
	obj, err := parser.ParseObject()
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s %d: %w", what, i, err)
	}
	n, ok := obj.(Int)
	if !ok {
		return 0, fmt.Errorf("%s %d is not an integer: %T", what, i, obj)
	}
	return int(n), nil
}

// GetObjectByIndex extracts the object at a 0-based index within the
// stream, returning the object and its object number.
func (os *ObjectStream) GetObjectByIndex(index int) (Object, int, error) {
	if err := os.decode(); err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(os.offsets) {
		return nil, 0, fmt.Errorf("index %d out of range [0, %d)", index, len(os.offsets))
	}

	if obj, ok := os.objects[index]; ok {
		return obj, os.offsets[index].ObjNum, nil
	}

	start := os.first + os.offsets[index].Offset
	end := len(os.decoded)
	if index+1 < len(os.offsets) {
		end = os.first + os.offsets[index+1].Offset
	}
	if start >= len(os.decoded) {
		return nil, 0, fmt.Errorf("object offset %d exceeds decoded length %d", start, len(os.decoded))
	}
	if end > len(os.decoded) {
		end = len(os.decoded)
	}

	parser := NewParser(bytes.NewReader(os.decoded[start:end]))
	obj, err := parser.ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse object at index %d: %w", index, err)
	}

	os.objects[index] = obj
	return obj, os.offsets[index].ObjNum, nil
}

// GetObjectByNumber finds and extracts an object by its object number.
func (os *ObjectStream) GetObjectByNumber(objNum int) (Object, error) {
	if err := os.decode(); err != nil {
		return nil, err
	}
	for i, entry := range os.offsets {
		if entry.ObjNum == objNum {
			obj, _, err := os.GetObjectByIndex(i)
			return obj, err
		}
	}
	return nil, fmt.Errorf("object %d not found in object stream", objNum)
}
