package core

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"strings"
	"testing"
)

// buildObjStm packs the given object bodies into a Flate-compressed
// object stream keyed by the given object numbers.
func buildObjStm(t *testing.T, objNums []int, bodies []string) *Stream {
	t.Helper()
	if len(objNums) != len(bodies) {
		t.Fatal("objNums and bodies must align")
	}

	var header, payload strings.Builder
	for i, body := range bodies {
		fmt.Fprintf(&header, "%d %d ", objNums[i], payload.Len())
		payload.WriteString(body)
		payload.WriteString(" ")
	}
	first := header.Len()
	plain := header.String() + payload.String()

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write([]byte(plain)); err != nil {
		t.Fatalf("compressing: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing compressor: %v", err)
	}

	return &Stream{
		Dict: Dict{
			"Type":   Name("ObjStm"),
			"N":      Int(len(bodies)),
			"First":  Int(first),
			"Filter": Name("FlateDecode"),
			"Length": Int(compressed.Len()),
		},
		Data: compressed.Bytes(),
	}
}

func TestNewObjectStream(t *testing.T) {
	os, err := NewObjectStream(buildObjStm(t, []int{10}, []string{"42"}))
	if err != nil {
		t.Fatalf("NewObjectStream returned error: %v", err)
	}
	if os.N() != 1 {
		t.Errorf("N() = %d, expected 1", os.N())
	}
}

func TestNewObjectStreamRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		stream *Stream
	}{
		{"nil stream", nil},
		{"wrong type", &Stream{Dict: Dict{"Type": Name("XRef"), "N": Int(1), "First": Int(4)}}},
		{"missing N", &Stream{Dict: Dict{"Type": Name("ObjStm"), "First": Int(4)}}},
		{"missing First", &Stream{Dict: Dict{"Type": Name("ObjStm"), "N": Int(1)}}},
		{"negative N", &Stream{Dict: Dict{"Type": Name("ObjStm"), "N": Int(-1), "First": Int(4)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewObjectStream(tt.stream); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGetObjectByIndex(t *testing.T) {
	stream := buildObjStm(t,
		[]int{12, 13, 14},
		[]string{"<< /Type /Font /Subtype /Type1 >>", "(hello)", "[1 2 3]"},
	)
	os, err := NewObjectStream(stream)
	if err != nil {
		t.Fatalf("NewObjectStream returned error: %v", err)
	}

	obj, num, err := os.GetObjectByIndex(0)
	if err != nil {
		t.Fatalf("GetObjectByIndex(0) returned error: %v", err)
	}
	if num != 12 {
		t.Errorf("object number = %d, expected 12", num)
	}
	dict, ok := obj.(Dict)
	if !ok {
		t.Fatalf("expected Dict, got %T", obj)
	}
	if name, _ := dict.GetName("Subtype"); name != "Type1" {
		t.Errorf("/Subtype = %q", name)
	}

	obj, num, err = os.GetObjectByIndex(1)
	if err != nil {
		t.Fatalf("GetObjectByIndex(1) returned error: %v", err)
	}
	if num != 13 {
		t.Errorf("object number = %d, expected 13", num)
	}
	if str, ok := obj.(String); !ok || string(str) != "hello" {
		t.Errorf("expected string \"hello\", got %v", obj)
	}

	// Last object runs to the end of the decoded data.
	obj, num, err = os.GetObjectByIndex(2)
	if err != nil {
		t.Fatalf("GetObjectByIndex(2) returned error: %v", err)
	}
	if num != 14 {
		t.Errorf("object number = %d, expected 14", num)
	}
	arr, ok := obj.(Array)
	if !ok || arr.Len() != 3 {
		t.Errorf("expected 3-element array, got %v", obj)
	}
}

func TestGetObjectByIndexOutOfRange(t *testing.T) {
	os, err := NewObjectStream(buildObjStm(t, []int{5}, []string{"true"}))
	if err != nil {
		t.Fatalf("NewObjectStream returned error: %v", err)
	}

	if _, _, err := os.GetObjectByIndex(1); err == nil {
		t.Error("expected error for index past the end")
	}
	if _, _, err := os.GetObjectByIndex(-1); err == nil {
		t.Error("expected error for negative index")
	}
}

func TestGetObjectByNumber(t *testing.T) {
	os, err := NewObjectStream(buildObjStm(t, []int{20, 21}, []string{"3.14", "/Widget"}))
	if err != nil {
		t.Fatalf("NewObjectStream returned error: %v", err)
	}

	obj, err := os.GetObjectByNumber(21)
	if err != nil {
		t.Fatalf("GetObjectByNumber returned error: %v", err)
	}
	if name, ok := obj.(Name); !ok || name != "Widget" {
		t.Errorf("expected /Widget, got %v", obj)
	}

	if _, err := os.GetObjectByNumber(99); err == nil {
		t.Error("expected error for absent object number")
	}
}

func TestObjectStreamCorruptHeader(t *testing.T) {
	// /First larger than the decoded payload.
	stream := buildObjStm(t, []int{1}, []string{"0"})
	stream.Dict.Set("First", Int(10000))

	os, err := NewObjectStream(stream)
	if err != nil {
		t.Fatalf("NewObjectStream returned error: %v", err)
	}
	if _, _, err := os.GetObjectByIndex(0); err == nil {
		t.Error("expected error for /First past end of data")
	}
}
