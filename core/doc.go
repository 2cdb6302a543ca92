// Package core provides low-level PDF parsing and serialization
// primitives.
//
// It implements the eight PDF object types as values satisfying the
// [Object] interface, plus [Stream] (dictionary + raw binary data) and
// [IndirectRef]. The [Parser] reads objects and indirect object
// definitions from PDF syntax; the [Lexer] underneath tokenizes it.
//
// Cross-reference data is handled by [XRefParser], which parses both
// traditional xref tables (PDF 1.0-1.4) and cross-reference streams
// (PDF 1.5+), including incremental-update chains merged via
// [MergeXRefTables]. Objects packed into object streams are accessed
// through [ObjectStream].
//
// Going the other direction, [Writer] assembles a new PDF file from
// indirect objects with deterministic output: dictionary keys are
// sorted and stream payloads are copied byte for byte, never
// re-encoded.
package core
