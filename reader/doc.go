// Package reader opens PDF documents for structural access.
//
// A [Reader] parses the header and cross-reference data up front, then
// loads objects lazily with caching. It can follow compressed
// cross-reference entries into object streams, so both classic
// (PDF 1.0-1.4) and xref-stream (PDF 1.5+) documents work. Page access
// goes through the pages package:
//
//	r, err := reader.FromBytes(pdfBytes)
//	if err != nil { ... }
//	defer r.Close()
//	page, err := r.GetPage(0)
//	box, err := page.MediaBox()
package reader
