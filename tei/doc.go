// Package tei locates figure markers in annotation documents.
//
// An annotation document is tree-structured markup laid over a source
// PDF, carrying machine-identified figure regions. [Locate] walks the
// tree depth-first and collects every element a [Selector] recognizes
// as a figure marker, regardless of nesting depth. The default
// [TEISelector] matches TEI-style <figure> elements with xml:id and
// coords attributes; supporting another annotation dialect means
// writing another Selector (and for non-XML markup, another [Element]
// wrapper), not another traversal.
//
// Figure elements missing an identifier or coordinate attribute are
// skipped with a warning, not treated as fatal: partially annotated
// documents are expected input.
package tei
