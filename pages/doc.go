// Package pages implements PDF page tree traversal.
//
// A [PageTree] flattens the document's /Pages hierarchy into an ordered
// list of [Page] values. Inheritable page attributes (MediaBox,
// Resources, Rotate) are resolved through the parent Pages node when a
// page dictionary does not carry them directly.
package pages
