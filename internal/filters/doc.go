// Package filters implements the PDF stream decode filters needed to
// read document structure: FlateDecode (with TIFF and PNG predictors),
// ASCIIHexDecode, and ASCII85Decode.
//
// Image-specific filters (DCTDecode, CCITTFaxDecode, JBIG2Decode) are
// deliberately absent: page cropping never decodes page content, it
// copies raw stream bytes untouched. Structural streams (cross-reference
// and object streams) are Flate-compressed in practice.
package filters
