// Package format detects the formats of conversion inputs: the source
// document and the annotation document's markup dialect.
package format

import (
	"path/filepath"
	"strings"
)

// Format represents a recognized input format.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// PDF indicates a PDF document.
	PDF
	// XML indicates an XML annotation document.
	XML
	// HTML indicates an HTML annotation document.
	HTML
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case PDF:
		return "PDF"
	case XML:
		return "XML"
	case HTML:
		return "HTML"
	default:
		return "Unknown"
	}
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	switch f {
	case PDF:
		return ".pdf"
	case XML:
		return ".xml"
	case HTML:
		return ".html"
	default:
		return ""
	}
}

// Detect determines the format from a filename extension.
func Detect(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return PDF
	case ".xml", ".tei":
		return XML
	case ".html", ".htm", ".xhtml":
		return HTML
	default:
		return Unknown
	}
}

// DetectFromMagic inspects leading content bytes. More reliable than
// extension-based detection; annotation exports frequently arrive with
// generic or missing extensions.
func DetectFromMagic(data []byte) Format {
	// PDF magic: %PDF
	if len(data) >= 4 && data[0] == '%' && data[1] == 'P' && data[2] == 'D' && data[3] == 'F' {
		return PDF
	}

	trimmed := trimLeadingSpace(stripBOM(data))
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return Unknown
	}

	upper := strings.ToUpper(string(head(trimmed, 512)))
	switch {
	case strings.HasPrefix(upper, "<!DOCTYPE HTML"), strings.HasPrefix(upper, "<HTML"):
		return HTML
	case strings.HasPrefix(upper, "<?XML"):
		// An XML declaration can still introduce XHTML.
		if strings.Contains(upper, "<HTML") {
			return HTML
		}
		return XML
	default:
		return XML
	}
}

func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

func trimLeadingSpace(data []byte) []byte {
	start := 0
	for start < len(data) && (data[start] == ' ' || data[start] == '\t' || data[start] == '\n' || data[start] == '\r') {
		start++
	}
	return data[start:]
}

func head(data []byte, n int) []byte {
	if len(data) < n {
		return data
	}
	return data[:n]
}
