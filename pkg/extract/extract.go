// Package extract converts uploaded documents into raw text plus the raster
// images embedded in them. Supported formats are PDF, DOCX and plain text;
// anything else is rejected with ErrUnsupportedFormat so callers can degrade
// instead of failing the surrounding evaluation.
package extract

import (
	"errors"
	"image"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedFormat indicates the file format is not handled by any extractor.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Format identifies the document format an extractor is dispatched on.
type Format int

const (
	// FormatUnsupported is returned when neither the extension nor the
	// content sniff matches a known format.
	FormatUnsupported Format = iota
	// FormatPDF identifies PDF documents.
	FormatPDF
	// FormatDOCX identifies Office Open XML word documents.
	FormatDOCX
	// FormatText identifies plain text files.
	FormatText
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Result carries the raw text and embedded images of one document.
type Result struct {
	Text   string
	Images []image.Image
}

// Classify determines the document format from the filename extension,
// falling back to a content sniff when the extension is unknown.
func Classify(filename string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".txt":
		return FormatText
	}

	if len(data) == 0 {
		return FormatUnsupported
	}

	mime := mimetype.Detect(data)
	switch {
	case mime.Is("application/pdf"):
		return FormatPDF
	case mime.Is(docxMIME):
		return FormatDOCX
	case mime.Is("text/plain"):
		return FormatText
	}

	return FormatUnsupported
}

// Extract dispatches on the detected format and returns the document's raw
// text and embedded images. Unsupported formats return an empty Result and
// ErrUnsupportedFormat; corrupt files return whatever could be salvaged plus
// the decoding error.
func Extract(filename string, data []byte) (Result, error) {
	switch Classify(filename, data) {
	case FormatPDF:
		return extractPDF(data)
	case FormatDOCX:
		return extractDOCX(data)
	case FormatText:
		return extractText(data), nil
	default:
		return Result{}, ErrUnsupportedFormat
	}
}
