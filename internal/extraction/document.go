// Package extraction turns uploaded résumé files into validated plain text.
//
// The pipeline is: detect the format, enforce the size limit, run the
// format-specific extractor, then validate the text. Every failure is an
// *Error carrying one ErrorKind.
package extraction

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// Format is the container type of an uploaded document.
type Format string

const (
	FormatDOCX Format = "DOCX"
	FormatPDF  Format = "PDF"
)

const (
	MIMETypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMETypePDF  = "application/pdf"
)

// DefaultMaxFileSize is the upload limit applied when none is configured (5 MiB).
const DefaultMaxFileSize int64 = 5 << 20

// Document is a file as the caller received it. It is never modified.
type Document struct {
	Data     []byte
	MIMEType string
	Filename string
}

// Result is the outcome of a successful extraction.
type Result struct {
	Text      string `json:"extractedText"`
	Format    Format `json:"sourceFormat"`
	PageCount int    `json:"pageCount,omitempty"`
}

var mimeFormats = map[string]Format{
	MIMETypeDOCX:        FormatDOCX,
	MIMETypePDF:         FormatPDF,
	"application/x-pdf": FormatPDF,
}

var extFormats = map[string]Format{
	".docx": FormatDOCX,
	".pdf":  FormatPDF,
}

// DetectFormat resolves the document format from the declared MIME type,
// falling back to the filename extension when the MIME type is missing,
// generic, or unrecognized.
func DetectFormat(mimeType, filename string) (Format, bool) {
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		if f, ok := mimeFormats[strings.ToLower(mediaType)]; ok {
			return f, true
		}
	}
	f, ok := extFormats[strings.ToLower(filepath.Ext(filename))]
	return f, ok
}

// SniffFormat recognizes a payload from its leading bytes. It is consulted
// only when neither the MIME type nor the filename identify the document.
func SniffFormat(data []byte) (Format, bool) {
	switch {
	case filetype.Is(data, "pdf"):
		return FormatPDF, true
	case filetype.Is(data, "docx"):
		return FormatDOCX, true
	}
	return "", false
}

func isGenericMIME(mimeType string) bool {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	return err != nil || strings.EqualFold(mediaType, "application/octet-stream")
}
