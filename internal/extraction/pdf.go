package extraction

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disablePDFConfigDir sync.Once

// PDFExtractor validates a PDF with pdfcpu and reads its text layer.
type PDFExtractor struct {
	conf *model.Configuration
}

// NewPDFExtractor returns an extractor that never touches the pdfcpu config directory.
func NewPDFExtractor() *PDFExtractor {
	disablePDFConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFExtractor{conf: conf}
}

// Extract returns the plain text of every page.
func (e *PDFExtractor) Extract(data []byte) (string, error) {
	text, _, err := e.ExtractPages(data)
	return text, err
}

// ExtractPages is Extract plus the validated page count.
func (e *PDFExtractor) ExtractPages(data []byte) (text string, pages int, err error) {
	// Both PDF libraries panic on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = newError(KindPDFParsing, "The PDF file is damaged and could not be read.",
				fmt.Errorf("pdf library panic: %v", r))
		}
	}()

	pages, err = api.PageCount(bytes.NewReader(data), e.conf)
	if err != nil {
		return "", 0, newError(KindPDFParsing, "The file is not a valid PDF document.", err)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, newError(KindPDFParsing, "The PDF file could not be opened.", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", 0, newError(KindPDFParsing, "The PDF text could not be read.", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", 0, newError(KindPDFParsing, "The PDF text could not be read.", err)
	}
	return strings.TrimSpace(buf.String()), pages, nil
}
