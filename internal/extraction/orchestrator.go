package extraction

import (
	"fmt"
	"unicode/utf8"
)

// Extractor converts the bytes of one document format into text.
// Failures should be *Error values of the format's parsing kind.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// pageExtractor is implemented by extractors that also know the page count.
type pageExtractor interface {
	ExtractPages(data []byte) (string, int, error)
}

// Orchestrator routes documents to extractors and gates the output through
// Validate. It holds no per-call state and is safe for concurrent use.
type Orchestrator struct {
	maxFileSize int64
	extractors  map[Format]Extractor
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxFileSize overrides DefaultMaxFileSize. Non-positive values are ignored.
func WithMaxFileSize(n int64) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxFileSize = n
		}
	}
}

// WithExtractor replaces the extractor used for format.
func WithExtractor(format Format, x Extractor) Option {
	return func(o *Orchestrator) {
		o.extractors[format] = x
	}
}

// NewOrchestrator returns an orchestrator with the DOCX and PDF extractors.
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		maxFileSize: DefaultMaxFileSize,
		extractors: map[Format]Extractor{
			FormatDOCX: DOCXExtractor{},
			FormatPDF:  NewPDFExtractor(),
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MaxFileSize is the largest accepted payload in bytes.
func (o *Orchestrator) MaxFileSize() int64 {
	return o.maxFileSize
}

// ExtractText runs the full pipeline for one document. On failure the error
// is always an *Error.
func (o *Orchestrator) ExtractText(doc Document) (*Result, error) {
	format, ok := DetectFormat(doc.MIMEType, doc.Filename)
	if !ok && isGenericMIME(doc.MIMEType) {
		format, ok = SniffFormat(doc.Data)
	}
	if !ok {
		return nil, &Error{
			Kind:    KindUnknown,
			Message: "Unsupported file type. Please upload a PDF or DOCX file.",
			Details: map[string]string{"mimeType": doc.MIMEType, "filename": doc.Filename},
		}
	}

	size := int64(len(doc.Data))
	if size > o.maxFileSize {
		return nil, &Error{
			Kind:    KindFileSize,
			Message: fmt.Sprintf("The file is larger than the %s limit.", formatBytes(o.maxFileSize)),
			Details: SizeDetails{Size: size, Limit: o.maxFileSize},
		}
	}

	x, ok := o.extractors[format]
	if !ok {
		return nil, newError(KindUnknown, "Unsupported file type. Please upload a PDF or DOCX file.",
			fmt.Errorf("no extractor registered for %s", format))
	}

	text, pages, err := runExtractor(x, doc.Data)
	if err != nil {
		if xerr, ok := AsError(err); ok {
			return nil, xerr
		}
		return nil, newError(KindUnknown, "The file could not be processed.", err)
	}

	outcome := Validate(text, string(format))
	if !outcome.Valid {
		return nil, &Error{
			Kind:    KindValidation,
			Message: "No readable text was found in the file. It may be scanned or damaged.",
			Details: ValidationDetails{Issues: outcome.Issues, TextLength: utf8.RuneCountInString(text)},
		}
	}

	return &Result{Text: text, Format: format, PageCount: pages}, nil
}

// runExtractor turns a panic in a third-party extractor into an error.
func runExtractor(x Extractor, data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	if px, ok := x.(pageExtractor); ok {
		return px.ExtractPages(data)
	}
	text, err = x.Extract(data)
	return text, 0, err
}

func formatBytes(n int64) string {
	const mib = 1 << 20
	if n%mib == 0 {
		return fmt.Sprintf("%d MB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
