package extraction

import (
	"errors"
	"fmt"
)

// ErrorKind identifies which stage of the pipeline rejected a document.
type ErrorKind string

const (
	KindPDFParsing  ErrorKind = "PDF_PARSING"
	KindDOCXParsing ErrorKind = "DOCX_PARSING"
	KindValidation  ErrorKind = "VALIDATION"
	KindFileSize    ErrorKind = "FILE_SIZE"
	KindUnknown     ErrorKind = "UNKNOWN"
)

// Error is the single failure type returned by the extraction pipeline.
// Message is safe to show to a user. Details and Cause are for logs only.
type Error struct {
	Kind    ErrorKind
	Message string
	Details any
	Cause   error
}

// ValidationDetails is attached to KindValidation errors.
type ValidationDetails struct {
	Issues     []string `json:"issues"`
	TextLength int      `json:"textLength"`
}

// SizeDetails is attached to KindFileSize errors.
type SizeDetails struct {
	Size  int64 `json:"size"`
	Limit int64 `json:"limit"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// AsError reports whether err is, or wraps, an extraction error.
func AsError(err error) (*Error, bool) {
	var xerr *Error
	if errors.As(err, &xerr) {
		return xerr, true
	}
	return nil, false
}

// KindOf returns the kind of an extraction error, or "" for any other error.
func KindOf(err error) ErrorKind {
	if xerr, ok := AsError(err); ok {
		return xerr.Kind
	}
	return ""
}
