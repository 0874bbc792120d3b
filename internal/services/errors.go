package services

import (
	"errors"
	"net/http"

	"github.com/Lllllllleong/resumeintake/internal/extraction"
)

// ErrInvalidRequest marks requests rejected before any processing.
var ErrInvalidRequest = errors.New("invalid request")

// StatusCode maps a processing error to the HTTP status the functions return.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	switch extraction.KindOf(err) {
	case "":
		return http.StatusInternalServerError
	case extraction.KindFileSize:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusUnprocessableEntity
	}
}

// UserMessage returns text that is safe to show in the UI for err.
func UserMessage(err error) string {
	if xerr, ok := extraction.AsError(err); ok {
		return xerr.Message
	}
	if errors.Is(err, ErrInvalidRequest) {
		return err.Error()
	}
	return "Something went wrong while processing the file. Please try again."
}
