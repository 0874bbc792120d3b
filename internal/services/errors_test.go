package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Lllllllleong/resumeintake/internal/extraction"
	"github.com/Lllllllleong/resumeintake/internal/extraction/extractiontest"
)

func extractionError(t *testing.T, doc extraction.Document, opts ...extraction.Option) error {
	t.Helper()
	_, err := extraction.NewOrchestrator(opts...).ExtractText(doc)
	if err == nil {
		t.Fatal("expected extraction to fail")
	}
	return err
}

func TestStatusCode(t *testing.T) {
	tooLarge := extractionError(t, extraction.Document{Data: extractiontest.DOCX("Jane Doe, Chief Executive"), Filename: "cv.docx"}, extraction.WithMaxFileSize(10))
	invalid := extractionError(t, extraction.Document{Data: extractiontest.DOCX("x"), Filename: "cv.docx"})

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"invalid request", fmt.Errorf("%w: candidateId is required", ErrInvalidRequest), http.StatusBadRequest},
		{"file size", tooLarge, http.StatusRequestEntityTooLarge},
		{"validation", invalid, http.StatusUnprocessableEntity},
		{"wrapped extraction error", fmt.Errorf("ingest: %w", invalid), http.StatusUnprocessableEntity},
		{"infrastructure", errors.New("firestore unavailable"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	tooLarge := extractionError(t, extraction.Document{Data: extractiontest.DOCX("Jane Doe, Chief Executive"), Filename: "cv.docx"}, extraction.WithMaxFileSize(10))
	xerr, _ := extraction.AsError(tooLarge)

	assert.Equal(t, xerr.Message, UserMessage(tooLarge))
	assert.Equal(t, "invalid request: section is required", UserMessage(fmt.Errorf("%w: section is required", ErrInvalidRequest)))
	assert.NotContains(t, UserMessage(errors.New("rpc error: code = Unavailable")), "rpc error")
}
