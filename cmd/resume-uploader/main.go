package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/resumeintake/internal/models"
	"github.com/Lllllllleong/resumeintake/internal/services"
)

// maxFilesPerRequest bounds a single multipart upload.
const maxFilesPerRequest = 10

var (
	uploaderInstance *services.ResumeUploaderFunction
	once             sync.Once
	initErr          error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleUploadResume", handleUploadResume)
}

func main() {}

// handleUploadResume is the HTTP handler for résumé uploads from the UI.
func handleUploadResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	once.Do(func() {
		uploaderInstance, initErr = services.NewResumeUploader(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Resume uploader initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	reqs, err := readUploadRequests(r, uploaderInstance.MaxUploadBytes())
	if err != nil {
		slog.Warn("Could not read upload request", "error", err)
		writeJSON(w, services.StatusCode(err), &models.ErrorResponse{Status: "error", Message: services.UserMessage(err)})
		return
	}

	if len(reqs) > 1 {
		writeJSON(w, http.StatusOK, uploaderInstance.ProcessBatch(r.Context(), reqs))
		return
	}

	res, err := uploaderInstance.Process(r.Context(), reqs[0])
	if err != nil {
		// Error is already logged with context in the Process method.
		writeJSON(w, services.StatusCode(err), services.FailedUpload(reqs[0], err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// readUploadRequests streams the multipart body. Each file is read up to one
// byte past maxBytes so that oversized files are still rejected by size.
func readUploadRequests(r *http.Request, maxBytes int64) ([]*services.UploadRequest, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: expected a multipart/form-data body", services.ErrInvalidRequest)
	}

	var candidateID string
	var reqs []*services.UploadRequest
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: malformed multipart body", services.ErrInvalidRequest)
		}

		switch part.FormName() {
		case "candidateId":
			value, err := io.ReadAll(io.LimitReader(part, 256))
			if err != nil {
				return nil, fmt.Errorf("failed to read candidateId: %w", err)
			}
			candidateID = strings.TrimSpace(string(value))
		case "file":
			if len(reqs) == maxFilesPerRequest {
				return nil, fmt.Errorf("%w: at most %d files can be uploaded at once", services.ErrInvalidRequest, maxFilesPerRequest)
			}
			data, err := io.ReadAll(io.LimitReader(part, maxBytes+1))
			if err != nil {
				return nil, fmt.Errorf("failed to read uploaded file: %w", err)
			}
			reqs = append(reqs, &services.UploadRequest{
				Filename: part.FileName(),
				MIMEType: part.Header.Get("Content-Type"),
				Data:     data,
			})
		}
		part.Close()
	}

	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: no file was uploaded", services.ErrInvalidRequest)
	}
	for _, req := range reqs {
		req.CandidateID = candidateID
	}
	return reqs, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
