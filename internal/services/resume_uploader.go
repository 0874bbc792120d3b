package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Lllllllleong/resumeintake/internal/extraction"
	"github.com/Lllllllleong/resumeintake/internal/gcp"
	"github.com/Lllllllleong/resumeintake/internal/models"
	"golang.org/x/sync/errgroup"
)

// ResumeStore is the persistence boundary for uploaded résumés.
type ResumeStore interface {
	Upload(ctx context.Context, data []byte, suggestedName, contentType string) (string, error)
	Delete(ctx context.Context, storagePath string) error
	UpdateRecord(ctx context.Context, candidateID string, rec models.ResumeRecord) error
}

// UploaderConfig holds configuration for the resume-uploader service.
type UploaderConfig struct {
	ProjectID      string
	ResumeBucket   string
	CollectionName string
	MaxUploadBytes int64
	BatchLimit     int
}

// ResumeUploaderFunction extracts uploaded résumés and stores the accepted ones.
type ResumeUploaderFunction struct {
	store     ResumeStore
	extractor *extraction.Orchestrator
	config    UploaderConfig
}

// UploadRequest is one file received from the UI.
type UploadRequest struct {
	CandidateID string
	Filename    string
	MIMEType    string
	Data        []byte
}

// loadUploaderConfig loads and validates the environment for this service.
func loadUploaderConfig() (*UploaderConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	bucket := gcp.GetEnv("RESUME_BUCKET", "")
	if bucket == "" {
		return nil, fmt.Errorf("RESUME_BUCKET environment variable must be set")
	}
	maxBytes, err := gcp.GetEnvInt64("MAX_UPLOAD_BYTES", extraction.DefaultMaxFileSize)
	if err != nil {
		return nil, err
	}
	batchLimit, err := gcp.GetEnvInt64("BATCH_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}

	return &UploaderConfig{
		ProjectID:      projectID,
		ResumeBucket:   bucket,
		CollectionName: gcp.GetEnv("FIRESTORE_COLLECTION", "candidates"),
		MaxUploadBytes: maxBytes,
		BatchLimit:     int(batchLimit),
	}, nil
}

// NewResumeUploader creates a new ResumeUploaderFunction from the environment.
func NewResumeUploader(ctx context.Context) (*ResumeUploaderFunction, error) {
	config, err := loadUploaderConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := gcp.NewCandidateStore(ctx, config.ProjectID, config.ResumeBucket, config.CollectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidate store: %w", err)
	}

	f := NewResumeUploaderWith(store, extraction.NewOrchestrator(extraction.WithMaxFileSize(config.MaxUploadBytes)), *config)
	slog.Info("Resume uploader initialized.", "bucket", config.ResumeBucket, "maxUploadBytes", f.MaxUploadBytes())
	return f, nil
}

// NewResumeUploaderWith wires the uploader to explicit dependencies.
func NewResumeUploaderWith(store ResumeStore, extractor *extraction.Orchestrator, config UploaderConfig) *ResumeUploaderFunction {
	if config.BatchLimit <= 0 {
		config.BatchLimit = 4
	}
	return &ResumeUploaderFunction{store: store, extractor: extractor, config: config}
}

// MaxUploadBytes is the size limit enforced by the extractor.
func (f *ResumeUploaderFunction) MaxUploadBytes() int64 {
	return f.extractor.MaxFileSize()
}

// Process extracts one résumé and, only if extraction succeeds, uploads the
// original and records it on the candidate.
func (f *ResumeUploaderFunction) Process(ctx context.Context, req *UploadRequest) (*models.ResumeUploadResponse, error) {
	if strings.TrimSpace(req.CandidateID) == "" {
		return nil, fmt.Errorf("%w: candidateId is required", ErrInvalidRequest)
	}
	logCtx := slog.With("candidateId", req.CandidateID, "filename", req.Filename, "size", len(req.Data))
	logCtx.Info("Processing resume upload.")

	result, err := f.extractor.ExtractText(extraction.Document{
		Data:     req.Data,
		MIMEType: req.MIMEType,
		Filename: req.Filename,
	})
	if err != nil {
		logExtractionFailure(logCtx, err)
		return nil, err
	}

	storagePath, err := f.store.Upload(ctx, req.Data, req.Filename, contentTypeFor(result.Format))
	if err != nil {
		logCtx.Error("Failed to upload resume to storage", "error", err)
		return nil, fmt.Errorf("failed to upload resume: %w", err)
	}
	logCtx = logCtx.With("storagePath", storagePath)

	rec := models.ResumeRecord{
		StoragePath:      storagePath,
		OriginalFilename: req.Filename,
		ExtractedText:    result.Text,
		Format:           string(result.Format),
		PageCount:        result.PageCount,
		FileHash:         fileHash(req.Data),
		Status:           models.ResumeStatusExtracted,
		UpdatedAt:        time.Now(),
	}
	if err := f.store.UpdateRecord(ctx, req.CandidateID, rec); err != nil {
		logCtx.Error("Failed to update candidate record", "error", err)
		if delErr := f.store.Delete(ctx, storagePath); delErr != nil {
			logCtx.Error("CRITICAL: Uploaded resume is orphaned and must be removed manually.", "deleteError", delErr)
		}
		return nil, fmt.Errorf("failed to update candidate record: %w", err)
	}

	logCtx.Info("Resume upload complete.", "sourceFormat", result.Format, "textLength", utf8.RuneCountInString(result.Text))
	return &models.ResumeUploadResponse{
		Status:       "success",
		CandidateID:  req.CandidateID,
		Filename:     req.Filename,
		StoragePath:  storagePath,
		SourceFormat: string(result.Format),
		PageCount:    result.PageCount,
		TextLength:   utf8.RuneCountInString(result.Text),
	}, nil
}

// ProcessBatch runs Process for several files concurrently. Each file
// succeeds or fails on its own; results keep the order of reqs.
func (f *ResumeUploaderFunction) ProcessBatch(ctx context.Context, reqs []*UploadRequest) *models.BatchUploadResponse {
	results := make([]*models.ResumeUploadResponse, len(reqs))

	var eg errgroup.Group
	eg.SetLimit(f.config.BatchLimit)
	for i, req := range reqs {
		eg.Go(func() error {
			res, err := f.Process(ctx, req)
			if err != nil {
				res = FailedUpload(req, err)
			}
			results[i] = res
			return nil
		})
	}
	_ = eg.Wait()

	batch := &models.BatchUploadResponse{Status: "success", Results: results}
	for _, res := range results {
		if res.Status == "success" {
			batch.Succeeded++
		} else {
			batch.Failed++
		}
	}
	if batch.Failed > 0 {
		batch.Status = "partial"
		if batch.Succeeded == 0 {
			batch.Status = "error"
		}
	}
	return batch
}

// FailedUpload builds the per-file response for a failed upload.
func FailedUpload(req *UploadRequest, err error) *models.ResumeUploadResponse {
	return &models.ResumeUploadResponse{
		Status:      "error",
		CandidateID: req.CandidateID,
		Filename:    req.Filename,
		ErrorKind:   string(extraction.KindOf(err)),
		Message:     UserMessage(err),
	}
}

func logExtractionFailure(logCtx *slog.Logger, err error) {
	xerr, ok := extraction.AsError(err)
	if !ok {
		logCtx.Error("Resume extraction failed", "error", err)
		return
	}
	logCtx.Warn("Resume extraction rejected the file",
		"kind", xerr.Kind,
		"details", xerr.Details,
		"error", xerr.Cause,
	)
}

func contentTypeFor(format extraction.Format) string {
	if format == extraction.FormatPDF {
		return extraction.MIMETypePDF
	}
	return extraction.MIMETypeDOCX
}

func fileHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
