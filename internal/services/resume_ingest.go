package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Lllllllleong/resumeintake/internal/extraction"
	"github.com/Lllllllleong/resumeintake/internal/gcp"
	"github.com/Lllllllleong/resumeintake/internal/models"
)

// incomingPrefix is the bucket folder watched by the ingest function.
const incomingPrefix = "incoming/"

// GCSEvent is the payload of a GCS object-finalized event.
type GCSEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

// ingestStore is what the ingest function needs from the candidate store.
type ingestStore interface {
	Download(ctx context.Context, bucket, object string, limit int64) ([]byte, error)
	UpdateRecord(ctx context.Context, candidateID string, rec models.ResumeRecord) error
	FindByFileHash(ctx context.Context, fileHash string) (string, bool, error)
}

// WorkflowStarter starts the summary-drafting workflow.
type WorkflowStarter interface {
	Trigger(ctx context.Context, payload map[string]interface{}) (string, error)
}

// IngestConfig holds configuration for the resume-ingest service.
type IngestConfig struct {
	ProjectID         string
	CollectionName    string
	MaxUploadBytes    int64
	SummaryWorkflowID string
	WorkflowLocation  string
}

// ResumeIngestFunction extracts résumés dropped into the bucket by other clients.
type ResumeIngestFunction struct {
	store     ingestStore
	workflow  WorkflowStarter
	extractor *extraction.Orchestrator
	config    IngestConfig
}

// NewResumeIngest creates a new ResumeIngestFunction from the environment.
func NewResumeIngest(ctx context.Context) (*ResumeIngestFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	maxBytes, err := gcp.GetEnvInt64("MAX_UPLOAD_BYTES", extraction.DefaultMaxFileSize)
	if err != nil {
		return nil, err
	}
	config := IngestConfig{
		ProjectID:         projectID,
		CollectionName:    gcp.GetEnv("FIRESTORE_COLLECTION", "candidates"),
		MaxUploadBytes:    maxBytes,
		SummaryWorkflowID: gcp.GetEnv("SUMMARY_WORKFLOW_ID", ""),
		WorkflowLocation:  gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
	}

	store, err := gcp.NewCandidateStore(ctx, config.ProjectID, "", config.CollectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidate store: %w", err)
	}

	var workflow WorkflowStarter
	if config.SummaryWorkflowID != "" {
		trigger, err := gcp.NewWorkflowTrigger(ctx, config.ProjectID, config.WorkflowLocation, config.SummaryWorkflowID)
		if err != nil {
			return nil, err
		}
		workflow = trigger
	}

	f := NewResumeIngestWith(store, workflow, extraction.NewOrchestrator(extraction.WithMaxFileSize(config.MaxUploadBytes)), config)
	slog.Info("Resume ingest logic initialized.", "summaryWorkflowId", config.SummaryWorkflowID)
	return f, nil
}

// NewResumeIngestWith wires the ingest function to explicit dependencies.
// workflow may be nil to skip the summary hand-off.
func NewResumeIngestWith(store ingestStore, workflow WorkflowStarter, extractor *extraction.Orchestrator, config IngestConfig) *ResumeIngestFunction {
	return &ResumeIngestFunction{store: store, workflow: workflow, extractor: extractor, config: config}
}

// Process handles one finalized object. Extraction failures are recorded on
// the candidate and are not returned, so the event is not redelivered.
func (f *ResumeIngestFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)

	candidateID, filename, ok := parseIncomingObject(e.Name)
	if !ok {
		logCtx.Info("Object is not an incoming resume. Skipping.")
		return nil
	}
	logCtx = logCtx.With("candidateId", candidateID, "filename", filename)
	logCtx.Info("Processing new resume object.")

	// One extra byte lets the extractor see that the object is over the limit.
	data, err := f.store.Download(ctx, e.Bucket, e.Name, f.extractor.MaxFileSize()+1)
	if err != nil {
		logCtx.Error("Failed to download resume", "error", err)
		return err
	}

	hash := fileHash(data)
	logCtx = logCtx.With("fileHash", hash)
	existingID, isDuplicate, err := f.store.FindByFileHash(ctx, hash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if isDuplicate && existingID == candidateID {
		logCtx.Info("Resume already extracted for this candidate. Skipping.")
		return nil
	}

	if err := f.store.UpdateRecord(ctx, candidateID, models.ResumeRecord{
		OriginalFilename: filename,
		Status:           models.ResumeStatusExtracting,
	}); err != nil {
		logCtx.Error("Failed to mark candidate as extracting", "error", err)
		return err
	}

	storagePath := fmt.Sprintf("gs://%s/%s", e.Bucket, e.Name)
	result, err := f.extractor.ExtractText(extraction.Document{Data: data, MIMEType: e.ContentType, Filename: filename})
	if err != nil {
		logExtractionFailure(logCtx, err)
		return f.recordFailure(ctx, logCtx, candidateID, storagePath, err)
	}

	rec := models.ResumeRecord{
		StoragePath:      storagePath,
		OriginalFilename: filename,
		ExtractedText:    result.Text,
		Format:           string(result.Format),
		PageCount:        result.PageCount,
		FileHash:         hash,
		Status:           models.ResumeStatusExtracted,
		UpdatedAt:        time.Now(),
	}
	if err := f.store.UpdateRecord(ctx, candidateID, rec); err != nil {
		logCtx.Error("Failed to record extracted resume", "error", err)
		return err
	}
	logCtx.Info("Resume extracted.", "sourceFormat", result.Format, "textLength", utf8.RuneCountInString(result.Text))

	f.startSummaryWorkflow(ctx, logCtx, candidateID, storagePath)
	return nil
}

func (f *ResumeIngestFunction) recordFailure(ctx context.Context, logCtx *slog.Logger, candidateID, storagePath string, cause error) error {
	rec := models.ResumeRecord{
		StoragePath:  storagePath,
		Status:       models.ResumeStatusFailed,
		ErrorDetails: UserMessage(cause),
		UpdatedAt:    time.Now(),
	}
	if err := f.store.UpdateRecord(ctx, candidateID, rec); err != nil {
		logCtx.Error("CRITICAL: Failed to update candidate status to FAILED after an extraction error.", "updateError", err)
		return err
	}
	return nil
}

// startSummaryWorkflow hands the candidate to the drafting workflow.
// Failures are logged and do not fail the event.
func (f *ResumeIngestFunction) startSummaryWorkflow(ctx context.Context, logCtx *slog.Logger, candidateID, storagePath string) {
	if f.workflow == nil {
		return
	}
	execution, err := f.workflow.Trigger(ctx, map[string]interface{}{
		"candidateId": candidateID,
		"storagePath": storagePath,
	})
	if err != nil {
		logCtx.Error("Failed to start summary workflow", "error", err)
		return
	}
	logCtx.Info("Summary workflow started.", "execution", execution)
}

// parseIncomingObject splits "incoming/<candidateId>/<filename>".
func parseIncomingObject(name string) (candidateID, filename string, ok bool) {
	rest, found := strings.CutPrefix(name, incomingPrefix)
	if !found {
		return "", "", false
	}
	candidateID, filename, found = strings.Cut(rest, "/")
	if !found || candidateID == "" || filename == "" || strings.HasSuffix(filename, "/") {
		return "", "", false
	}
	return candidateID, path.Base(filename), true
}
