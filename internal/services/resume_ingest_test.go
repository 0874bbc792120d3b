package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/resumeintake/internal/extraction"
	"github.com/Lllllllleong/resumeintake/internal/extraction/extractiontest"
	"github.com/Lllllllleong/resumeintake/internal/models"
)

type fakeWorkflow struct {
	err      error
	payloads []map[string]interface{}
}

func (w *fakeWorkflow) Trigger(_ context.Context, payload map[string]interface{}) (string, error) {
	w.payloads = append(w.payloads, payload)
	if w.err != nil {
		return "", w.err
	}
	return "projects/p/locations/l/workflows/w/executions/123", nil
}

func newTestIngest(store *fakeStore, workflow WorkflowStarter) *ResumeIngestFunction {
	return NewResumeIngestWith(store, workflow, extraction.NewOrchestrator(), IngestConfig{})
}

func TestParseIncomingObject(t *testing.T) {
	tests := []struct {
		name          string
		wantCandidate string
		wantFile      string
		wantOK        bool
	}{
		{"incoming/cand-1/cv.pdf", "cand-1", "cv.pdf", true},
		{"incoming/cand-1/nested/cv.docx", "cand-1", "cv.docx", true},
		{"resumes/abc-cv.pdf", "", "", false},
		{"incoming/cv.pdf", "", "", false},
		{"incoming//cv.pdf", "", "", false},
		{"incoming/cand-1/", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidateID, filename, ok := parseIncomingObject(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCandidate, candidateID)
			assert.Equal(t, tt.wantFile, filename)
		})
	}
}

func TestResumeIngest_ExtractsAndStartsWorkflow(t *testing.T) {
	store := newFakeStore()
	store.objects["incoming/cand-7/jane.docx"] = extractiontest.DOCX("Jane Doe", "Managing Director")
	workflow := &fakeWorkflow{}

	err := newTestIngest(store, workflow).Process(context.Background(), GCSEvent{
		Bucket:      "intake",
		Name:        "incoming/cand-7/jane.docx",
		ContentType: extraction.MIMETypeDOCX,
	})
	require.NoError(t, err)

	recs := store.records["cand-7"]
	require.Len(t, recs, 2)
	assert.Equal(t, models.ResumeStatusExtracting, recs[0].Status)
	assert.Equal(t, models.ResumeStatusExtracted, recs[1].Status)
	assert.Equal(t, "Jane Doe\nManaging Director", recs[1].ExtractedText)
	assert.Equal(t, "gs://intake/incoming/cand-7/jane.docx", recs[1].StoragePath)
	assert.Equal(t, "DOCX", recs[1].Format)
	assert.NotEmpty(t, recs[1].FileHash)
	assert.Equal(t, extraction.DefaultMaxFileSize+1, store.downloadCap)

	require.Len(t, workflow.payloads, 1)
	assert.Equal(t, "cand-7", workflow.payloads[0]["candidateId"])
}

func TestResumeIngest_IgnoresOtherObjects(t *testing.T) {
	store := newFakeStore()
	err := newTestIngest(store, nil).Process(context.Background(), GCSEvent{Bucket: "intake", Name: "resumes/1234-cv.pdf"})
	require.NoError(t, err)
	assert.Zero(t, store.downloadCap)
	assert.Empty(t, store.records)
}

func TestResumeIngest_SkipsDuplicateForSameCandidate(t *testing.T) {
	store := newFakeStore()
	data := extractiontest.DOCX("Jane Doe", "Managing Director")
	store.objects["incoming/cand-7/jane.docx"] = data
	store.hashOwner[fileHash(data)] = "cand-7"
	workflow := &fakeWorkflow{}

	err := newTestIngest(store, workflow).Process(context.Background(), GCSEvent{Bucket: "intake", Name: "incoming/cand-7/jane.docx"})
	require.NoError(t, err)
	assert.Empty(t, store.records)
	assert.Empty(t, workflow.payloads)
}

func TestResumeIngest_SameFileForAnotherCandidateIsExtracted(t *testing.T) {
	store := newFakeStore()
	data := extractiontest.DOCX("Jane Doe", "Managing Director")
	store.objects["incoming/cand-8/jane.docx"] = data
	store.hashOwner[fileHash(data)] = "cand-7"

	err := newTestIngest(store, nil).Process(context.Background(), GCSEvent{Bucket: "intake", Name: "incoming/cand-8/jane.docx"})
	require.NoError(t, err)
	assert.Equal(t, models.ResumeStatusExtracted, store.lastRecord("cand-8").Status)
}

func TestResumeIngest_RecordsExtractionFailure(t *testing.T) {
	store := newFakeStore()
	store.objects["incoming/cand-9/scan.pdf"] = []byte("%PDF-1.4 garbage that is not a document")
	workflow := &fakeWorkflow{}

	err := newTestIngest(store, workflow).Process(context.Background(), GCSEvent{
		Bucket:      "intake",
		Name:        "incoming/cand-9/scan.pdf",
		ContentType: extraction.MIMETypePDF,
	})
	require.NoError(t, err)

	rec := store.lastRecord("cand-9")
	assert.Equal(t, models.ResumeStatusFailed, rec.Status)
	assert.NotEmpty(t, rec.ErrorDetails)
	assert.Empty(t, rec.ExtractedText)
	assert.Empty(t, rec.FileHash)
	assert.Empty(t, workflow.payloads)
}

func TestResumeIngest_ReingestAfterFailure(t *testing.T) {
	store := newFakeStore()
	good := extractiontest.DOCX("Jane Doe", "Managing Director")
	store.objects["incoming/cand-7/jane.docx"] = good
	store.objects["incoming/cand-7/scan.pdf"] = []byte("%PDF-1.4 garbage that is not a document")
	f := newTestIngest(store, nil)
	ctx := context.Background()

	require.NoError(t, f.Process(ctx, GCSEvent{Bucket: "intake", Name: "incoming/cand-7/jane.docx"}))
	require.Equal(t, models.ResumeStatusExtracted, store.state["cand-7"].Status)

	require.NoError(t, f.Process(ctx, GCSEvent{Bucket: "intake", Name: "incoming/cand-7/scan.pdf", ContentType: extraction.MIMETypePDF}))
	failed := store.state["cand-7"]
	assert.Equal(t, models.ResumeStatusFailed, failed.Status)
	assert.Empty(t, failed.ExtractedText)
	assert.Empty(t, failed.FileHash)

	// The first file no longer counts as already extracted.
	require.NoError(t, f.Process(ctx, GCSEvent{Bucket: "intake", Name: "incoming/cand-7/jane.docx"}))
	final := store.state["cand-7"]
	assert.Equal(t, models.ResumeStatusExtracted, final.Status)
	assert.Equal(t, "Jane Doe\nManaging Director", final.ExtractedText)
	assert.Equal(t, fileHash(good), final.FileHash)
	assert.Empty(t, final.ErrorDetails)
	assert.Len(t, store.records["cand-7"], 6)
}

func TestResumeIngest_WorkflowFailureDoesNotFailEvent(t *testing.T) {
	store := newFakeStore()
	store.objects["incoming/cand-7/jane.docx"] = extractiontest.DOCX("Jane Doe", "Managing Director")
	workflow := &fakeWorkflow{err: errors.New("quota exceeded")}

	err := newTestIngest(store, workflow).Process(context.Background(), GCSEvent{Bucket: "intake", Name: "incoming/cand-7/jane.docx"})
	require.NoError(t, err)
	assert.Equal(t, models.ResumeStatusExtracted, store.lastRecord("cand-7").Status)
	assert.Len(t, workflow.payloads, 1)
}

func TestResumeIngest_InfrastructureErrorsAreReturned(t *testing.T) {
	event := GCSEvent{Bucket: "intake", Name: "incoming/cand-7/jane.docx"}

	t.Run("download", func(t *testing.T) {
		store := newFakeStore()
		store.downloadErr = errStoreDown
		assert.ErrorIs(t, newTestIngest(store, nil).Process(context.Background(), event), errStoreDown)
	})
	t.Run("duplicate check", func(t *testing.T) {
		store := newFakeStore()
		store.objects[event.Name] = extractiontest.DOCX("Jane Doe", "Managing Director")
		store.findErr = errStoreDown
		assert.ErrorIs(t, newTestIngest(store, nil).Process(context.Background(), event), errStoreDown)
		assert.Empty(t, store.records)
	})
	t.Run("record", func(t *testing.T) {
		store := newFakeStore()
		store.objects[event.Name] = extractiontest.DOCX("Jane Doe", "Managing Director")
		store.updateErr = errStoreDown
		assert.ErrorIs(t, newTestIngest(store, nil).Process(context.Background(), event), errStoreDown)
	})
}
