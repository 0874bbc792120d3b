package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/resumeintake/internal/models"
)

// resumePrefix is where uploaded originals are kept inside the bucket.
const resumePrefix = "resumes"

// CandidateStore persists résumé files in GCS and their metadata on the
// candidate's Firestore document.
type CandidateStore struct {
	storageClient   *storage.Client
	firestoreClient *firestore.Client
	bucket          string
	collection      string
}

// NewCandidateStore creates the storage and Firestore clients for a bucket and
// collection. The bucket may be empty for callers that never upload.
func NewCandidateStore(ctx context.Context, projectID, bucket, collection string) (*CandidateStore, error) {
	if collection == "" {
		return nil, fmt.Errorf("NewCandidateStore: collection cannot be empty")
	}

	firestoreClient, err := NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}

	return &CandidateStore{
		storageClient:   storageClient,
		firestoreClient: firestoreClient,
		bucket:          bucket,
		collection:      collection,
	}, nil
}

// Upload stores data under a UUID-prefixed name and returns its gs:// path.
func (s *CandidateStore) Upload(ctx context.Context, data []byte, suggestedName, contentType string) (string, error) {
	if s.bucket == "" {
		return "", fmt.Errorf("no resume bucket configured")
	}
	objectName := ObjectName(resumePrefix, suggestedName)
	if err := SaveToGCSAtomically(ctx, s.storageClient.Bucket(s.bucket), objectName, contentType, data); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), nil
}

// Delete removes an object previously returned by Upload.
func (s *CandidateStore) Delete(ctx context.Context, storagePath string) error {
	bucket, object, ok := strings.Cut(strings.TrimPrefix(storagePath, "gs://"), "/")
	if !ok || bucket == "" || object == "" {
		return fmt.Errorf("invalid storage path %q", storagePath)
	}
	if err := s.storageClient.Bucket(bucket).Object(object).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete %s: %w", storagePath, err)
	}
	return nil
}

// Download reads an object from any bucket, bounded by limit bytes.
func (s *CandidateStore) Download(ctx context.Context, bucket, object string, limit int64) ([]byte, error) {
	return ReadGCSObject(ctx, s.storageClient, bucket, object, limit)
}

// UpdateRecord merges rec into the candidate document. Fields that no longer
// apply to a terminal status are deleted, see recordFields.
func (s *CandidateStore) UpdateRecord(ctx context.Context, candidateID string, rec models.ResumeRecord) error {
	_, err := s.firestoreClient.Collection(s.collection).Doc(candidateID).Set(ctx, recordFields(rec), firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update candidate %s: %w", candidateID, err)
	}
	return nil
}

// staleOnFailure are the fields describing a successful extraction; a failed
// résumé must not keep them.
var staleOnFailure = []string{"resumeText", "resumeFormat", "resumePageCount", "resumeFileHash"}

// recordFields flattens rec into a map, since MergeAll only accepts maps.
// Empty fields are left untouched, except those a terminal status makes stale.
func recordFields(rec models.ResumeRecord) map[string]interface{} {
	fields := map[string]interface{}{}
	set := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	set("resumeStoragePath", rec.StoragePath)
	set("resumeOriginalFilename", rec.OriginalFilename)
	set("resumeText", rec.ExtractedText)
	set("resumeFormat", rec.Format)
	set("resumeFileHash", rec.FileHash)
	set("resumeStatus", rec.Status)
	set("resumeErrorDetails", rec.ErrorDetails)
	if rec.PageCount > 0 {
		fields["resumePageCount"] = rec.PageCount
	}

	var stale []string
	switch rec.Status {
	case models.ResumeStatusExtracted:
		stale = []string{"resumeErrorDetails", "resumePageCount"}
	case models.ResumeStatusFailed:
		stale = staleOnFailure
	}
	for _, key := range stale {
		if _, ok := fields[key]; !ok {
			fields[key] = firestore.Delete
		}
	}

	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	fields["updatedAt"] = rec.UpdatedAt
	return fields
}

// FindByFileHash returns the candidate whose stored résumé has the given hash.
func (s *CandidateStore) FindByFileHash(ctx context.Context, fileHash string) (string, bool, error) {
	docs, err := s.firestoreClient.Collection(s.collection).Where("resumeFileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return "", false, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return docs[0].Ref.ID, true, nil
	}
	return "", false, nil
}

// SaveSummarySection writes one executive summary section on the candidate.
func (s *CandidateStore) SaveSummarySection(ctx context.Context, candidateID, section, text string) error {
	data := map[string]interface{}{
		"executiveSummary": map[string]interface{}{section: text},
		"updatedAt":        time.Now(),
	}
	_, err := s.firestoreClient.Collection(s.collection).Doc(candidateID).Set(ctx, data, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to save %s summary for candidate %s: %w", section, candidateID, err)
	}
	return nil
}

// Close releases both clients.
func (s *CandidateStore) Close() error {
	serr := s.storageClient.Close()
	ferr := s.firestoreClient.Close()
	if serr != nil {
		return serr
	}
	return ferr
}
