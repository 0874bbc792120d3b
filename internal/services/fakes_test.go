package services

import (
	"context"
	"errors"
	"sync"

	"github.com/Lllllllleong/resumeintake/internal/models"
)

var errStoreDown = errors.New("store unavailable")

type fakeStore struct {
	mu sync.Mutex

	uploadErr   error
	updateErr   error
	downloadErr error
	findErr     error

	objects     map[string][]byte
	hashOwner   map[string]string
	uploads     []string
	records     map[string][]models.ResumeRecord
	state       map[string]models.ResumeRecord
	deleted     []string
	deleteErr   error
	downloadCap int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:   map[string][]byte{},
		hashOwner: map[string]string{},
		records:   map[string][]models.ResumeRecord{},
		state:     map[string]models.ResumeRecord{},
	}
}

func (s *fakeStore) Upload(_ context.Context, _ []byte, suggestedName, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.uploads = append(s.uploads, suggestedName)
	return "gs://resumes-bucket/resumes/" + suggestedName, nil
}

func (s *fakeStore) UpdateRecord(_ context.Context, candidateID string, rec models.ResumeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.records[candidateID] = append(s.records[candidateID], rec)
	s.state[candidateID] = mergeRecord(s.state[candidateID], rec)
	return nil
}

// mergeRecord applies rec the way the Firestore store does: empty fields keep
// the stored value and terminal statuses clear what no longer applies.
func mergeRecord(doc, rec models.ResumeRecord) models.ResumeRecord {
	switch rec.Status {
	case models.ResumeStatusExtracted:
		doc.ErrorDetails, doc.PageCount = "", 0
	case models.ResumeStatusFailed:
		doc.ExtractedText, doc.Format, doc.PageCount, doc.FileHash = "", "", 0, ""
	}
	keep := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	keep(&doc.StoragePath, rec.StoragePath)
	keep(&doc.OriginalFilename, rec.OriginalFilename)
	keep(&doc.ExtractedText, rec.ExtractedText)
	keep(&doc.Format, rec.Format)
	keep(&doc.FileHash, rec.FileHash)
	keep(&doc.Status, rec.Status)
	keep(&doc.ErrorDetails, rec.ErrorDetails)
	if rec.PageCount > 0 {
		doc.PageCount = rec.PageCount
	}
	return doc
}

func (s *fakeStore) Delete(_ context.Context, storagePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, storagePath)
	return s.deleteErr
}

func (s *fakeStore) Download(_ context.Context, _, object string, limit int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloadCap = limit
	if s.downloadErr != nil {
		return nil, s.downloadErr
	}
	data, ok := s.objects[object]
	if !ok {
		return nil, errors.New("object not found")
	}
	if int64(len(data)) > limit {
		data = data[:limit]
	}
	return data, nil
}

func (s *fakeStore) FindByFileHash(_ context.Context, fileHash string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return "", false, s.findErr
	}
	for id, doc := range s.state {
		if doc.FileHash == fileHash {
			return id, true, nil
		}
	}
	id, ok := s.hashOwner[fileHash]
	return id, ok, nil
}

func (s *fakeStore) lastRecord(candidateID string) models.ResumeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.records[candidateID]
	if len(recs) == 0 {
		return models.ResumeRecord{}
	}
	return recs[len(recs)-1]
}
