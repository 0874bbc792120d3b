package models

import "time"

// Résumé processing states stored on the candidate record.
const (
	ResumeStatusExtracting = "EXTRACTING"
	ResumeStatusExtracted  = "EXTRACTED"
	ResumeStatusFailed     = "FAILED"
)

// ResumeRecord is the résumé portion of a candidate document in Firestore.
// Empty fields are left untouched when the record is merged, except that an
// EXTRACTED record clears the error and a FAILED record clears the text,
// format, page count and file hash.
type ResumeRecord struct {
	StoragePath      string    `firestore:"resumeStoragePath,omitempty"`
	OriginalFilename string    `firestore:"resumeOriginalFilename,omitempty"`
	ExtractedText    string    `firestore:"resumeText,omitempty"`
	Format           string    `firestore:"resumeFormat,omitempty"`
	PageCount        int       `firestore:"resumePageCount,omitempty"`
	FileHash         string    `firestore:"resumeFileHash,omitempty"`
	Status           string    `firestore:"resumeStatus,omitempty"`
	ErrorDetails     string    `firestore:"resumeErrorDetails,omitempty"`
	UpdatedAt        time.Time `firestore:"updatedAt,omitempty"`
}

// Executive summary sections the merge function can write.
const (
	SummarySectionCredibility = "credibility"
	SummarySectionResults     = "results"
)
