package models

// These structs define the JSON payloads exchanged between the recruiting UI
// and the résumé Cloud Functions.

// ResumeUploadResponse is the output of the resume-uploader function for one file.
type ResumeUploadResponse struct {
	Status       string `json:"status"`
	CandidateID  string `json:"candidateId"`
	Filename     string `json:"filename"`
	StoragePath  string `json:"storagePath,omitempty"`
	SourceFormat string `json:"sourceFormat,omitempty"`
	PageCount    int    `json:"pageCount,omitempty"`
	TextLength   int    `json:"textLength,omitempty"`
	ErrorKind    string `json:"kind,omitempty"`
	Message      string `json:"message,omitempty"`
}

// BatchUploadResponse is returned when several files are uploaded at once.
type BatchUploadResponse struct {
	Status    string                  `json:"status"`
	Succeeded int                     `json:"succeeded"`
	Failed    int                     `json:"failed"`
	Results   []*ResumeUploadResponse `json:"results"`
}

// ErrorResponse is written for requests that fail as a whole.
type ErrorResponse struct {
	Status  string `json:"status"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// MergeStatementsRequest is the input for the statement-merger function.
type MergeStatementsRequest struct {
	CandidateID string   `json:"candidateId"`
	Section     string   `json:"section"`
	Existing    []string `json:"existing"`
	Drafts      []string `json:"drafts"`
	ResumeText  string   `json:"resumeText,omitempty"`
}

// MergeStatementsResponse is the output of the statement-merger function.
type MergeStatementsResponse struct {
	Status     string `json:"status"`
	Section    string `json:"section"`
	MergedText string `json:"mergedText"`
}
