package documents

import "time"

// Status enumerates the document lifecycle.
//
// The pipeline distinguishes text extraction from the paid AI analysis, so
// "extracted" (text ready, awaiting payment) sits between the two busy states.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusExtracting Status = "extracting"
	StatusExtracted  Status = "extracted"
	StatusAnalyzing  Status = "analyzing"
	StatusAnalyzed   Status = "analyzed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no transition may leave the status.
func (s Status) Terminal() bool {
	return s == StatusAnalyzed || s == StatusFailed
}

// Document represents one uploaded file and its processing lifecycle.
// CharCount, Title and AnalysisCost are set together on extraction success;
// ErrorMessage is set iff the document failed.
type Document struct {
	ID               string
	FileName         string
	OriginalFilename string
	MimeType         string
	SizeBytes        int64
	StorageKey       string
	Title            *string
	CharCount        *int
	AnalysisCost     *int64
	Status           Status
	ErrorMessage     *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
