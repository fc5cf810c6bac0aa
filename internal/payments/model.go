package payments

import (
	"encoding/json"
	"time"
)

// Status enumerates payment states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Payment is one charge attempt tied to a document. IntentID is the payment
// processor's intent reference and is unique: the synchronous confirm call and
// the asynchronous webhook both reconcile against the same row through it.
type Payment struct {
	ID         string
	DocumentID string
	IntentID   string
	Amount     int64
	Currency   string
	Status     Status
	// AnalysisOptions carries the requested analysis sections so the
	// webhook path can trigger analysis with the options chosen at
	// confirmation time.
	AnalysisOptions json.RawMessage
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
