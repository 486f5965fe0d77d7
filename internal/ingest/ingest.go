// Package ingest submits videos to the provider by URL and tracks the ingest
// until the provider reports a final status.
package ingest

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Local statuses. Provider statuses are stored as reported.
const (
	StatusSubmitted = "submitted"
	StatusTimedOut  = "timed_out"
)

// Ingest is one tracked provider ingest.
type Ingest struct {
	ID          uuid.UUID `json:"id"`
	IngestID    string    `json:"ingest_id"`
	Filename    string    `json:"filename"`
	Extension   string    `json:"extension"`
	SourceURL   string    `json:"-"`
	S3Key       string    `json:"s3_key,omitempty"`
	ReferenceID string    `json:"reference_id,omitempty"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	Polls       int       `json:"polls"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Terminal reports whether the provider is done with the ingest, successfully or not.
func (i *Ingest) Terminal() bool {
	return IsTerminal(i.Status)
}

// IsTerminal reports whether status is final. Matching is case-insensitive since
// the provider's casing is not documented.
func IsTerminal(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "complete", "completed", "failed", "error", StatusTimedOut:
		return true
	}
	return false
}

// StatusUpdate is the provider's view of an ingest.
type StatusUpdate struct {
	Status string
	Error  string
}

// ParseStatus reads {ingestId, status, error} from a status response.
func ParseStatus(raw []byte) StatusUpdate {
	doc := gjson.ParseBytes(raw)
	return StatusUpdate{
		Status: doc.Get("status").String(),
		Error:  doc.Get("error").String(),
	}
}
