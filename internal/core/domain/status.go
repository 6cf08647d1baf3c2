package domain

import "time"

// IngestStatus is the externally queryable record of the last ingestion
// outcome, shared between the api and the refresh worker.
type IngestStatus struct {
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
	LastCount     int        `json:"last_count"`
	Message       string     `json:"message"`
}
