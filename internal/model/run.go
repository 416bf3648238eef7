package model

import "time"

// RunStatus represents the current state of an import run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// ImportRun is one import invocation, persisted for inspection.
type ImportRun struct {
	ID         string        `json:"id"`
	Token      string        `json:"token"`
	SequenceID string        `json:"sequence_id"`
	Source     string        `json:"source"`
	Status     RunStatus     `json:"status"`
	Result     *ImportResult `json:"result,omitempty"`
	Error      string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// ElementSuccess records one materialized record in the final result.
type ElementSuccess struct {
	ExternalID string `json:"external_id"`
	SequenceID string `json:"sequence_id"`
	InternalID string `json:"internal_id"`
}

// ElementError records one failed record in the final result. Kind carries
// an optional machine-readable tag such as "access-denied".
type ElementError struct {
	ExternalID string `json:"external_id"`
	SequenceID string `json:"sequence_id"`
	Message    string `json:"message"`
	Kind       string `json:"kind,omitempty"`
}

// ImportResult is the aggregated outcome of one import run.
type ImportResult struct {
	TotalSuccess   int              `json:"total_success"`
	TotalError     int              `json:"total_error"`
	ElementSuccess []ElementSuccess `json:"element_success"`
	ElementError   []ElementError   `json:"element_error"`
}

// ProgressTick is one per-window progress message.
type ProgressTick struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}
