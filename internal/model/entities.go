package model

import "time"

// LinkState is the lifecycle state of a lead's attachment to a sequence.
type LinkState string

const (
	LinkStateActive    LinkState = "active"
	LinkStatePaused    LinkState = "paused"
	LinkStateCompleted LinkState = "completed"
	LinkStateStopped   LinkState = "stopped"
)

// Terminal reports whether the link can no longer progress.
func (s LinkState) Terminal() bool {
	return s == LinkStateCompleted || s == LinkStateStopped
}

// Lead is an internally stored prospect entity.
type Lead struct {
	ID          string       `json:"id"`
	ExternalID  string       `json:"external_id"`
	Source      string       `json:"source"`
	FirstName   string       `json:"first_name"`
	LastName    string       `json:"last_name"`
	JobPosition string       `json:"job_position,omitempty"`
	LinkedinURL string       `json:"linkedin_url,omitempty"`
	Account     Account      `json:"account"`
	Emails      []TypedValue `json:"emails,omitempty"`
	Phones      []TypedValue `json:"phones,omitempty"`
	OwnerUserID string       `json:"owner_user_id"`
	CreatedAt   time.Time    `json:"created_at"`
}

// User is an internal CRM user leads are assigned to.
type User struct {
	ID    string `json:"id"`
	CRMID string `json:"crm_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Sequence is an ordered multi-step outreach campaign (cadence).
type Sequence struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	OwnerUserID  string `json:"owner_user_id"`
	Shared       bool   `json:"shared"`
	EntryStepID  string `json:"entry_step_id"`
	NextPosition int    `json:"next_position"`
}

// SequenceLink attaches a lead to a sequence at a position.
type SequenceLink struct {
	ID         string    `json:"id"`
	LeadID     string    `json:"lead_id"`
	SequenceID string    `json:"sequence_id"`
	StepID     string    `json:"step_id,omitempty"`
	Position   int       `json:"position"`
	State      LinkState `json:"state"`
	CreatedAt  time.Time `json:"created_at"`
}

// LinkSummary is the slim view of a prior link copied onto a candidate
// during reconciliation.
type LinkSummary struct {
	SequenceID string    `json:"sequence_id"`
	Position   int       `json:"position"`
	State      LinkState `json:"state"`
}
