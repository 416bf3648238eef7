package model

// ReconciliationStatus classifies how an external record relates to the
// internally stored entity set.
type ReconciliationStatus string

const (
	// ReconcileAbsent means no internal entity matches the external id.
	ReconcileAbsent ReconciliationStatus = "ABSENT"
	// ReconcilePresent means a matching entity has at least one non-terminal
	// link to the target sequence.
	ReconcilePresent ReconciliationStatus = "PRESENT"
	// ReconcileInactive means a matching entity exists but all of its links
	// to the target sequence are terminal, or it has none.
	ReconcileInactive ReconciliationStatus = "INACTIVE"
	// ReconcileOwnerNotPresent means neither the entity nor its owner could
	// be resolved internally.
	ReconcileOwnerNotPresent ReconciliationStatus = "OWNER_NOT_PRESENT"
)

// StatusOwnerNotPresent is the candidate status written when the external
// owner id resolves to no internal user.
const StatusOwnerNotPresent = string(ReconcileOwnerNotPresent)

// TypedValue is one email address or phone number with its declared type
// (e.g. "work", "personal", "mobile").
type TypedValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Account is the nested company sub-record of a candidate.
type Account struct {
	Name            string `json:"name,omitempty"`
	URL             string `json:"url,omitempty"`
	Size            string `json:"size,omitempty"`
	Country         string `json:"country,omitempty"`
	ZipCode         string `json:"zip_code,omitempty"`
	Phone           string `json:"phone,omitempty"`
	IntegrationID   string `json:"integration_id,omitempty"`
	IntegrationKind string `json:"integration_kind,omitempty"`
}

// Owner identifies the internal user a candidate is assigned to.
type Owner struct {
	ExternalOwnerID string `json:"external_owner_id,omitempty"`
	InternalUserID  string `json:"internal_user_id,omitempty"`
	Name            string `json:"name,omitempty"`
}

// Metadata records where a candidate came from.
type Metadata struct {
	Source string `json:"source"`
}

// Candidate is the canonical intermediate form of one external record as it
// moves through the import pipeline. Outcome fields (IsSuccess, Status,
// InternalID, Position) are mutated in place by the pipeline stages.
type Candidate struct {
	ExternalID  string       `json:"external_id"`
	FirstName   string       `json:"first_name,omitempty"`
	LastName    string       `json:"last_name,omitempty"`
	JobPosition string       `json:"job_position,omitempty"`
	LinkedinURL string       `json:"linkedin_url,omitempty"`
	Account     Account      `json:"account"`
	Emails      []TypedValue `json:"emails,omitempty"`
	Phones      []TypedValue `json:"phones,omitempty"`
	Metadata    Metadata     `json:"metadata"`
	Owner       Owner        `json:"owner"`

	IsSuccess      bool                 `json:"is_success"`
	Status         string               `json:"status,omitempty"`
	InternalID     string               `json:"internal_id,omitempty"`
	Reconciliation ReconciliationStatus `json:"reconciliation,omitempty"`
	ExistingLinks  []LinkSummary        `json:"existing_links,omitempty"`
	Position       int                  `json:"position,omitempty"`
}

// Fail marks the candidate failed with the given status unless an earlier
// stage already recorded a violation. The first failure always wins so that
// outcomes stay deterministic.
func (c *Candidate) Fail(status string) {
	if !c.IsSuccess {
		return
	}
	c.IsSuccess = false
	c.Status = status
}

// Accepted reports whether the candidate is eligible for materialization.
func (c *Candidate) Accepted() bool {
	return c.IsSuccess && c.Reconciliation != ReconcilePresent
}
