// Package store provides persistence for leads, sequences and import runs,
// with Postgres and SQLite backends behind one interface.
package store

import (
	"context"
	"errors"

	"github.com/sells-group/cadence-sync/internal/model"
)

// RunFilter specifies criteria for listing import runs.
type RunFilter struct {
	Status     model.RunStatus `json:"status,omitempty"`
	SequenceID string          `json:"sequence_id,omitempty"`
	Limit      int             `json:"limit,omitempty"`
	Offset     int             `json:"offset,omitempty"`
}

// Store defines the persistence interface consumed by the import pipeline.
type Store interface {
	// Sequences
	GetSequence(ctx context.Context, id string) (*model.Sequence, error)
	// BumpSequenceCounter atomically advances the sequence's position
	// counter by delta and returns the new value. Callers own the range
	// (new-delta, new]; concurrent runs on the same sequence never observe
	// overlapping ranges.
	BumpSequenceCounter(ctx context.Context, sequenceID string, delta int) (int, error)
	CheckSequenceAccess(ctx context.Context, sequenceID, userID string) (bool, error)

	// Leads and links
	GetLeadByExternalID(ctx context.Context, source, externalID string) (*model.Lead, error)
	GetLinks(ctx context.Context, leadID, sequenceID string) ([]model.SequenceLink, error)
	CreateLead(ctx context.Context, lead *model.Lead) (string, error)
	CreateLink(ctx context.Context, link *model.SequenceLink) (string, error)

	// Users
	GetUserByCRMID(ctx context.Context, crmID string) (*model.User, error)

	// Import runs
	CreateRun(ctx context.Context, run *model.ImportRun) error
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.ImportResult) error
	FailRun(ctx context.Context, runID string, msg string) error
	GetRun(ctx context.Context, runID string) (*model.ImportRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.ImportRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// ErrDuplicate is returned by CreateLead when the (source, external_id) pair
// already exists. Stores translate their driver's uniqueness violation into
// this sentinel so callers can give a friendly message.
var ErrDuplicate = errors.New("store: duplicate external id")
