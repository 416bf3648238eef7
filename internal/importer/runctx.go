package importer

import (
	"github.com/sells-group/cadence-sync/internal/model"
)

// RunContext carries all per-invocation state through the pipeline stages.
// It is created at run start, passed explicitly to every stage, and
// discarded once the final result is published. Nothing in this package
// keeps run state in package-level variables.
type RunContext struct {
	RunID    string
	Token    string
	Source   string
	Sequence *model.Sequence

	// Owner lookup cache: external owner id -> internal user (nil when the
	// lookup missed). Built lazily; an owner id is never re-queried within
	// one run. Written only by the owner resolver, and windows are
	// processed sequentially, so no lock is needed.
	ownerCache map[string]*model.User

	Processed int
	Total     int
}

// NewRunContext initializes per-run state for one import invocation.
func NewRunContext(runID, token, source string, seq *model.Sequence) *RunContext {
	return &RunContext{
		RunID:      runID,
		Token:      token,
		Source:     source,
		Sequence:   seq,
		ownerCache: make(map[string]*model.User),
	}
}

// cachedOwner returns the memoized lookup outcome for an external owner id.
// The second result reports whether any outcome (hit or miss) is cached.
func (rc *RunContext) cachedOwner(externalOwnerID string) (*model.User, bool) {
	user, ok := rc.ownerCache[externalOwnerID]
	return user, ok
}

// cacheOwner memoizes a lookup outcome, including misses.
func (rc *RunContext) cacheOwner(externalOwnerID string, user *model.User) {
	rc.ownerCache[externalOwnerID] = user
}
