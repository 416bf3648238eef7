package importer

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cadence-sync/internal/model"
	"github.com/sells-group/cadence-sync/internal/store"
)

// SequenceAssigner hands out monotonically increasing positions inside the
// target sequence. Positions are assigned in input order before a window is
// dispatched, so concurrent execution inside the window never changes the
// final ordering.
//
// Each window reserves its position range with a single atomic counter
// update — one write per window, not per record — so two runs importing
// into the same sequence at the same time can never observe overlapping
// ranges.
type SequenceAssigner struct {
	store      store.Store
	sequenceID string
}

// NewSequenceAssigner creates an assigner scoped to one target sequence.
func NewSequenceAssigner(st store.Store, sequenceID string) *SequenceAssigner {
	return &SequenceAssigner{store: st, sequenceID: sequenceID}
}

// AssignWindow reserves len(accepted) positions and writes them onto the
// candidates in input order. A window with no accepted candidates performs
// no counter write.
func (a *SequenceAssigner) AssignWindow(ctx context.Context, accepted []*model.Candidate) error {
	if len(accepted) == 0 {
		return nil
	}

	newMax, err := a.store.BumpSequenceCounter(ctx, a.sequenceID, len(accepted))
	if err != nil {
		return eris.Wrap(err, "importer: reserve sequence positions")
	}

	base := newMax - len(accepted)
	for i, c := range accepted {
		c.Position = base + i + 1
	}
	return nil
}
