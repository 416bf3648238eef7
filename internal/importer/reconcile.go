package importer

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cadence-sync/internal/model"
	"github.com/sells-group/cadence-sync/internal/store"
)

// Reconcile looks up an existing internal lead by the candidate's external
// id and classifies the result:
//
//   - a matching lead with at least one non-terminal link to the target
//     sequence is PRESENT (already being worked, excluded from
//     materialization);
//   - a matching lead whose links are all terminal, or that has none, is
//     INACTIVE (eligible for re-linking);
//   - no matching lead is ABSENT — unless the owner also failed to resolve,
//     in which case OWNER_NOT_PRESENT supersedes it.
//
// When a lead is found, its internal id and prior link summaries are copied
// onto the candidate so they reach the aggregated result even for failed
// records.
func Reconcile(ctx context.Context, rc *RunContext, st store.Store, c *model.Candidate) error {
	lead, err := st.GetLeadByExternalID(ctx, rc.Source, c.ExternalID)
	if err != nil {
		return eris.Wrap(err, "importer: reconcile lookup")
	}

	if lead == nil {
		if c.Owner.InternalUserID == "" {
			c.Reconciliation = model.ReconcileOwnerNotPresent
		} else {
			c.Reconciliation = model.ReconcileAbsent
		}
		return nil
	}

	c.InternalID = lead.ID

	links, err := st.GetLinks(ctx, lead.ID, rc.Sequence.ID)
	if err != nil {
		return eris.Wrap(err, "importer: load links")
	}

	active := false
	for _, link := range links {
		c.ExistingLinks = append(c.ExistingLinks, model.LinkSummary{
			SequenceID: link.SequenceID,
			Position:   link.Position,
			State:      link.State,
		})
		if !link.State.Terminal() {
			active = true
		}
	}

	if active {
		c.Reconciliation = model.ReconcilePresent
		c.Fail("Already present in cadence")
	} else {
		c.Reconciliation = model.ReconcileInactive
	}
	return nil
}
