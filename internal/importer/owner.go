package importer

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cadence-sync/internal/model"
	"github.com/sells-group/cadence-sync/internal/store"
)

// ResolveOwner maps the candidate's external owner id to an internal user,
// memoizing both hits and misses in the run context so storage is queried at
// most once per owner id per run. A miss fails the candidate with
// OWNER_NOT_PRESENT unless an earlier stage already recorded a violation.
func ResolveOwner(ctx context.Context, rc *RunContext, st store.Store, c *model.Candidate) error {
	ownerID := c.Owner.ExternalOwnerID
	if ownerID == "" {
		// Required-field validation already covered this; nothing to look up.
		return nil
	}

	user, cached := rc.cachedOwner(ownerID)
	if !cached {
		var err error
		user, err = st.GetUserByCRMID(ctx, ownerID)
		if err != nil {
			return eris.Wrap(err, "importer: owner lookup")
		}
		rc.cacheOwner(ownerID, user)
	}

	if user == nil {
		c.Fail(model.StatusOwnerNotPresent)
		return nil
	}

	c.Owner.InternalUserID = user.ID
	c.Owner.Name = user.Name
	return nil
}
