package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cadence-sync/internal/model"
)

var errTest = errors.New("storage unavailable")

func testRunContext() *RunContext {
	return NewRunContext("run-1", "token-1", "csv", &model.Sequence{
		ID:          "seq-1",
		Name:        "Outbound Q3",
		OwnerUserID: "user-1",
		EntryStepID: "step-1",
	})
}

func TestResolveOwner_Hit(t *testing.T) {
	st := new(mockStore)
	st.On("GetUserByCRMID", mock.Anything, "crm-owner-1").
		Return(&model.User{ID: "user-1", CRMID: "crm-owner-1", Name: "Grace"}, nil).Once()

	rc := testRunContext()
	c := validCandidate()

	require.NoError(t, ResolveOwner(context.Background(), rc, st, c))

	assert.True(t, c.IsSuccess)
	assert.Equal(t, "user-1", c.Owner.InternalUserID)
	assert.Equal(t, "Grace", c.Owner.Name)
	st.AssertExpectations(t)
}

func TestResolveOwner_Miss(t *testing.T) {
	st := new(mockStore)
	st.On("GetUserByCRMID", mock.Anything, "crm-owner-1").Return(nil, nil).Once()

	rc := testRunContext()
	c := validCandidate()

	require.NoError(t, ResolveOwner(context.Background(), rc, st, c))

	assert.False(t, c.IsSuccess)
	assert.Equal(t, "OWNER_NOT_PRESENT", c.Status)
	assert.Empty(t, c.Owner.InternalUserID)
}

func TestResolveOwner_CachesHitsAndMisses(t *testing.T) {
	st := new(mockStore)
	st.On("GetUserByCRMID", mock.Anything, "hit").
		Return(&model.User{ID: "user-1", CRMID: "hit"}, nil).Once()
	st.On("GetUserByCRMID", mock.Anything, "miss").Return(nil, nil).Once()

	rc := testRunContext()
	ctx := context.Background()

	// Each owner id hits storage exactly once regardless of how many
	// candidates carry it.
	for range 3 {
		c := validCandidate()
		c.Owner.ExternalOwnerID = "hit"
		require.NoError(t, ResolveOwner(ctx, rc, st, c))
		assert.Equal(t, "user-1", c.Owner.InternalUserID)
	}
	for range 3 {
		c := validCandidate()
		c.Owner.ExternalOwnerID = "miss"
		require.NoError(t, ResolveOwner(ctx, rc, st, c))
		assert.Equal(t, "OWNER_NOT_PRESENT", c.Status)
	}

	st.AssertExpectations(t)
	st.AssertNumberOfCalls(t, "GetUserByCRMID", 2)
}

func TestResolveOwner_StorageError(t *testing.T) {
	st := new(mockStore)
	st.On("GetUserByCRMID", mock.Anything, "crm-owner-1").
		Return(nil, errTest).Once()

	rc := testRunContext()
	c := validCandidate()

	err := ResolveOwner(context.Background(), rc, st, c)
	require.Error(t, err)
	assert.True(t, c.IsSuccess, "storage errors are classified by the caller, not here")

	// The failed lookup is not cached; a retry queries again.
	st.On("GetUserByCRMID", mock.Anything, "crm-owner-1").Return(nil, nil).Once()
	require.NoError(t, ResolveOwner(context.Background(), rc, st, c))
	st.AssertExpectations(t)
}

func TestResolveOwner_EmptyOwnerID(t *testing.T) {
	st := new(mockStore)
	rc := testRunContext()
	c := validCandidate()
	c.Owner.ExternalOwnerID = ""

	require.NoError(t, ResolveOwner(context.Background(), rc, st, c))
	st.AssertNotCalled(t, "GetUserByCRMID")
}
