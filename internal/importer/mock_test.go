package importer

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/cadence-sync/internal/model"
	"github.com/sells-group/cadence-sync/internal/store"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetSequence(ctx context.Context, id string) (*model.Sequence, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Sequence), args.Error(1)
}

func (m *mockStore) BumpSequenceCounter(ctx context.Context, sequenceID string, delta int) (int, error) {
	args := m.Called(ctx, sequenceID, delta)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) CheckSequenceAccess(ctx context.Context, sequenceID, userID string) (bool, error) {
	args := m.Called(ctx, sequenceID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) GetLeadByExternalID(ctx context.Context, source, externalID string) (*model.Lead, error) {
	args := m.Called(ctx, source, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *mockStore) GetLinks(ctx context.Context, leadID, sequenceID string) ([]model.SequenceLink, error) {
	args := m.Called(ctx, leadID, sequenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SequenceLink), args.Error(1)
}

func (m *mockStore) CreateLead(ctx context.Context, lead *model.Lead) (string, error) {
	args := m.Called(ctx, lead)
	return args.String(0), args.Error(1)
}

func (m *mockStore) CreateLink(ctx context.Context, link *model.SequenceLink) (string, error) {
	args := m.Called(ctx, link)
	return args.String(0), args.Error(1)
}

func (m *mockStore) GetUserByCRMID(ctx context.Context, crmID string) (*model.User, error) {
	args := m.Called(ctx, crmID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockStore) CreateRun(ctx context.Context, run *model.ImportRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *mockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	args := m.Called(ctx, runID, status)
	return args.Error(0)
}

func (m *mockStore) UpdateRunResult(ctx context.Context, runID string, result *model.ImportResult) error {
	args := m.Called(ctx, runID, result)
	return args.Error(0)
}

func (m *mockStore) FailRun(ctx context.Context, runID string, msg string) error {
	args := m.Called(ctx, runID, msg)
	return args.Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.ImportRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ImportRun), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.ImportRun, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ImportRun), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ store.Store = (*mockStore)(nil)
