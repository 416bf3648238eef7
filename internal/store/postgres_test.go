package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cadence-sync/internal/model"
)

// anyArgs returns n pgxmock.AnyArg matchers; pgxmock v4 requires the
// expected argument count to match even when argument values are irrelevant.
func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgres_GetSequence(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	entryStep := "step-1"
	mock.ExpectQuery("SELECT id, name, owner_user_id, shared, entry_step_id, next_position FROM sequences").
		WithArgs("seq-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "owner_user_id", "shared", "entry_step_id", "next_position"}).
			AddRow("seq-1", "Outbound Q3", "user-1", false, &entryStep, 42))

	seq, err := st.GetSequence(context.Background(), "seq-1")
	require.NoError(t, err)
	require.NotNil(t, seq)
	assert.Equal(t, "step-1", seq.EntryStepID)
	assert.Equal(t, 42, seq.NextPosition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetSequence_Missing(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT id, name, owner_user_id, shared, entry_step_id, next_position FROM sequences").
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "owner_user_id", "shared", "entry_step_id", "next_position"}))

	seq, err := st.GetSequence(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_BumpSequenceCounter(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`UPDATE sequences SET next_position = next_position \+ \$1`).
		WithArgs(10, "seq-1").
		WillReturnRows(pgxmock.NewRows([]string{"next_position"}).AddRow(50))

	next, err := st.BumpSequenceCounter(context.Background(), "seq-1", 10)
	require.NoError(t, err)
	assert.Equal(t, 50, next)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_BumpSequenceCounter_UnknownSequence(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`UPDATE sequences SET next_position = next_position \+ \$1`).
		WithArgs(3, "nope").
		WillReturnRows(pgxmock.NewRows([]string{"next_position"}))

	_, err := st.BumpSequenceCounter(context.Background(), "nope", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CheckSequenceAccess(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT shared OR owner_user_id = \$2 FROM sequences`).
		WithArgs("seq-1", "user-2").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(false))

	allowed, err := st.CheckSequenceAccess(context.Background(), "seq-1", "user-2")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CheckSequenceAccess_MissingSequence(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT shared OR owner_user_id = \$2 FROM sequences`).
		WithArgs("nope", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}))

	allowed, err := st.CheckSequenceAccess(context.Background(), "nope", "user-1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateLead(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectExec("INSERT INTO leads").
		WithArgs(anyArgs(12)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := st.CreateLead(context.Background(), &model.Lead{
		Source:      "csv",
		ExternalID:  "ext-1",
		FirstName:   "Ada",
		LastName:    "Lovelace",
		OwnerUserID: "user-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateLead_UniqueViolation(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectExec("INSERT INTO leads").
		WithArgs(anyArgs(12)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "leads_source_external_id_key"})

	_, err := st.CreateLead(context.Background(), &model.Lead{
		Source:      "csv",
		ExternalID:  "ext-1",
		FirstName:   "Ada",
		LastName:    "Lovelace",
		OwnerUserID: "user-1",
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateLink_UniqueViolation(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectExec("INSERT INTO sequence_links").
		WithArgs(anyArgs(7)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "sequence_links_sequence_id_position_key"})

	_, err := st.CreateLink(context.Background(), &model.SequenceLink{
		LeadID:     "lead-1",
		SequenceID: "seq-1",
		Position:   4,
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetLeadByExternalID(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, source, external_id, first_name, last_name, job_position, linkedin_url, account, emails, phones, owner_user_id, created_at FROM leads").
		WithArgs("csv", "ext-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "source", "external_id", "first_name", "last_name", "job_position", "linkedin_url", "account", "emails", "phones", "owner_user_id", "created_at"}).
			AddRow("lead-1", "csv", "ext-1", "Ada", "Lovelace", (*string)(nil), (*string)(nil),
				[]byte(`{"name":"Analytical Engines"}`),
				[]byte(`[{"type":"work","value":"ada@engines.example.com"}]`),
				[]byte(nil), "user-1", created))

	lead, err := st.GetLeadByExternalID(context.Background(), "csv", "ext-1")
	require.NoError(t, err)
	require.NotNil(t, lead)
	assert.Equal(t, "Analytical Engines", lead.Account.Name)
	require.Len(t, lead.Emails, 1)
	assert.Empty(t, lead.Phones)
	assert.Equal(t, created, lead.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetLeadByExternalID_Missing(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT id, source, external_id").
		WithArgs("csv", "nope").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	lead, err := st.GetLeadByExternalID(context.Background(), "csv", "nope")
	require.NoError(t, err)
	assert.Nil(t, lead)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetLinks(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	stepID := "step-1"
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, lead_id, sequence_id, step_id, position, state, created_at FROM sequence_links").
		WithArgs("lead-1", "seq-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "lead_id", "sequence_id", "step_id", "position", "state", "created_at"}).
			AddRow("link-1", "lead-1", "seq-1", &stepID, 3, model.LinkStateCompleted, now).
			AddRow("link-2", "lead-1", "seq-1", (*string)(nil), 9, model.LinkStateActive, now))

	links, err := st.GetLinks(context.Background(), "lead-1", "seq-1")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "step-1", links[0].StepID)
	assert.Equal(t, model.LinkStateActive, links[1].State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RunResult_RoundTrip(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectExec("INSERT INTO import_runs").
		WithArgs(anyArgs(7)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE import_runs SET result = \$1, status = \$2`).
		WithArgs(anyArgs(4)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ctx := context.Background()
	run := &model.ImportRun{Token: "t", SequenceID: "seq-1", Source: "csv", Status: model.RunStatusRunning}
	require.NoError(t, st.CreateRun(ctx, run))
	require.NoError(t, st.UpdateRunResult(ctx, run.ID, &model.ImportResult{TotalSuccess: 1}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRun_Missing(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT id, token, sequence_id, source, status, result, error, created_at, updated_at FROM import_runs").
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	run, err := st.GetRun(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, run)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListRuns_BuildsFilterClauses(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM import_runs WHERE status = \$1 AND sequence_id = \$2 ORDER BY created_at DESC LIMIT \$3`).
		WithArgs(model.RunStatusComplete, "seq-1", 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "token", "sequence_id", "source", "status", "result", "error", "created_at", "updated_at"}).
			AddRow("run-1", "t1", "seq-1", "csv", model.RunStatusComplete, []byte(`{"total_success":3}`), (*string)(nil), now, now))

	runs, err := st.ListRuns(context.Background(), RunFilter{
		Status:     model.RunStatusComplete,
		SequenceID: "seq-1",
		Limit:      5,
	})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.NotNil(t, runs[0].Result)
	assert.Equal(t, 3, runs[0].Result.TotalSuccess)
	assert.NoError(t, mock.ExpectationsWereMet())
}
