package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/cadence-sync/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs offline
// mode and importer integration tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	// The sequence counter update must not interleave between writers.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS users (
	id     TEXT PRIMARY KEY,
	crm_id TEXT NOT NULL UNIQUE,
	name   TEXT NOT NULL,
	email  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sequences (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	owner_user_id TEXT NOT NULL,
	shared        INTEGER NOT NULL DEFAULT 0,
	entry_step_id TEXT,
	next_position INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS leads (
	id            TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	external_id   TEXT NOT NULL,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	job_position  TEXT,
	linkedin_url  TEXT,
	account       TEXT NOT NULL DEFAULT '{}',
	emails        TEXT,
	phones        TEXT,
	owner_user_id TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (source, external_id)
);

CREATE TABLE IF NOT EXISTS sequence_links (
	id          TEXT PRIMARY KEY,
	lead_id     TEXT NOT NULL REFERENCES leads(id),
	sequence_id TEXT NOT NULL REFERENCES sequences(id),
	step_id     TEXT,
	position    INTEGER NOT NULL,
	state       TEXT NOT NULL DEFAULT 'active',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (sequence_id, position)
);

CREATE TABLE IF NOT EXISTS import_runs (
	id          TEXT PRIMARY KEY,
	token       TEXT NOT NULL,
	sequence_id TEXT NOT NULL,
	source      TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'queued',
	result      TEXT,
	error       TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_source_external ON leads(source, external_id);
CREATE INDEX IF NOT EXISTS idx_links_lead_sequence ON sequence_links(lead_id, sequence_id);
CREATE INDEX IF NOT EXISTS idx_import_runs_status ON import_runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SeedSequence inserts a sequence row, used by offline mode and tests.
func (s *SQLiteStore) SeedSequence(ctx context.Context, seq *model.Sequence) error {
	if seq.ID == "" {
		seq.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sequences (id, name, owner_user_id, shared, entry_step_id, next_position) VALUES (?, ?, ?, ?, ?, ?)`,
		seq.ID, seq.Name, seq.OwnerUserID, boolToInt(seq.Shared), nullable(seq.EntryStepID), seq.NextPosition,
	)
	return eris.Wrap(err, "sqlite: seed sequence")
}

// SeedUser inserts a user row, used by offline mode and tests.
func (s *SQLiteStore) SeedUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, crm_id, name, email) VALUES (?, ?, ?, ?)`,
		user.ID, user.CRMID, user.Name, user.Email,
	)
	return eris.Wrap(err, "sqlite: seed user")
}

func (s *SQLiteStore) GetSequence(ctx context.Context, id string) (*model.Sequence, error) {
	var seq model.Sequence
	var shared int
	var entryStep sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_user_id, shared, entry_step_id, next_position FROM sequences WHERE id = ?`,
		id,
	).Scan(&seq.ID, &seq.Name, &seq.OwnerUserID, &shared, &entryStep, &seq.NextPosition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get sequence")
	}
	seq.Shared = shared != 0
	seq.EntryStepID = entryStep.String
	return &seq, nil
}

func (s *SQLiteStore) BumpSequenceCounter(ctx context.Context, sequenceID string, delta int) (int, error) {
	var next int
	err := s.db.QueryRowContext(ctx,
		`UPDATE sequences SET next_position = next_position + ? WHERE id = ? RETURNING next_position`,
		delta, sequenceID,
	).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, eris.Errorf("sqlite: bump counter: sequence %s not found", sequenceID)
	}
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: bump counter")
	}
	return next, nil
}

func (s *SQLiteStore) CheckSequenceAccess(ctx context.Context, sequenceID, userID string) (bool, error) {
	var allowed int
	err := s.db.QueryRowContext(ctx,
		`SELECT shared OR owner_user_id = ? FROM sequences WHERE id = ?`,
		userID, sequenceID,
	).Scan(&allowed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "sqlite: check sequence access")
	}
	return allowed != 0, nil
}

func (s *SQLiteStore) GetLeadByExternalID(ctx context.Context, source, externalID string) (*model.Lead, error) {
	var lead model.Lead
	var jobPosition, linkedin, emailsJSON, phonesJSON sql.NullString
	var accountJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, external_id, first_name, last_name, job_position, linkedin_url, account, emails, phones, owner_user_id, created_at FROM leads WHERE source = ? AND external_id = ?`,
		source, externalID,
	).Scan(&lead.ID, &lead.Source, &lead.ExternalID, &lead.FirstName, &lead.LastName,
		&jobPosition, &linkedin, &accountJSON, &emailsJSON, &phonesJSON, &lead.OwnerUserID, &lead.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get lead by external id")
	}
	lead.JobPosition = jobPosition.String
	lead.LinkedinURL = linkedin.String
	if accountJSON != "" {
		if err := json.Unmarshal([]byte(accountJSON), &lead.Account); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal lead account")
		}
	}
	if emailsJSON.Valid && emailsJSON.String != "" {
		if err := json.Unmarshal([]byte(emailsJSON.String), &lead.Emails); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal lead emails")
		}
	}
	if phonesJSON.Valid && phonesJSON.String != "" {
		if err := json.Unmarshal([]byte(phonesJSON.String), &lead.Phones); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal lead phones")
		}
	}
	return &lead, nil
}

func (s *SQLiteStore) GetLinks(ctx context.Context, leadID, sequenceID string) ([]model.SequenceLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_id, sequence_id, step_id, position, state, created_at FROM sequence_links WHERE lead_id = ? AND sequence_id = ? ORDER BY position`,
		leadID, sequenceID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get links")
	}
	defer rows.Close()

	var links []model.SequenceLink
	for rows.Next() {
		var link model.SequenceLink
		var stepID sql.NullString
		if err := rows.Scan(&link.ID, &link.LeadID, &link.SequenceID, &stepID, &link.Position, &link.State, &link.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan link")
		}
		link.StepID = stepID.String
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate links")
	}
	return links, nil
}

func (s *SQLiteStore) CreateLead(ctx context.Context, lead *model.Lead) (string, error) {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}

	accountJSON, err := json.Marshal(lead.Account)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal lead account")
	}
	emailsJSON, err := json.Marshal(lead.Emails)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal lead emails")
	}
	phonesJSON, err := json.Marshal(lead.Phones)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal lead phones")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (id, source, external_id, first_name, last_name, job_position, linkedin_url, account, emails, phones, owner_user_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.Source, lead.ExternalID, lead.FirstName, lead.LastName,
		nullable(lead.JobPosition), nullable(lead.LinkedinURL),
		string(accountJSON), string(emailsJSON), string(phonesJSON), lead.OwnerUserID, lead.CreatedAt,
	)
	if isSQLiteUnique(err) {
		return "", ErrDuplicate
	}
	if err != nil {
		return "", eris.Wrap(err, "sqlite: create lead")
	}
	return lead.ID, nil
}

func (s *SQLiteStore) CreateLink(ctx context.Context, link *model.SequenceLink) (string, error) {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	if link.State == "" {
		link.State = model.LinkStateActive
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sequence_links (id, lead_id, sequence_id, step_id, position, state, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		link.ID, link.LeadID, link.SequenceID, nullable(link.StepID), link.Position, link.State, link.CreatedAt,
	)
	if isSQLiteUnique(err) {
		return "", ErrDuplicate
	}
	if err != nil {
		return "", eris.Wrap(err, "sqlite: create link")
	}
	return link.ID, nil
}

func (s *SQLiteStore) GetUserByCRMID(ctx context.Context, crmID string) (*model.User, error) {
	var user model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, crm_id, name, email FROM users WHERE crm_id = ?`,
		crmID,
	).Scan(&user.ID, &user.CRMID, &user.Name, &user.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get user by crm id")
	}
	return &user, nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.ImportRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now
	if run.Status == "" {
		run.Status = model.RunStatusQueued
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_runs (id, token, sequence_id, source, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Token, run.SequenceID, run.Source, run.Status, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: create run")
	}
	return nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE import_runs SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: update run status")
	}
	return nil
}

func (s *SQLiteStore) UpdateRunResult(ctx context.Context, runID string, result *model.ImportResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run result")
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE import_runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), model.RunStatusComplete, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: update run result")
	}
	return nil
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, msg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE import_runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		model.RunStatusFailed, msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: fail run")
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.ImportRun, error) {
	var run model.ImportRun
	var resultJSON, errMsg sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, token, sequence_id, source, status, result, error, created_at, updated_at FROM import_runs WHERE id = ?`,
		runID,
	).Scan(&run.ID, &run.Token, &run.SequenceID, &run.Source, &run.Status, &resultJSON, &errMsg, &run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get run")
	}
	if resultJSON.Valid && resultJSON.String != "" {
		run.Result = &model.ImportResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), run.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run result")
		}
	}
	run.Error = errMsg.String
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ImportRun, error) {
	query := `SELECT id, token, sequence_id, source, status, result, error, created_at, updated_at FROM import_runs`
	var args []any
	var where []string

	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.SequenceID != "" {
		where = append(where, "sequence_id = ?")
		args = append(args, filter.SequenceID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + strconv.Itoa(filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.ImportRun
	for rows.Next() {
		var run model.ImportRun
		var resultJSON, errMsg sql.NullString
		if err := rows.Scan(&run.ID, &run.Token, &run.SequenceID, &run.Source, &run.Status, &resultJSON, &errMsg, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if resultJSON.Valid && resultJSON.String != "" {
			run.Result = &model.ImportResult{}
			if err := json.Unmarshal([]byte(resultJSON.String), run.Result); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal run result")
			}
		}
		run.Error = errMsg.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate runs")
	}
	return runs, nil
}

// isSQLiteUnique reports whether err is a UNIQUE constraint violation from
// the sqlite driver.
func isSQLiteUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
