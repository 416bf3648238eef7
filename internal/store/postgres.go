package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cadence-sync/internal/db"
	"github.com/sells-group/cadence-sync/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot path (per-record lookups and inserts).
var preparedStatements = map[string]string{
	"get_lead_by_external": `SELECT id, source, external_id, first_name, last_name, job_position, linkedin_url, account, emails, phones, owner_user_id, created_at FROM leads WHERE source = $1 AND external_id = $2`,
	"get_links":            `SELECT id, lead_id, sequence_id, step_id, position, state, created_at FROM sequence_links WHERE lead_id = $1 AND sequence_id = $2 ORDER BY position`,
	"get_user_by_crm":      `SELECT id, crm_id, name, email FROM users WHERE crm_id = $1`,
	"insert_lead":          `INSERT INTO leads (id, source, external_id, first_name, last_name, job_position, linkedin_url, account, emails, phones, owner_user_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
	"insert_link":          `INSERT INTO sequence_links (id, lead_id, sequence_id, step_id, position, state, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"bump_counter":         `UPDATE sequences SET next_position = next_position + $1 WHERE id = $2 RETURNING next_position`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests and callers that
// manage the pool lifecycle themselves.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS users (
	id     TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	crm_id TEXT NOT NULL UNIQUE,
	name   TEXT NOT NULL,
	email  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sequences (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name          TEXT NOT NULL,
	owner_user_id TEXT NOT NULL,
	shared        BOOLEAN NOT NULL DEFAULT FALSE,
	entry_step_id TEXT,
	next_position INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS leads (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source        TEXT NOT NULL,
	external_id   TEXT NOT NULL,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	job_position  TEXT,
	linkedin_url  TEXT,
	account       JSONB NOT NULL DEFAULT '{}',
	emails        JSONB,
	phones        JSONB,
	owner_user_id TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source, external_id)
);

CREATE TABLE IF NOT EXISTS sequence_links (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	lead_id     TEXT NOT NULL REFERENCES leads(id),
	sequence_id TEXT NOT NULL REFERENCES sequences(id),
	step_id     TEXT,
	position    INTEGER NOT NULL,
	state       TEXT NOT NULL DEFAULT 'active',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (sequence_id, position)
);

CREATE TABLE IF NOT EXISTS import_runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	token       TEXT NOT NULL,
	sequence_id TEXT NOT NULL,
	source      TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'queued',
	result      JSONB,
	error       TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_source_external ON leads(source, external_id);
CREATE INDEX IF NOT EXISTS idx_links_lead_sequence ON sequence_links(lead_id, sequence_id);
CREATE INDEX IF NOT EXISTS idx_links_sequence ON sequence_links(sequence_id);
CREATE INDEX IF NOT EXISTS idx_import_runs_status ON import_runs(status);
CREATE INDEX IF NOT EXISTS idx_import_runs_token ON import_runs(token);
`

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetSequence(ctx context.Context, id string) (*model.Sequence, error) {
	var seq model.Sequence
	var entryStep *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, owner_user_id, shared, entry_step_id, next_position FROM sequences WHERE id = $1`,
		id,
	).Scan(&seq.ID, &seq.Name, &seq.OwnerUserID, &seq.Shared, &entryStep, &seq.NextPosition)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get sequence")
	}
	if entryStep != nil {
		seq.EntryStepID = *entryStep
	}
	return &seq, nil
}

func (s *PostgresStore) BumpSequenceCounter(ctx context.Context, sequenceID string, delta int) (int, error) {
	var next int
	err := s.pool.QueryRow(ctx,
		`UPDATE sequences SET next_position = next_position + $1 WHERE id = $2 RETURNING next_position`,
		delta, sequenceID,
	).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, eris.Errorf("postgres: bump counter: sequence %s not found", sequenceID)
	}
	if err != nil {
		return 0, eris.Wrap(err, "postgres: bump counter")
	}
	return next, nil
}

func (s *PostgresStore) CheckSequenceAccess(ctx context.Context, sequenceID, userID string) (bool, error) {
	var allowed bool
	err := s.pool.QueryRow(ctx,
		`SELECT shared OR owner_user_id = $2 FROM sequences WHERE id = $1`,
		sequenceID, userID,
	).Scan(&allowed)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "postgres: check sequence access")
	}
	return allowed, nil
}

func (s *PostgresStore) GetLeadByExternalID(ctx context.Context, source, externalID string) (*model.Lead, error) {
	var lead model.Lead
	var jobPosition, linkedin *string
	var accountJSON, emailsJSON, phonesJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, source, external_id, first_name, last_name, job_position, linkedin_url, account, emails, phones, owner_user_id, created_at FROM leads WHERE source = $1 AND external_id = $2`,
		source, externalID,
	).Scan(&lead.ID, &lead.Source, &lead.ExternalID, &lead.FirstName, &lead.LastName,
		&jobPosition, &linkedin, &accountJSON, &emailsJSON, &phonesJSON, &lead.OwnerUserID, &lead.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get lead by external id")
	}
	if jobPosition != nil {
		lead.JobPosition = *jobPosition
	}
	if linkedin != nil {
		lead.LinkedinURL = *linkedin
	}
	if len(accountJSON) > 0 {
		if err := json.Unmarshal(accountJSON, &lead.Account); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal lead account")
		}
	}
	if len(emailsJSON) > 0 {
		if err := json.Unmarshal(emailsJSON, &lead.Emails); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal lead emails")
		}
	}
	if len(phonesJSON) > 0 {
		if err := json.Unmarshal(phonesJSON, &lead.Phones); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal lead phones")
		}
	}
	return &lead, nil
}

func (s *PostgresStore) GetLinks(ctx context.Context, leadID, sequenceID string) ([]model.SequenceLink, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lead_id, sequence_id, step_id, position, state, created_at FROM sequence_links WHERE lead_id = $1 AND sequence_id = $2 ORDER BY position`,
		leadID, sequenceID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get links")
	}
	defer rows.Close()

	var links []model.SequenceLink
	for rows.Next() {
		var link model.SequenceLink
		var stepID *string
		if err := rows.Scan(&link.ID, &link.LeadID, &link.SequenceID, &stepID, &link.Position, &link.State, &link.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan link")
		}
		if stepID != nil {
			link.StepID = *stepID
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate links")
	}
	return links, nil
}

func (s *PostgresStore) CreateLead(ctx context.Context, lead *model.Lead) (string, error) {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}

	accountJSON, err := json.Marshal(lead.Account)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal lead account")
	}
	emailsJSON, err := json.Marshal(lead.Emails)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal lead emails")
	}
	phonesJSON, err := json.Marshal(lead.Phones)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal lead phones")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO leads (id, source, external_id, first_name, last_name, job_position, linkedin_url, account, emails, phones, owner_user_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		lead.ID, lead.Source, lead.ExternalID, lead.FirstName, lead.LastName,
		nullable(lead.JobPosition), nullable(lead.LinkedinURL),
		accountJSON, emailsJSON, phonesJSON, lead.OwnerUserID, lead.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return "", ErrDuplicate
	}
	if err != nil {
		return "", eris.Wrap(err, "postgres: create lead")
	}
	return lead.ID, nil
}

func (s *PostgresStore) CreateLink(ctx context.Context, link *model.SequenceLink) (string, error) {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	if link.State == "" {
		link.State = model.LinkStateActive
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sequence_links (id, lead_id, sequence_id, step_id, position, state, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		link.ID, link.LeadID, link.SequenceID, nullable(link.StepID), link.Position, link.State, link.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return "", ErrDuplicate
	}
	if err != nil {
		return "", eris.Wrap(err, "postgres: create link")
	}
	return link.ID, nil
}

func (s *PostgresStore) GetUserByCRMID(ctx context.Context, crmID string) (*model.User, error) {
	var user model.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, crm_id, name, email FROM users WHERE crm_id = $1`,
		crmID,
	).Scan(&user.ID, &user.CRMID, &user.Name, &user.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get user by crm id")
	}
	return &user, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *model.ImportRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now
	if run.Status == "" {
		run.Status = model.RunStatusQueued
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO import_runs (id, token, sequence_id, source, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Token, run.SequenceID, run.Source, run.Status, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: create run")
	}
	return nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE import_runs SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: update run status")
	}
	return nil
}

func (s *PostgresStore) UpdateRunResult(ctx context.Context, runID string, result *model.ImportResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run result")
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE import_runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		resultJSON, model.RunStatusComplete, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: update run result")
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, msg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE import_runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		model.RunStatusFailed, msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: fail run")
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.ImportRun, error) {
	var run model.ImportRun
	var resultJSON []byte
	var errMsg *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, token, sequence_id, source, status, result, error, created_at, updated_at FROM import_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.Token, &run.SequenceID, &run.Source, &run.Status, &resultJSON, &errMsg, &run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get run")
	}
	if len(resultJSON) > 0 {
		run.Result = &model.ImportResult{}
		if err := json.Unmarshal(resultJSON, run.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run result")
		}
	}
	if errMsg != nil {
		run.Error = *errMsg
	}
	return &run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ImportRun, error) {
	query := `SELECT id, token, sequence_id, source, status, result, error, created_at, updated_at FROM import_runs`
	var args []any
	var where []string

	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.SequenceID != "" {
		args = append(args, filter.SequenceID)
		where = append(where, "sequence_id = $"+strconv.Itoa(len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.ImportRun
	for rows.Next() {
		var run model.ImportRun
		var resultJSON []byte
		var errMsg *string
		if err := rows.Scan(&run.ID, &run.Token, &run.SequenceID, &run.Source, &run.Status, &resultJSON, &errMsg, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if len(resultJSON) > 0 {
			run.Result = &model.ImportResult{}
			if err := json.Unmarshal(resultJSON, run.Result); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal run result")
			}
		}
		if errMsg != nil {
			run.Error = *errMsg
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate runs")
	}
	return runs, nil
}

// nullable converts "" to a NULL parameter.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
