package importer

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cadence-sync/internal/model"
	"github.com/sells-group/cadence-sync/internal/progress"
	"github.com/sells-group/cadence-sync/internal/store"
)

// Statuses written when pipeline infrastructure, not the record itself,
// caused the failure.
const (
	statusOwnerLookupFailed = "Owner lookup failed"
	statusReconcileFailed   = "Could not check existing records"
	statusPositionFailed    = "Could not reserve cadence position"
)

// Importer is the entry point of the import pipeline. One Importer is
// shared across runs; all per-run state lives in a RunContext.
type Importer struct {
	store      store.Store
	reporter   progress.Reporter
	validate   *validator.Validate
	windowSize int
	timeout    time.Duration
}

// Option configures an Importer.
type Option func(*Importer)

// WithReporter sets the progress reporter. Default is NopReporter.
func WithReporter(r progress.Reporter) Option {
	return func(i *Importer) {
		if r != nil {
			i.reporter = r
		}
	}
}

// WithWindowSize sets how many records are materialized concurrently.
func WithWindowSize(n int) Option {
	return func(i *Importer) {
		if n > 0 {
			i.windowSize = n
		}
	}
}

// WithMaterializeTimeout bounds each materialize call. A timed-out record
// becomes that record's error, never a run abort.
func WithMaterializeTimeout(d time.Duration) Option {
	return func(i *Importer) {
		i.timeout = d
	}
}

// New creates an Importer backed by the given store.
func New(st store.Store, opts ...Option) *Importer {
	imp := &Importer{
		store:      st,
		reporter:   progress.NopReporter{},
		validate:   validator.New(),
		windowSize: DefaultWindowSize,
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// Request describes one import invocation. Records have already been
// fetched and parsed by a collaborator (CRM client, sheet reader, CSV
// parser).
type Request struct {
	FieldMap   *model.FieldMap
	SequenceID string
	Records    []model.ExternalRecord
	// Token correlates the run with its progress stream. Defaults to the
	// run id when empty.
	Token string
	// Source names the external system, e.g. "salesforce", "csv", "sheet".
	Source string
	// RunID references a run row the caller already created (status
	// queued). When empty the importer creates the row itself. The async
	// API pre-creates the row so a prerequisite failure after the
	// acknowledgement can still be recorded against it.
	RunID string
}

// Run executes the full pipeline synchronously and returns the aggregated
// result. The only errors it returns are fatal prerequisite failures,
// raised before the first window; every per-record failure is recovered
// locally and visible only in the result. Callers wanting asynchronous
// delivery run it on a goroutine and read the stream identified by the
// request token.
func (imp *Importer) Run(ctx context.Context, req Request) (*model.ImportResult, error) {
	if err := imp.checkPrerequisites(req); err != nil {
		return nil, err
	}

	seq, err := imp.store.GetSequence(ctx, req.SequenceID)
	if err != nil {
		return nil, NewPrerequisiteError(eris.Wrap(err, "importer: resolve sequence"))
	}
	if seq == nil {
		return nil, NewPrerequisiteError(eris.Errorf("importer: sequence %s not found", req.SequenceID))
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	token := req.Token
	if token == "" {
		token = runID
	}

	log := zap.L().With(
		zap.String("run_id", runID),
		zap.String("sequence_id", seq.ID),
		zap.String("source", req.Source),
	)

	if req.RunID != "" {
		if err := imp.store.UpdateRunStatus(ctx, runID, model.RunStatusRunning); err != nil {
			return nil, NewPrerequisiteError(eris.Wrap(err, "importer: mark run running"))
		}
	} else {
		run := &model.ImportRun{
			ID:         runID,
			Token:      token,
			SequenceID: seq.ID,
			Source:     req.Source,
			Status:     model.RunStatusRunning,
		}
		if err := imp.store.CreateRun(ctx, run); err != nil {
			return nil, NewPrerequisiteError(eris.Wrap(err, "importer: create run"))
		}
	}

	rc := NewRunContext(runID, token, req.Source, seq)

	log.Info("import starting", zap.Int("records", len(req.Records)))

	cands := imp.prepare(ctx, rc, req, log)

	agg := NewResultAggregator(seq.ID)
	assigner := NewSequenceAssigner(imp.store, seq.ID)
	exec := NewBatchExecutor(imp.windowSize, imp.timeout, assigner, imp.reporter, imp.materialize)
	exec.Run(ctx, rc, cands, agg)

	result := agg.Result()
	if err := imp.store.UpdateRunResult(ctx, runID, result); err != nil {
		log.Warn("failed to save run result", zap.Error(err))
	}
	imp.reporter.Final(token, result)

	log.Info("import complete",
		zap.Int("total_success", result.TotalSuccess),
		zap.Int("total_error", result.TotalError),
	)
	return result, nil
}

// checkPrerequisites rejects the whole run before any processing when the
// request is structurally unusable.
func (imp *Importer) checkPrerequisites(req Request) error {
	if req.FieldMap == nil {
		return NewPrerequisiteError(eris.New("importer: field map is required"))
	}
	if err := imp.validate.Struct(req.FieldMap); err != nil {
		return NewPrerequisiteError(eris.Wrap(err, "importer: field map"))
	}
	if req.SequenceID == "" {
		return NewPrerequisiteError(eris.New("importer: target sequence id is required"))
	}
	return nil
}

// prepare maps, validates, owner-resolves and reconciles every record.
// Empty rows are silently skipped. Failed candidates still go through owner
// resolution and reconciliation — their outcome is informative even when
// the record will not be materialized.
func (imp *Importer) prepare(ctx context.Context, rc *RunContext, req Request, log *zap.Logger) []*model.Candidate {
	var cands []*model.Candidate
	skippedEmpty := 0

	for _, rec := range req.Records {
		c := MapRecord(rec, req.FieldMap, req.Source)
		if IsEmpty(c) {
			skippedEmpty++
			continue
		}

		Validate(c)

		if err := ResolveOwner(ctx, rc, imp.store, c); err != nil {
			log.Warn("owner resolution failed",
				zap.String("external_id", c.ExternalID),
				zap.Error(err),
			)
			c.Fail(statusOwnerLookupFailed)
		}

		if err := Reconcile(ctx, rc, imp.store, c); err != nil {
			log.Warn("reconciliation failed",
				zap.String("external_id", c.ExternalID),
				zap.Error(err),
			)
			c.Fail(statusReconcileFailed)
		}

		cands = append(cands, c)
	}

	if skippedEmpty > 0 {
		log.Info("skipped empty rows", zap.Int("count", skippedEmpty))
	}
	return cands
}

// materialize creates or re-links one accepted candidate. It is invoked
// concurrently within a window; everything it touches is either candidate-
// local or safe under the store's own discipline.
func (imp *Importer) materialize(ctx context.Context, rc *RunContext, c *model.Candidate) error {
	allowed, err := imp.store.CheckSequenceAccess(ctx, rc.Sequence.ID, c.Owner.InternalUserID)
	if err != nil {
		return classifyStorageError(err, "Could not verify cadence access")
	}
	if !allowed {
		return NewRecordError(KindAccessDenied, "Owner does not have access to this cadence", nil)
	}

	leadID := c.InternalID
	if leadID == "" {
		lead := candidateToLead(c, rc.Source)
		id, err := imp.store.CreateLead(ctx, lead)
		if errors.Is(err, store.ErrDuplicate) {
			return NewRecordError(KindAlreadyPresent, "Already present in the system", err)
		}
		if err != nil {
			return classifyStorageError(err, "Could not create record")
		}
		leadID = id
	}

	link := &model.SequenceLink{
		LeadID:     leadID,
		SequenceID: rc.Sequence.ID,
		StepID:     rc.Sequence.EntryStepID,
		Position:   c.Position,
		State:      model.LinkStateActive,
	}
	if _, err := imp.store.CreateLink(ctx, link); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return NewRecordError(KindAlreadyPresent, "Already present in cadence", err)
		}
		return classifyStorageError(err, "Could not attach record to cadence")
	}

	c.InternalID = leadID
	return nil
}

// candidateToLead builds the stored entity from a candidate.
func candidateToLead(c *model.Candidate, source string) *model.Lead {
	return &model.Lead{
		Source:      source,
		ExternalID:  c.ExternalID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		JobPosition: c.JobPosition,
		LinkedinURL: c.LinkedinURL,
		Account:     c.Account,
		Emails:      c.Emails,
		Phones:      c.Phones,
		OwnerUserID: c.Owner.InternalUserID,
	}
}

// classifyStorageError distinguishes a per-record timeout from other
// storage failures.
func classifyStorageError(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewRecordError(KindTimeout, "Timed out creating record", err)
	}
	return NewRecordError(KindInternal, msg, err)
}
