package importer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/cadence-sync/internal/model"
	"github.com/sells-group/cadence-sync/internal/progress"
)

// DefaultWindowSize is the number of records materialized concurrently
// before the pipeline advances.
const DefaultWindowSize = 10

// MaterializeFunc creates or links one accepted candidate, setting its
// InternalID on success. Errors are per-record and never abort the window.
type MaterializeFunc func(ctx context.Context, rc *RunContext, c *model.Candidate) error

// BatchExecutor drives bounded-concurrency materialization. Candidates are
// partitioned into fixed-size windows; within a window every materialize
// call runs concurrently and the window only advances once all of them have
// settled. Windows themselves run sequentially, which keeps the sequence
// counter a single write per window and the owner cache free of races.
type BatchExecutor struct {
	windowSize  int
	timeout     time.Duration
	assigner    *SequenceAssigner
	reporter    progress.Reporter
	materialize MaterializeFunc
}

// NewBatchExecutor wires an executor. A timeout of zero disables the
// per-record materialize deadline.
func NewBatchExecutor(windowSize int, timeout time.Duration, assigner *SequenceAssigner, reporter progress.Reporter, materialize MaterializeFunc) *BatchExecutor {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &BatchExecutor{
		windowSize:  windowSize,
		timeout:     timeout,
		assigner:    assigner,
		reporter:    reporter,
		materialize: materialize,
	}
}

// Run processes every candidate, window by window, feeding outcomes to the
// aggregator and emitting one progress tick per window. The progress
// counter advances once per input record regardless of outcome, so tick
// arithmetic stays consistent across error branches.
func (e *BatchExecutor) Run(ctx context.Context, rc *RunContext, cands []*model.Candidate, agg *ResultAggregator) {
	log := zap.L().With(
		zap.String("run_id", rc.RunID),
		zap.String("sequence_id", rc.Sequence.ID),
	)

	rc.Total = len(cands)

	for start := 0; start < len(cands); start += e.windowSize {
		end := min(start+e.windowSize, len(cands))
		window := cands[start:end]

		var accepted []*model.Candidate
		for _, c := range window {
			if c.Accepted() {
				accepted = append(accepted, c)
			}
		}

		// Positions are reserved and assigned in input order before the
		// window is dispatched.
		if err := e.assigner.AssignWindow(ctx, accepted); err != nil {
			log.Error("position reservation failed, failing window", zap.Error(err))
			for _, c := range accepted {
				c.Fail(statusPositionFailed)
			}
			accepted = nil
		}

		outcomes := make([]error, len(window))
		g, gCtx := errgroup.WithContext(ctx)
		for i, c := range window {
			if !c.Accepted() {
				continue
			}
			g.Go(func() error {
				mctx := gCtx
				if e.timeout > 0 {
					var cancel context.CancelFunc
					mctx, cancel = context.WithTimeout(gCtx, e.timeout)
					defer cancel()
				}
				outcomes[i] = e.materialize(mctx, rc, c)
				return nil
			})
		}
		// Window barrier: every call has settled before outcomes are read.
		_ = g.Wait()

		for i, c := range window {
			if !c.Accepted() {
				agg.Error(c, c.Status, rejectKind(c))
				continue
			}
			if err := outcomes[i]; err != nil {
				msg := recordMessage(err)
				c.Fail(msg)
				agg.Error(c, msg, RecordKind(err))
				continue
			}
			agg.Success(c)
		}

		rc.Processed += len(window)
		e.reporter.Tick(rc.Token, rc.Processed, rc.Total)

		log.Debug("window complete",
			zap.Int("processed", rc.Processed),
			zap.Int("total", rc.Total),
		)
	}
}

// rejectKind tags a candidate that never reached materialization.
func rejectKind(c *model.Candidate) ErrorKind {
	switch {
	case c.Reconciliation == model.ReconcilePresent:
		return KindAlreadyPresent
	case c.Status == model.StatusOwnerNotPresent:
		return KindOwner
	case c.Status == statusReconcileFailed:
		return KindReconciliation
	case c.Status == statusOwnerLookupFailed, c.Status == statusPositionFailed:
		return KindInternal
	default:
		return KindValidation
	}
}

// recordMessage extracts the user-facing message from a materialize error.
func recordMessage(err error) string {
	var re *RecordError
	if errors.As(err, &re) {
		return re.Msg
	}
	return "Could not create record"
}
