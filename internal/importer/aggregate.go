package importer

import (
	"github.com/sells-group/cadence-sync/internal/model"
)

// ResultAggregator collects per-record outcomes into running totals and
// append-only element lists. It is fed between windows, after each window's
// barrier, so entries stay in input order and no locking is needed; prior
// entries are never mutated.
type ResultAggregator struct {
	sequenceID string
	result     model.ImportResult
}

// NewResultAggregator creates an empty aggregator for one run.
func NewResultAggregator(sequenceID string) *ResultAggregator {
	return &ResultAggregator{
		sequenceID: sequenceID,
		result: model.ImportResult{
			ElementSuccess: []model.ElementSuccess{},
			ElementError:   []model.ElementError{},
		},
	}
}

// Success records one materialized candidate.
func (a *ResultAggregator) Success(c *model.Candidate) {
	a.result.TotalSuccess++
	a.result.ElementSuccess = append(a.result.ElementSuccess, model.ElementSuccess{
		ExternalID: c.ExternalID,
		SequenceID: a.sequenceID,
		InternalID: c.InternalID,
	})
}

// Error records one failed candidate with its message and category tag.
func (a *ResultAggregator) Error(c *model.Candidate, msg string, kind ErrorKind) {
	a.result.TotalError++
	a.result.ElementError = append(a.result.ElementError, model.ElementError{
		ExternalID: c.ExternalID,
		SequenceID: a.sequenceID,
		Message:    msg,
		Kind:       string(kind),
	})
}

// Result returns the aggregated outcome.
func (a *ResultAggregator) Result() *model.ImportResult {
	return &a.result
}
