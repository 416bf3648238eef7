package importer

import (
	"errors"
)

// ErrorKind tags a per-record failure with a machine-readable category. It
// is carried into the aggregated result's element_error entries.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindOwner          ErrorKind = "owner-not-present"
	KindReconciliation ErrorKind = "reconciliation"
	KindAccessDenied   ErrorKind = "access-denied"
	KindAlreadyPresent ErrorKind = "already-present"
	KindTimeout        ErrorKind = "timeout"
	KindInternal       ErrorKind = "internal"
)

// RecordError is a per-record failure. It never aborts the window or the
// run; it is recorded into the aggregated result and recovered locally.
type RecordError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *RecordError) Error() string {
	return e.Msg
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// NewRecordError builds a per-record failure with the given category.
func NewRecordError(kind ErrorKind, msg string, err error) *RecordError {
	return &RecordError{Kind: kind, Msg: msg, Err: err}
}

// PrerequisiteError is fatal: it is raised before the first window starts
// (unresolvable field map, missing target sequence, missing credentials) and
// aborts the entire run. It is the only error ever returned synchronously.
type PrerequisiteError struct {
	Err error
}

func (e *PrerequisiteError) Error() string {
	return e.Err.Error()
}

func (e *PrerequisiteError) Unwrap() error {
	return e.Err
}

// NewPrerequisiteError wraps err as a fatal run-level failure.
func NewPrerequisiteError(err error) *PrerequisiteError {
	return &PrerequisiteError{Err: err}
}

// IsPrerequisite reports whether err (or anything it wraps) is fatal to the
// run rather than to a single record.
func IsPrerequisite(err error) bool {
	var pe *PrerequisiteError
	return errors.As(err, &pe)
}

// RecordKind extracts the error category from a per-record failure,
// defaulting to KindInternal for untagged errors.
func RecordKind(err error) ErrorKind {
	var re *RecordError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindInternal
}
