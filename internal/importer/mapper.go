// Package importer implements the bulk external-record import pipeline:
// field mapping, validation, owner resolution, reconciliation against stored
// leads, sequence position assignment and windowed concurrent
// materialization with streamed progress.
package importer

import (
	"github.com/sells-group/cadence-sync/internal/model"
)

// MapRecord turns one raw external record into a canonical candidate using
// the user-configured field map. All mapped scalar values are trimmed of
// surrounding whitespace; absent source fields map to empty values.
// Candidates start out successful and accumulate their first violation as
// they move through the pipeline.
func MapRecord(rec model.ExternalRecord, fm *model.FieldMap, source string) *model.Candidate {
	cand := &model.Candidate{
		ExternalID:  rec.ExternalID(fm),
		FirstName:   rec.Get(fm.FirstName),
		LastName:    rec.Get(fm.LastName),
		JobPosition: rec.Get(fm.JobPosition),
		LinkedinURL: rec.Get(fm.LinkedinURL),
		Account: model.Account{
			Name:            rec.Get(fm.Company),
			URL:             rec.Get(fm.URL),
			Size:            rec.Get(fm.Size),
			Country:         rec.Get(fm.Country),
			ZipCode:         rec.Get(fm.ZipCode),
			Phone:           rec.Get(fm.CompanyPhoneNumber),
			IntegrationID:   rec.ExternalID(fm),
			IntegrationKind: source,
		},
		Metadata:  model.Metadata{Source: source},
		Owner:     model.Owner{ExternalOwnerID: rec.Get(fm.OwnerID)},
		IsSuccess: true,
	}

	for _, col := range fm.Emails {
		if v := rec.Get(col.ColumnName); v != "" {
			cand.Emails = append(cand.Emails, model.TypedValue{Type: col.Type, Value: v})
		}
	}
	for _, col := range fm.Phones {
		if v := rec.Get(col.ColumnName); v != "" {
			cand.Phones = append(cand.Phones, model.TypedValue{Type: col.Type, Value: v})
		}
	}

	return cand
}

// IsEmpty reports whether every mapped field of the candidate is empty.
// Empty rows are silently skipped rather than errored. The external id is an
// identity placeholder and does not count toward emptiness.
func IsEmpty(c *model.Candidate) bool {
	if c.FirstName != "" || c.LastName != "" || c.JobPosition != "" || c.LinkedinURL != "" {
		return false
	}
	if c.Owner.ExternalOwnerID != "" {
		return false
	}
	a := c.Account
	if a.Name != "" || a.URL != "" || a.Size != "" || a.Country != "" || a.ZipCode != "" || a.Phone != "" {
		return false
	}
	return len(c.Emails) == 0 && len(c.Phones) == 0
}
