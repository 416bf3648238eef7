package salesforce

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/cadence-sync/internal/model"
)

// QueryBuilder assembles SOQL for one SObject from a user field map. All
// SOQL this package issues goes through the builder so that field selection
// stays derived from the field map instead of hand-built strings scattered
// across call sites.
type QueryBuilder struct {
	object string
	fields []string
}

// NewQueryBuilder builds queries against the given SObject (Lead, Contact)
// selecting exactly the source fields the field map references.
func NewQueryBuilder(object string, fm *model.FieldMap) *QueryBuilder {
	return &QueryBuilder{
		object: object,
		fields: mappedFields(fm),
	}
}

// ByID returns a SOQL query selecting one record by its Salesforce id.
func (q *QueryBuilder) ByID(id string) string {
	return fmt.Sprintf(
		"SELECT %s FROM %s WHERE Id = '%s' LIMIT 1",
		strings.Join(q.fields, ", "), q.object, escapeSoql(id),
	)
}

// Page returns a SOQL query for one keyset page: records with Id greater
// than afterID, in Id order. Pass afterID == "" for the first page.
func (q *QueryBuilder) Page(afterID string, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(q.fields, ", "), q.object)
	if afterID != "" {
		fmt.Fprintf(&b, " WHERE Id > '%s'", escapeSoql(afterID))
	}
	fmt.Fprintf(&b, " ORDER BY Id LIMIT %d", limit)
	return b.String()
}

// mappedFields collects the distinct source field names the field map
// references, always including Id, in deterministic order.
func mappedFields(fm *model.FieldMap) []string {
	set := map[string]bool{"Id": true}
	add := func(f string) {
		if f != "" {
			set[f] = true
		}
	}

	add(fm.ExternalIDField)
	add(fm.FirstName)
	add(fm.LastName)
	add(fm.Company)
	add(fm.OwnerID)
	add(fm.LinkedinURL)
	add(fm.JobPosition)
	add(fm.Country)
	add(fm.ZipCode)
	add(fm.Size)
	add(fm.URL)
	add(fm.CompanyPhoneNumber)
	for _, col := range fm.Emails {
		add(col.ColumnName)
	}
	for _, col := range fm.Phones {
		add(col.ColumnName)
	}

	fields := make([]string, 0, len(set))
	for f := range set {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
