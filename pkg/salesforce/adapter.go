package salesforce

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cadence-sync/internal/model"
)

// DefaultPageSize is the keyset page size used by BulkFetch.
const DefaultPageSize = 200

// AuthRequiredError indicates the caller has no usable credentials for the
// external system and must (re)authorize before importing from it.
type AuthRequiredError struct {
	Kind string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("%s: authorization required", e.Kind)
}

// IsAuthRequired reports whether err is an AuthRequiredError.
func IsAuthRequired(err error) bool {
	var authErr *AuthRequiredError
	return errors.As(err, &authErr)
}

// CredentialProvider yields a ready-to-use client for the external system,
// or AuthRequiredError when no valid credentials are stored.
type CredentialProvider interface {
	ClientFor(ctx context.Context, kind string) (Client, error)
}

// IntegrationAdapter fetches external records from a connected system in
// the generic row form the import pipeline consumes.
type IntegrationAdapter interface {
	// FetchRecord returns one record by external id, or nil when absent.
	FetchRecord(ctx context.Context, externalID string) (model.ExternalRecord, error)
	// BulkFetch returns up to limit records (0 = no cap), paging internally.
	BulkFetch(ctx context.Context, limit int) ([]model.ExternalRecord, error)
	// CredentialKind names the credential namespace, e.g. "salesforce".
	CredentialKind() string
}

// Adapter is the Salesforce IntegrationAdapter. It queries the SObject the
// field map targets and flattens each result row into an ExternalRecord.
type Adapter struct {
	client   Client
	builder  *QueryBuilder
	pageSize int
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithPageSize overrides the keyset page size used by BulkFetch.
func WithPageSize(n int) AdapterOption {
	return func(a *Adapter) {
		if n > 0 {
			a.pageSize = n
		}
	}
}

// NewAdapter creates an adapter over the given client, fetching the named
// SObject with exactly the fields the field map references.
func NewAdapter(client Client, object string, fm *model.FieldMap, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		client:   client,
		builder:  NewQueryBuilder(object, fm),
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CredentialKind implements IntegrationAdapter.
func (a *Adapter) CredentialKind() string { return "salesforce" }

// FetchRecord implements IntegrationAdapter.
func (a *Adapter) FetchRecord(ctx context.Context, externalID string) (model.ExternalRecord, error) {
	var rows []map[string]any
	if err := a.client.Query(ctx, a.builder.ByID(externalID), &rows); err != nil {
		return nil, eris.Wrapf(err, "sf: fetch record %s", externalID)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return flatten(rows[0]), nil
}

// BulkFetch implements IntegrationAdapter. Pages are fetched in Id order
// until the source is exhausted or the limit is reached.
func (a *Adapter) BulkFetch(ctx context.Context, limit int) ([]model.ExternalRecord, error) {
	var (
		records []model.ExternalRecord
		afterID string
	)
	for {
		page := a.pageSize
		if limit > 0 && limit-len(records) < page {
			page = limit - len(records)
		}
		if page <= 0 {
			return records, nil
		}

		var rows []map[string]any
		if err := a.client.Query(ctx, a.builder.Page(afterID, page), &rows); err != nil {
			return nil, eris.Wrap(err, "sf: bulk fetch")
		}
		for _, row := range rows {
			rec := flatten(row)
			records = append(records, rec)
			if id := rec["Id"]; id != "" {
				afterID = id
			}
		}
		if len(rows) < page {
			return records, nil
		}
	}
}

// flatten converts one decoded SOQL row into string-keyed form. Salesforce
// decorates rows with an "attributes" object; it is dropped, along with any
// other nested values the field map cannot reference.
func flatten(row map[string]any) model.ExternalRecord {
	rec := make(model.ExternalRecord, len(row))
	for k, v := range row {
		if k == "attributes" {
			continue
		}
		switch val := v.(type) {
		case nil:
			rec[k] = ""
		case string:
			rec[k] = val
		case float64, bool, int, int64:
			rec[k] = fmt.Sprint(val)
		default:
			// nested objects are not addressable by a flat field map
		}
	}
	return rec
}
