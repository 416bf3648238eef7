package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cadence-sync/internal/importer"
	"github.com/sells-group/cadence-sync/internal/model"
	"github.com/sells-group/cadence-sync/internal/progress"
	"github.com/sells-group/cadence-sync/internal/store"
	sfpkg "github.com/sells-group/cadence-sync/pkg/salesforce"
)

// importEnv holds the initialized store and importer shared by the import,
// serve, and runs commands.
type importEnv struct {
	Store    store.Store
	Importer *importer.Importer
	Reporter progress.Reporter
}

// Close releases resources held by the environment.
func (e *importEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.SQLitePath
		if dsn == "" {
			dsn = "cadence-sync.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv sets up the store and builds the importer. Callers should defer
// env.Close().
func initEnv(ctx context.Context, reporter progress.Reporter) (*importEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	imp := importer.New(st,
		importer.WithReporter(reporter),
		importer.WithWindowSize(cfg.Import.WindowSize),
		importer.WithMaterializeTimeout(time.Duration(cfg.Import.MaterializeTimeoutSecs)*time.Second),
	)

	return &importEnv{Store: st, Importer: imp, Reporter: reporter}, nil
}

// initSalesforce builds the CRM adapter for the given field map, or
// AuthRequiredError when credentials are not configured.
func initSalesforce(ctx context.Context, object string, fm *model.FieldMap) (sfpkg.IntegrationAdapter, error) {
	provider := sfpkg.NewJWTProvider(sfpkg.JWTCredentials{
		Domain:      cfg.Salesforce.LoginURL,
		Username:    cfg.Salesforce.Username,
		ConsumerKey: cfg.Salesforce.ClientID,
		KeyPath:     cfg.Salesforce.KeyPath,
		RateLimit:   cfg.Salesforce.RateLimit,
	})
	client, err := provider.ClientFor(ctx, "salesforce")
	if err != nil {
		return nil, err
	}
	return sfpkg.NewAdapter(client, object, fm,
		sfpkg.WithPageSize(cfg.Import.BulkFetchPageSize)), nil
}

// loadFieldMap reads a field map from a YAML (or JSON) file.
func loadFieldMap(path string) (*model.FieldMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read field map")
	}
	var fm model.FieldMap
	if err := yaml.Unmarshal(data, &fm); err != nil {
		return nil, eris.Wrap(err, "parse field map")
	}
	return &fm, nil
}
