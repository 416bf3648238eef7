package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cadence-sync/internal/importer"
	"github.com/sells-group/cadence-sync/internal/model"
	"github.com/sells-group/cadence-sync/internal/progress"
	"github.com/sells-group/cadence-sync/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the import API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker := progress.NewBroker()
		env, err := initEnv(ctx, broker)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env, broker),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// importRequest is the POST /api/imports body.
type importRequest struct {
	FieldMap   *model.FieldMap        `json:"field_map"`
	SequenceID string                 `json:"sequence_id"`
	Source     string                 `json:"source"`
	Records    []model.ExternalRecord `json:"records"`
	// Synchronous runs the import inline and returns the full result.
	// Otherwise the server replies immediately with a run token the client
	// can subscribe to on /ws/runs/{token}.
	Synchronous bool `json:"synchronous"`
}

func newRouter(env *importEnv, broker *progress.Broker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/imports", func(w http.ResponseWriter, req *http.Request) {
		var body importRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.Source == "" {
			body.Source = "api"
		}

		if body.Synchronous {
			result, err := env.Importer.Run(req.Context(), importer.Request{
				FieldMap:   body.FieldMap,
				SequenceID: body.SequenceID,
				Records:    body.Records,
				Source:     body.Source,
			})
			if err != nil {
				writeError(w, prereqStatus(err), err.Error())
				return
			}
			writeJSON(w, http.StatusOK, result)
			return
		}

		// The run row exists before the acknowledgement so a failure on the
		// detached goroutine still has somewhere to land.
		token := uuid.NewString()
		run := &model.ImportRun{
			Token:      token,
			SequenceID: body.SequenceID,
			Source:     body.Source,
			Status:     model.RunStatusQueued,
		}
		if err := env.Store.CreateRun(req.Context(), run); err != nil {
			writeError(w, http.StatusInternalServerError, "could not create run")
			return
		}

		go func() {
			// Detached from the request context so client disconnects do
			// not abort the run.
			if _, err := env.Importer.Run(context.Background(), importer.Request{
				FieldMap:   body.FieldMap,
				SequenceID: body.SequenceID,
				Records:    body.Records,
				Token:      token,
				Source:     body.Source,
				RunID:      run.ID,
			}); err != nil {
				zap.L().Error("import failed",
					zap.String("run_id", run.ID),
					zap.Error(err),
				)
				if ferr := env.Store.FailRun(context.Background(), run.ID, err.Error()); ferr != nil {
					zap.L().Warn("could not record run failure",
						zap.String("run_id", run.ID),
						zap.Error(ferr),
					)
				}
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"token":  token,
			"run_id": run.ID,
		})
	})

	r.Get("/api/runs", func(w http.ResponseWriter, req *http.Request) {
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		filter := store.RunFilter{
			Status:     model.RunStatus(req.URL.Query().Get("status")),
			SequenceID: req.URL.Query().Get("sequence"),
			Limit:      limit,
		}
		runs, err := env.Store.ListRuns(req.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list runs failed")
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/api/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		run, err := env.Store.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "get run failed")
			return
		}
		if run == nil {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	r.Get("/ws/runs/{token}", func(w http.ResponseWriter, req *http.Request) {
		progress.WSHandler(broker, chi.URLParam(req, "token"))(w, req)
	})

	return r
}

// prereqStatus maps a fatal import error to an HTTP status.
func prereqStatus(err error) int {
	if importer.IsPrerequisite(err) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
