package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ivr-analytics/internal/flow"
	"github.com/sells-group/ivr-analytics/internal/ingest"
	"github.com/sells-group/ivr-analytics/internal/model"
	"github.com/sells-group/ivr-analytics/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the IVR webhook and reporting API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.String("driver", cfg.Store.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(st store.Store) http.Handler {
	ing := ingest.New(st)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Exotel Passthru applets hit one URL per IVR step, GET or POST.
	r.HandleFunc("/webhook/ivr/{step}", func(w http.ResponseWriter, r *http.Request) {
		handleStepWebhook(ing, w, r)
	})

	r.Get("/webhook/test", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "active",
			"message":   "IVR webhook server is running",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	r.Get("/api/ivr/paths", func(w http.ResponseWriter, r *http.Request) {
		handleListPaths(st, w, r)
	})

	r.Get("/api/ivr/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := st.Stats(r.Context())
		if err != nil {
			zap.L().Error("stats query failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats query failed"})
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})

	return r
}

func handleStepWebhook(ing *ingest.Ingestor, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	// FormValue reads query params and, for POST, the form body.
	ev := model.StepEvent{
		CallSid: r.FormValue("CallSid"),
		Step:    chi.URLParam(r, "step"),
		Digit:   r.FormValue("digits"),
		From:    r.FormValue("From"),
		To:      r.FormValue("To"),
	}

	if err := ing.Record(r.Context(), ev); err != nil {
		switch {
		case eris.Is(err, ingest.ErrMissingCallID):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "CallSid is required"})
		case eris.Is(err, store.ErrInvalidStep):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown IVR step: %s", ev.Step)})
		default:
			zap.L().Error("webhook ingest failed",
				zap.String("call_sid", ev.CallSid),
				zap.String("step", ev.Step),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record IVR input"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  fmt.Sprintf("IVR input recorded for %s", ev.Step),
		"call_sid": ev.CallSid,
		"digit":    flow.CleanDigit(ev.Digit),
	})
}

func handleListPaths(st store.Store, w http.ResponseWriter, r *http.Request) {
	filter := store.PathFilter{
		StartDate: r.URL.Query().Get("start_date"),
		EndDate:   r.URL.Query().Get("end_date"),
	}

	paths, err := st.ListPaths(r.Context(), filter)
	if err != nil {
		zap.L().Error("list paths failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list paths"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(paths),
		"data":    paths,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
