package main

import (
	"context"
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
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/briefing-service/internal/briefing"
	"github.com/sells-group/briefing-service/internal/monitoring"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve briefing sessions over HTTP",
	Long:  "Hosts one poll session per authenticated user and exposes the briefing record, onboarding phase, and start/retry/cancel operations.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		journal := openJournal(ctx)
		if journal != nil {
			defer journal.Close() //nolint:errcheck
		}

		manager := briefing.NewManager(newPollerFactory(journal, nil))
		defer manager.Shutdown()

		var collector *monitoring.Collector
		if journal != nil {
			collector = monitoring.NewCollector(journal)
		}

		router := buildRouter(ctx, manager, collector)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		if collector != nil {
			checker := monitoring.NewChecker(collector, 5*time.Minute, 24)
			g.Go(func() error {
				checker.Run(gctx)
				return nil
			})
		}

		return g.Wait()
	},
}

// buildRouter assembles the HTTP surface. sessionCtx outlives individual
// requests: poll sessions started by a handler must not die with the request.
func buildRouter(sessionCtx context.Context, manager *briefing.Manager, collector *monitoring.Collector) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		if collector == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "journal unavailable"})
			return
		}
		snap, err := collector.Collect(req.Context(), 24)
		if err != nil {
			zap.L().Error("metrics collection failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "collect failed"})
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})

	r.Route("/briefing", func(r chi.Router) {
		r.Get("/", withToken(func(w http.ResponseWriter, _ *http.Request, token string) {
			writeJSON(w, http.StatusOK, manager.Snapshot(token))
		}))
		r.Post("/start", withToken(func(w http.ResponseWriter, _ *http.Request, token string) {
			writeJSON(w, http.StatusAccepted, manager.Start(sessionCtx, token))
		}))
		r.Post("/retry", withToken(func(w http.ResponseWriter, _ *http.Request, token string) {
			writeJSON(w, http.StatusAccepted, manager.Retry(sessionCtx, token))
		}))
		r.Post("/cancel", withToken(func(w http.ResponseWriter, _ *http.Request, token string) {
			manager.Cancel(token)
			writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
		}))
	})

	return r
}

// withToken extracts the caller's session cookie and rejects requests
// without one. The token scopes the briefing session, so an absent cookie
// means there is nothing to poll on the caller's behalf.
func withToken(h func(w http.ResponseWriter, r *http.Request, token string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(cfg.Profile.SessionCookie)
		if err != nil || c.Value == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing session cookie"})
			return
		}
		h(w, r, c.Value)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
