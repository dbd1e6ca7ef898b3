package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ikasa-digital/leads-cli/internal/ledger"
	"github.com/ikasa-digital/leads-cli/internal/pipeline"
	"github.com/ikasa-digital/leads-cli/pkg/cnpja"
	"github.com/ikasa-digital/leads-cli/pkg/fourc"
	"github.com/ikasa-digital/leads-cli/pkg/gclick"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the capture API over HTTP",
	Long:  "Exposes lead stats, per-day lead listings and an endpoint to trigger a capture run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate(); err != nil {
			return err
		}

		led, err := initLedger(ctx)
		if err != nil {
			return err
		}
		defer led.Close() //nolint:errcheck
		if err := led.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate ledger")
		}

		registry := initRegistry()
		crm := initCRM()
		notifier := initNotifier()
		p := pipeline.New(cfg, led, registry, crm, notifier)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(led, p, registry, crm, notifier, cfg.Stats.WindowDays),
			ReadHeaderTimeout: 10 * time.Second,
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

func newRouter(led ledger.Ledger, p *pipeline.Pipeline, registry cnpja.Client, crm fourc.Client, notifier gclick.Client, defaultWindow int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		var mu sync.Mutex
		services := map[string]bool{}
		record := func(name string, ok bool) {
			mu.Lock()
			services[name] = ok
			mu.Unlock()
		}

		g, gctx := errgroup.WithContext(req.Context())
		g.Go(func() error { record("cnpja", registry.HealthCheck(gctx)); return nil })
		g.Go(func() error { record("4c-crm", crm.HealthCheck(gctx)); return nil })
		g.Go(func() error { record("gclick", notifier.HealthCheck(gctx)); return nil })
		_ = g.Wait()

		status := http.StatusOK
		state := "ok"
		for _, up := range services {
			if !up {
				status = http.StatusServiceUnavailable
				state = "degraded"
			}
		}
		writeJSON(w, status, map[string]any{"status": state, "services": services})
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		window := defaultWindow
		if q := req.URL.Query().Get("window"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "window must be a positive integer"})
				return
			}
			window = n
		}

		stats, err := led.Stats(req.Context(), window)
		if err != nil {
			zap.L().Error("serve: stats failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})

	r.Get("/leads", func(w http.ResponseWriter, req *http.Request) {
		date := req.URL.Query().Get("date")
		if date == "" {
			date = time.Now().Format("2006-01-02")
		}
		if _, err := time.Parse("2006-01-02", date); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
			return
		}

		records, err := led.ListByDate(req.Context(), date)
		if err != nil {
			zap.L().Error("serve: leads failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "leads unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, records)
	})

	r.Post("/run", func(w http.ResponseWriter, req *http.Request) {
		// Capture runs outlive the request.
		go func() {
			summary, err := p.Run(context.Background())
			if err != nil {
				zap.L().Error("serve: capture run failed", zap.Error(err))
				return
			}
			zap.L().Info("serve: capture run complete",
				zap.String("run_id", summary.RunID),
				zap.Int("found", summary.Found),
				zap.Int("processed", summary.Processed),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	})

	return r
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
