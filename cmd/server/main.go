package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pathlight/pathlight/internal/achievement"
	"github.com/pathlight/pathlight/internal/grading"
	"github.com/pathlight/pathlight/internal/grading/sandbox"
	"github.com/pathlight/pathlight/internal/graph"
	"github.com/pathlight/pathlight/internal/platform/cache"
	"github.com/pathlight/pathlight/internal/platform/config"
	"github.com/pathlight/pathlight/internal/platform/database"
	"github.com/pathlight/pathlight/internal/service"
	"github.com/pathlight/pathlight/internal/srs"
	"github.com/pathlight/pathlight/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close()

	mux := newMux(app)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// app holds the wired services and the connections they own.
type app struct {
	db      *database.DB
	cache   *cache.Cache
	reviews *service.ReviewService
	plans   *service.PlanService
	grades  *service.GradeService
}

func (a *app) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Warn("closing cache", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

// buildApp dials the backing stores and wires the engine together.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	db, err := database.New(ctx, database.Config{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	a.db = db
	if err := store.Migrate(ctx, db.Pool); err != nil {
		a.close()
		return nil, err
	}

	// The cache is optional; reviews fall back to the progress store.
	var due *store.DueCache
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Warn("cache unavailable, due queue disabled", "error", err)
		} else {
			a.cache = c
			due = store.NewDueCache(c.Client)
		}
	}

	graphs, err := graph.NewLoader(cfg.ContentPath)
	if err != nil {
		a.close()
		return nil, err
	}
	bank, err := grading.LoadBank(cfg.ContentPath)
	if err != nil {
		a.close()
		return nil, err
	}
	rules, err := achievement.LoadRules(cfg.RulesPath)
	if err != nil {
		a.close()
		return nil, err
	}

	var runner sandbox.Runner
	if cfg.Sandbox.URL != "" {
		runner = sandbox.NewClient(sandbox.ClientConfig{
			URL:     cfg.Sandbox.URL,
			Token:   cfg.Sandbox.Token,
			Timeout: time.Duration(cfg.Sandbox.TimeoutSeconds) * time.Second,
		})
	} else {
		slog.Warn("no sandbox configured, code grading disabled")
	}

	progress := store.NewPostgresProgressStore(db.Pool)
	submissions := store.NewPostgresSubmissionStore(db.Pool)
	unlocks := store.NewPostgresUnlockStore(db.Pool)

	a.reviews = service.NewReviewService(progress, srs.NewScheduler(cfg.Mastery.Thresholds()), due)
	a.plans = service.NewPlanService(graphs, progress)
	a.grades = service.NewGradeService(
		bank,
		grading.NewGrader(runner),
		progress,
		submissions,
		unlocks,
		achievement.NewEngine(rules),
		nil,
	)
	return a, nil
}

// newMux creates the HTTP router with health check endpoints.
func newMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", a.handleReadyz)
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (a *app) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if a.db != nil {
		if err := a.db.HealthCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable","reason":"database"}`))
			return
		}
	}
	if a.cache != nil {
		if err := a.cache.HealthCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable","reason":"cache"}`))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// setupLogger configures the process-wide slog default.
func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
