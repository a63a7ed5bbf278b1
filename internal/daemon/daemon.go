package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/taskdeps/internal/deps"
	"github.com/kazz187/taskdeps/internal/event"
	"github.com/kazz187/taskdeps/pkg/cerr"
	"github.com/kazz187/taskdeps/pkg/clog"
	"github.com/kazz187/taskdeps/pkg/panicerr"
)

// Config holds daemon configuration
type Config struct {
	Address            string `yaml:"address"`
	Port               int    `yaml:"port"`
	TasksFile          string `yaml:"tasks_file"`
	DefaultConcurrency int    `yaml:"default_concurrency"`
}

// DefaultConfig returns default daemon configuration
func DefaultConfig() *Config {
	return &Config{
		Address:            "localhost",
		Port:               8080,
		TasksFile:          ".taskdeps/tasks.yaml",
		DefaultConcurrency: 3,
	}
}

// Daemon serves the dependency engine over HTTP and revalidates the
// tasks file when it changes on disk.
type Daemon struct {
	config     *Config
	httpServer *http.Server
	service    *deps.Service
	bus        *event.Bus
	watcher    *Watcher
}

// New creates a new daemon instance
func New(config *Config, service *deps.Service, bus *event.Bus) *Daemon {
	if config == nil {
		config = DefaultConfig()
	}
	return &Daemon{
		config:  config,
		service: service,
		bus:     bus,
		watcher: NewWatcher(config.TasksFile, service),
	}
}

// Start starts the HTTP server and the file watcher, then blocks until
// the context is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	go func() {
		run := panicerr.Safe(func() error {
			d.watcher.Run(ctx)
			return nil
		})
		if err := run(); err != nil {
			slog.Error("watcher stopped", clog.Err(err))
		}
	}()

	addr := fmt.Sprintf("%s:%d", d.config.Address, d.config.Port)
	handler := cors.Default().Handler(d.router())
	d.httpServer = &http.Server{
		Addr:         addr,
		Handler:      h2c.NewHandler(handler, &http2.Server{}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("taskdeps daemon starting", slog.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := d.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		return d.Stop(context.Background())
	}
}

// Stop stops the daemon
func (d *Daemon) Stop(ctx context.Context) error {
	if d.httpServer != nil {
		if err := d.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}
	if d.bus != nil {
		d.bus.Wait()
	}
	return nil
}

func (d *Daemon) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/tasks", d.handleTasks)
		r.Get("/issues", d.handleIssues)
		r.Post("/fix", d.handleFix)
		r.Get("/next", d.handleNext)
	})
	return r
}

func (d *Daemon) handleTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := d.service.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"tasks": tasks})
}

func (d *Daemon) handleIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := d.service.Validate()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"issues": issues})
}

func (d *Daemon) handleFix(w http.ResponseWriter, r *http.Request) {
	report, err := d.service.Fix(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"changed":   report.Changed(),
		"mutations": report.Mutations,
		"residual":  report.Residual,
	})
}

func (d *Daemon) handleNext(w http.ResponseWriter, r *http.Request) {
	concurrency := d.config.DefaultConcurrency
	if raw := r.URL.Query().Get("concurrency"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, cerr.NewError(cerr.InvalidArgument, "concurrency must be an integer", err))
			return
		}
		concurrency = n
	}

	nodes, err := d.service.Next(r.Context(), concurrency)
	if err != nil {
		writeError(w, err)
		return
	}

	type item struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Priority string `json:"priority"`
	}
	items := make([]item, len(nodes))
	for i, n := range nodes {
		items[i] = item{ID: n.Ref.String(), Title: n.Title(), Priority: string(n.Priority())}
	}
	writeJSON(w, map[string]any{"tasks": items})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", clog.Err(err))
	}
}

type httpError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := cerr.CodeOf(err)
	// Warning-grade codes (duplicate edge, absent dependency) log below
	// error so speculative client calls don't pollute the daemon log.
	slog.Log(context.Background(), clog.CodeToLevel(code), "request failed",
		slog.String("code", code.String()), clog.Err(err))
	status := http.StatusInternalServerError
	switch code {
	case cerr.InvalidArgument, cerr.OutOfRange:
		status = http.StatusBadRequest
	case cerr.NotFound:
		status = http.StatusNotFound
	case cerr.AlreadyExists, cerr.FailedPrecondition:
		status = http.StatusConflict
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(httpError{Code: code.String(), Message: err.Error()}); encErr != nil {
		slog.Error("failed to encode error response", clog.Err(encErr))
	}
}
