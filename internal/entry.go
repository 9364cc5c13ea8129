// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/api"
	"github.com/starford/folio/internal/eventlog"
	"github.com/starford/folio/internal/journal"
	"github.com/starford/folio/internal/mcpserver"
	"github.com/starford/folio/internal/projection"
	"github.com/starford/folio/internal/sse"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/store"
)

// ErrDigestMismatch is returned by Verify when two folds of the same journal
// disagree.
var ErrDigestMismatch = errors.New("projection digests differ")

// runtime is an opened journal with its projections attached.
type runtime struct {
	db     *store.DB
	log    *eventlog.Log
	search *projection.Search
	views  *projection.Set
	svc    *journal.Service
	detach func()
}

func (rt *runtime) Close() {
	if rt.detach != nil {
		rt.detach()
	}
	rt.db.Close()
}

func openRuntime(ctx context.Context, cfg *Config, logger *slog.Logger) (*runtime, error) {
	db, err := store.Open(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	rt := &runtime{db: db}

	rt.log, err = eventlog.Open(ctx, db, eventlog.WithLogger(logger))
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}
	rt.search, err = projection.NewSearch(ctx, db, logger)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("init search: %w", err)
	}
	rt.views = projection.NewSet(rt.search)
	rt.detach, err = rt.views.Attach(ctx, rt.log)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("replay journal: %w", err)
	}
	rt.svc = journal.New(rt.log, rt.views, journal.WithLogger(logger))
	return rt, nil
}

// follow picks up events other processes appended to the database.
func (rt *runtime) follow(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	if !cfg.Journal.Follow {
		return nil
	}
	return store.Watch(ctx, rt.db.Path(), logger, func(ctx context.Context) {
		n, err := rt.svc.CatchUp(ctx)
		if err != nil {
			logger.Warn("catch up failed", slog.String("error", err.Error()))
			return
		}
		if n > 0 {
			logger.Info("caught up with external writes",
				slog.Int("events", n),
				slog.Uint64("sequence", rt.log.Sequence()))
		}
	})
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(cfg, os.Stdout)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("journal_path", cfg.Journal.Path),
		slog.Bool("follow", cfg.Journal.Follow),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	rt, err := openRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("Journal replayed", slog.Uint64("sequence", rt.log.Sequence()))

	// SSE broker, fed after the projections applied each batch.
	broker := sse.NewBroker(cfg.Journal.SyncThrottle)
	defer broker.Close()
	unsubscribe := rt.log.Subscribe(broker.PublishBatch)
	defer unsubscribe()

	apiRouter := api.NewRouter(rt.svc, rt.search, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := rt.db.Head(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","sequence":%d}`, rt.log.Sequence())
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Follow writes made by other processes.
	g.Go(func() error {
		if err := rt.follow(gCtx, cfg, logger); err != nil {
			logger.Warn("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown stops the other members of the run group once the server is
// shut down.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stderr)

	rt, err := openRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := rt.follow(gCtx, cfg, logger); err != nil {
			logger.Warn("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		logger.Info("MCP server starting", slog.Uint64("sequence", rt.log.Sequence()))
		return mcpserver.New(rt.svc, rt.search).ServeStdio()
	})
	return g.Wait()
}

// VerifyReport is the outcome of Verify.
type VerifyReport struct {
	Sequence uint64 `json:"sequence"`
	Digest   string `json:"digest"`
}

// Verify folds the journal twice, once in replay chunks and once event by
// event, and compares the projection digests.
func Verify(ctx context.Context, opts ...Option) (VerifyReport, error) {
	app, err := newApplication(opts)
	if err != nil {
		return VerifyReport{}, err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stderr)

	db, err := store.Open(cfg.Journal.Path)
	if err != nil {
		return VerifyReport{}, fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	return verify(ctx, db, logger)
}

func verify(ctx context.Context, st eventlog.Store, logger *slog.Logger) (VerifyReport, error) {
	log, err := eventlog.Open(ctx, st, eventlog.WithLogger(logger))
	if err != nil {
		return VerifyReport{}, fmt.Errorf("open journal: %w", err)
	}

	chunked := projection.NewSet()
	detach, err := chunked.Attach(ctx, log)
	if err != nil {
		return VerifyReport{}, fmt.Errorf("replay journal: %w", err)
	}
	defer detach()

	single := projection.NewSet()
	var last uint64
	for ev, err := range log.ReplayFrom(ctx, 0) {
		if err != nil {
			return VerifyReport{}, fmt.Errorf("replay journal: %w", err)
		}
		if ev.Sequence > log.Sequence() {
			break
		}
		single.Apply([]eventlog.Event{ev})
		last = ev.Sequence
	}

	want, err := chunked.Digest()
	if err != nil {
		return VerifyReport{}, err
	}
	got, err := single.Digest()
	if err != nil {
		return VerifyReport{}, err
	}
	report := VerifyReport{Sequence: last, Digest: want}
	if got != want {
		logger.Error("verify failed",
			slog.Uint64("sequence", last),
			slog.String("chunked", want),
			slog.String("single", got))
		return report, fmt.Errorf("%w at sequence %d", ErrDigestMismatch, last)
	}
	logger.Info("verify passed", slog.Uint64("sequence", last), slog.String("digest", want))
	return report, nil
}

// Export writes the journal to name under the archive directory and returns
// the number of events written.
func Export(ctx context.Context, name string, opts ...Option) (int, error) {
	app, err := newApplication(opts)
	if err != nil {
		return 0, err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stderr)

	db, err := store.Open(cfg.Journal.Path)
	if err != nil {
		return 0, fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	log, err := eventlog.Open(ctx, db, eventlog.WithLogger(logger))
	if err != nil {
		return 0, fmt.Errorf("open journal: %w", err)
	}
	archive, err := storage.NewFS(cfg.Journal.ArchivePath)
	if err != nil {
		return 0, err
	}
	n, err := storage.Export(ctx, log, archive, name)
	if err != nil {
		return 0, err
	}
	logger.Info("journal exported", slog.String("archive", name), slog.Int("events", n))
	return n, nil
}

// Import appends the events of archive name to the journal.
func Import(ctx context.Context, name string, opts ...Option) (int, error) {
	app, err := newApplication(opts)
	if err != nil {
		return 0, err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stderr)

	db, err := store.Open(cfg.Journal.Path)
	if err != nil {
		return 0, fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	archive, err := storage.NewFS(cfg.Journal.ArchivePath)
	if err != nil {
		return 0, err
	}
	n, err := storage.Import(ctx, db, archive, name)
	if err != nil {
		return 0, err
	}
	logger.Info("journal imported", slog.String("archive", name), slog.Int("events", n))
	return n, nil
}

// ListArchives returns the archives stored under the archive directory.
func ListArchives(_ context.Context, opts ...Option) ([]storage.Archive, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	archive, err := storage.NewFS(app.config.Journal.ArchivePath)
	if err != nil {
		return nil, err
	}
	return archive.List("")
}

// DeleteArchive removes archive name from the archive directory.
func DeleteArchive(_ context.Context, name string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stderr)

	archive, err := storage.NewFS(cfg.Journal.ArchivePath)
	if err != nil {
		return err
	}
	if err := archive.Delete(name); err != nil {
		return err
	}
	logger.Info("archive deleted", slog.String("archive", name), slog.String("root", archive.Root()))
	return nil
}
