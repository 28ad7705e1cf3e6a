package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/eugenenazirov/siteconfig/internal/api"
	"github.com/eugenenazirov/siteconfig/internal/config"
	"github.com/eugenenazirov/siteconfig/internal/loader"
	"github.com/eugenenazirov/siteconfig/internal/siteconfig"
	"github.com/eugenenazirov/siteconfig/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	cfg             config.Config
	declarationPath string

	storage storage.Storage
	builder *siteconfig.Builder
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server

	reloadMu sync.Mutex
}

// New initializes the application with all dependencies from the provided
// configuration. The declaration file is loaded once up front; an invalid
// declaration prevents the service from starting.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	path, err := resolveProjectPath(cfg.DeclarationPath)
	if err != nil {
		return nil, fmt.Errorf("failed to locate site declaration: %w", err)
	}

	builder := siteconfig.NewBuilder(siteconfig.WithLogger(logger))
	store := storage.NewMemoryStorage()

	handler := api.NewHandler(builder, store,
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		api.WithHandlerLogger(logger),
	)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	app := &App{
		cfg:             cfg,
		declarationPath: path,
		storage:         store,
		builder:         builder,
		handler:         handler,
		router:          apiRouter,
		logger:          logger,
		server:          NewServer(cfg, BuildRootHandler(apiRouter)),
	}

	snap, err := app.load(config.ReloadReplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load site declaration: %w", err)
	}
	logger.Info("site configuration loaded",
		zap.String("path", path),
		zap.Uint64("version", snap.Version),
	)

	return app, nil
}

// BuildRootHandler constructs the root HTTP handler that routes API requests.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Reload re-reads the declaration file and swaps the resulting snapshot in
// using the configured reload strategy. On failure the current snapshot is
// left untouched.
func (a *App) Reload() (storage.Snapshot, error) {
	return a.load(a.cfg.ReloadStrategy)
}

func (a *App) load(strategy string) (storage.Snapshot, error) {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	raw, err := loader.Load(a.declarationPath)
	if err != nil {
		return storage.Snapshot{}, err
	}
	next, err := a.builder.Build(raw)
	if err != nil {
		return storage.Snapshot{}, err
	}

	source := "file:" + a.declarationPath
	if strategy != config.ReloadReconcile {
		return a.storage.Swap(next, source)
	}
	return a.storage.Update(source, func(current *storage.Snapshot) (siteconfig.SiteConfig, error) {
		if current == nil {
			return next, nil
		}
		return siteconfig.Reconcile(current.Config, next)
	})
}

// Watch reloads the declaration whenever its file changes until ctx is done.
func (a *App) Watch(ctx context.Context) error {
	watcher := loader.NewWatcher(a.declarationPath, a.cfg.WatchDebounce, a.logger)
	return watcher.Run(ctx, func() {
		snap, err := a.Reload()
		if err != nil {
			a.logger.Error("site configuration reload rejected, keeping current snapshot",
				zap.String("path", a.declarationPath),
				zap.Error(err),
			)
			return
		}
		a.logger.Info("site configuration reloaded",
			zap.String("path", a.declarationPath),
			zap.String("strategy", a.cfg.ReloadStrategy),
			zap.Uint64("version", snap.Version),
		)
	})
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Storage exposes the snapshot store.
func (a *App) Storage() storage.Storage {
	return a.storage
}

// resolveProjectPath locates a file relative to the working directory,
// walking up the directory tree when it is not found there. Absolute paths
// are only checked for existence.
func resolveProjectPath(relative string) (string, error) {
	if filepath.IsAbs(relative) {
		if _, err := os.Stat(relative); err != nil {
			return "", err
		}
		return relative, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, relative)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("unable to locate %s", relative)
}
