package providers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/studytrackapp/studytrack-server/internal/config"
	"github.com/studytrackapp/studytrack-server/internal/logger"
	"github.com/studytrackapp/studytrack-server/internal/sse"
	"github.com/studytrackapp/studytrack-server/internal/store"
	"github.com/studytrackapp/studytrack-server/internal/store/badgerstore"
	"github.com/studytrackapp/studytrack-server/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the database store for the configured backend.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := OpenStore(cfg, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "backend", cfg.Store.Backend, "path", StorePath(cfg))

	return &StoreHandle{Store: db}, nil
}

// StorePath is where the configured backend keeps its data.
func StorePath(cfg *config.Config) string {
	if cfg.Store.Backend == config.StoreSQLite {
		return filepath.Join(cfg.Metadata.BasePath, "studytrack.db")
	}
	return filepath.Join(cfg.Metadata.BasePath, "db")
}

// OpenStore opens the configured backend under the metadata directory.
// cmd/studyctl uses it to reach the same data as the server.
func OpenStore(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if err := os.MkdirAll(cfg.Metadata.BasePath, 0o750); err != nil {
		return nil, fmt.Errorf("create metadata directory: %w", err)
	}

	path := StorePath(cfg)
	switch cfg.Store.Backend {
	case config.StoreSQLite:
		return sqlite.Open(path, logger)
	case config.StoreBadger:
		return badgerstore.New(path, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
