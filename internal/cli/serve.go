package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/vitality/internal/config"
	"github.com/lazypower/vitality/internal/engine"
	"github.com/lazypower/vitality/internal/metrics"
	"github.com/lazypower/vitality/internal/server"
	"github.com/lazypower/vitality/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

// openEngine builds an engine from cfg. The returned func releases the
// history database.
func openEngine(cfg config.Config, logger *zap.Logger) (*engine.Engine, func(), error) {
	dir, err := cfg.ResolveStateDir()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve state dir: %w", err)
	}

	var db *store.DB
	if cfg.History.Enabled {
		dbPath := cfg.History.Path
		if dbPath == "" {
			dbPath, err = store.DefaultDBPath()
			if err != nil {
				return nil, nil, fmt.Errorf("resolve db path: %w", err)
			}
		}
		db, err = store.Open(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open history: %w", err)
		}
	}

	eng := engine.New(dir, db, clock.New(), logger)
	eng.SessionWindow = cfg.Engine.SessionWindow
	eng.SessionRetain = cfg.Engine.SessionRetain

	closeFn := func() {
		eng.Stop()
		if db != nil {
			db.Close()
		}
	}
	return eng, closeFn, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Sync()

	eng, closeEngine, err := openEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer closeEngine()

	eng.SetMetrics(metrics.New(eng.Cache.Len))
	eng.StartCleanupTimer(cfg.Engine.CleanupInterval)

	srv := server.New(eng, VersionString(), logger)
	addr := cfg.ListenAddr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("vitality serving",
			zap.String("addr", addr),
			zap.String("state_dir", eng.Files.Dir),
			zap.Bool("history", eng.History != nil))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-done:
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}
