package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/echowall/echowall/internal/config"
	"github.com/echowall/echowall/internal/core"
	"github.com/echowall/echowall/internal/core/engine"
	"github.com/echowall/echowall/internal/core/store"
	"github.com/echowall/echowall/internal/observability"
	"github.com/echowall/echowall/internal/server"
	"github.com/echowall/echowall/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// storeHealthChecker verifies the note store connection
type storeHealthChecker struct {
	store *store.Store
}

func (c storeHealthChecker) CheckHealth(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// configHealthChecker validates the loaded configuration invariants
type configHealthChecker struct {
	cfg *config.Config
}

func (c configHealthChecker) CheckHealth(ctx context.Context) error {
	return config.Validate(c.cfg)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (placeholder - restart recommended)

The server will cleanly shut down the HTTP server, close the note store,
and flush logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := Config()

		if err := config.Validate(cfg); err != nil {
			return err
		}

		observability.InitServerLogger("echowall", cfg.Logging.Level)

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics("echowall", cfg.Metrics.Port); err != nil {
				observability.ServerLogger.Error("Failed to initialize metrics",
					zap.Error(err))
				return err
			}
		}

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", "echowall"),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Int("metrics_port", cfg.Metrics.Port),
			zap.Int("rate_limit_per_minute", cfg.Notes.RateLimitPerMinute))

		// Open the note store and ensure the schema exists
		db, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			observability.ServerLogger.Error("Failed to open note store", zap.Error(err))
			return err
		}
		if err := db.Migrate(cmd.Context()); err != nil {
			_ = db.Close()
			observability.ServerLogger.Error("Store migration failed", zap.Error(err))
			return err
		}

		// Assemble the write pipeline with explicit collaborators
		noteService := &engine.NoteService{
			Store:   db,
			Limiter: engine.NewRateLimiter(cfg.Notes.RateLimitPerMinute, time.Minute),
			Hasher:  core.NewIdentityHasher(cfg.Notes.IPSalt),
			Cleaner: core.NewSanitizer(),
		}
		handlers.SetNoteService(noteService)

		// Initialize health manager
		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("note_store", storeHealthChecker{store: db})
		hm.RegisterChecker("config", configHealthChecker{cfg: cfg})

		// Create server
		srv := server.New(cfg)

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Register graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		// Handler 2: Close the note store
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Closing note store...")
			if err := db.Close(); err != nil {
				observability.ServerLogger.Warn("Note store close returned error",
					zap.Error(err))
			}
			return nil
		})

		// Handler 3: Shutdown HTTP server (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}

			observability.ServerLogger.Info("HTTP server shut down cleanly")
			return nil
		})

		// SIGHUP: re-read the config file. Loaded values are immutable for
		// the process lifetime; a restart is required to apply changes.
		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Reloading configuration...")
			if err := viper.ReadInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if errors.As(err, &notFound) {
					observability.ServerLogger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				observability.ServerLogger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return err
			}

			observability.ServerLogger.Info("Configuration file re-read; restart to apply changes",
				zap.String("file", viper.ConfigFileUsed()))
			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		// Start server in background goroutine
		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		// Start signal listener in background
		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		// Wait for error or shutdown completion
		if err := <-errChan; err != nil {
			ExitWithCode(observability.ServerLogger, foundry.ExitFailure, "Server error", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "0.0.0.0", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
