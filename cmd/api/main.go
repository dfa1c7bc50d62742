package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ioezgamer/studio/internal/ai"
	"github.com/ioezgamer/studio/internal/app"
	"github.com/ioezgamer/studio/internal/config"
	"github.com/ioezgamer/studio/internal/export"
	"github.com/ioezgamer/studio/internal/logging"
	"github.com/ioezgamer/studio/internal/obs"
	"github.com/ioezgamer/studio/internal/search"
	"github.com/ioezgamer/studio/internal/session"
	"github.com/ioezgamer/studio/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "api",
	Short: "TechCare maintenance records API",
	Long: `TechCare keeps maintenance records for office equipment.

Run without arguments to start the HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, roleCmd)
	roleCmd.AddCommand(roleSetCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// openDatabase connects and brings the schema up to date.
func openDatabase(ctx context.Context) (*sql.DB, error) {
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", zap.Strings("versions", applied))
	}
	return db, nil
}

func serve(ctx context.Context) error {
	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := obs.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	dataStore := store.NewPostgresStore(db)
	deps := app.Deps{Store: dataStore, Logger: logger}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := session.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer redisStore.Close()
		deps.Sessions = redisStore
		logger.Info("using redis for refresh token storage")
	} else {
		logger.Info("using postgres for refresh token storage")
	}

	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meili.Close()
		deps.Search = search.NewService(meili, dataStore, logger)
		go func() {
			count, err := deps.Search.Reindex(ctx)
			if err != nil {
				logger.Warn("initial reindex failed", zap.Error(err))
				return
			}
			logger.Info("search index rebuilt", zap.Int("records", count))
		}()
	}

	gemini, err := ai.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	switch {
	case err == nil:
		deps.Assistant = ai.NewAssistant(gemini, cfg.AITimeout, logger)
	case errors.Is(err, ai.ErrNotConfigured):
		logger.Info("GEMINI_API_KEY not set, assistant answers with fallbacks")
	default:
		logger.Warn("gemini client unavailable, assistant answers with fallbacks", zap.Error(err))
	}

	var renderer export.Renderer
	if chrome := export.NewChromeRenderer(cfg.ChromeTimeout); chrome.Available() {
		renderer = chrome
	} else {
		logger.Warn("chrome not found, PDF and PNG reports disabled")
	}
	var archive export.Archiver
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		minioArchive, err := export.NewMinioArchive(ctx, export.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			logger.Warn("report archive disabled", zap.Error(err))
		} else {
			archive = minioArchive
		}
	}
	deps.Export = export.NewService(renderer, archive, logger)

	service, err := app.New(cfg, deps)
	if err != nil {
		return err
	}
	defer service.Close()

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("TechCare API listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	return nil
}
