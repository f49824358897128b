package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoPolymarket/ginauditor/internal/config"
	"github.com/GoPolymarket/ginauditor/internal/handler"
	"github.com/GoPolymarket/ginauditor/internal/model"
	"github.com/GoPolymarket/ginauditor/internal/pkg/logger"
	"github.com/GoPolymarket/ginauditor/internal/pkg/metrics"
	"github.com/GoPolymarket/ginauditor/internal/repository"
	"github.com/GoPolymarket/ginauditor/internal/service"
	"github.com/GoPolymarket/ginauditor/pkg/auditor"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 2. Initialize Persistence (SQL first: it answers queries)
	var repos []service.AuditRepo
	sqlRepo, err := openSQLRepo(cfg)
	if err != nil {
		logger.Error("⚠️ Failed to connect to DB, audit logs will not be persisted to SQL", "error", err)
	} else if sqlRepo != nil {
		logger.Info("✅ Connected to audit database", "driver", cfg.Database.Driver)
		repos = append(repos, sqlRepo)
	}

	var redisClient *repository.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient, err = repository.NewRedisClient(cfg.Redis)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			ttl := time.Duration(cfg.Redis.AuditTTLHours) * time.Hour
			repos = append(repos, repository.NewRedisAuditRepo(redisClient, cfg.Redis.AuditListKey, cfg.Redis.AuditListMax, ttl))
		} else {
			logger.Error("⚠️ Failed to connect to Redis, audit list disabled", "error", err)
			redisClient = nil
		}
	}

	// 3. Initialize Core Services
	auditSvc, err := service.NewAuditService(cfg.History.LogDir, cfg.History.BufferSize, repos...)
	if err != nil {
		return fmt.Errorf("initialize audit service: %w", err)
	}

	audit, err := auditor.New(cfg.Audit,
		auditor.WithLogger(logger.Get()),
		auditor.WithRegisterer(prometheus.DefaultRegisterer),
	)
	if err != nil {
		return fmt.Errorf("initialize auditor: %w", err)
	}
	if err := audit.RegisterSink(auditSvc); err != nil {
		return err
	}
	if err := audit.RegisterHook(handler.AuditHook); err != nil {
		return err
	}

	var hub *service.StreamHub
	var streamHandler *handler.StreamHandler
	if cfg.Stream.Enabled {
		hub = service.NewStreamHub(cfg.Stream.Buffer)
		if err := audit.RegisterSink(hub); err != nil {
			return err
		}
		streamHandler = handler.NewStreamHandler(hub)
	}

	users := service.NewUserService(
		model.User{ID: 1, Name: "Makai"},
		model.User{ID: 2, Name: "TNiaH"},
	)

	// 4. Setup Router
	r := handler.NewRouter(cfg, handler.RouterDeps{
		Auditor:  audit,
		Users:    handler.NewUserHandler(users),
		Audit:    handler.NewAuditHandler(auditSvc),
		Stream:   streamHandler,
		Gatherer: prometheus.DefaultGatherer,
		Health: func() error {
			if redisClient == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return redisClient.Ping(ctx)
		},
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if sqlRepo != nil && cfg.Database.AuditRetentionDays > 0 {
		go runCleanupLoop(ctx, sqlRepo, cfg.Database)
	}

	// 5. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("🚀 ginauditor started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		logger.Error("Server listen failed", "error", err)
	}
	logger.Info("🛑 Shutting down server...")
	stop()

	timeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	// drain pending records before closing their sinks
	if err := audit.Close(shutdownCtx); err != nil {
		logger.Error("Audit queue not fully drained", "error", err)
	}
	if hub != nil {
		hub.Close()
	}
	if err := auditSvc.Close(); err != nil {
		logger.Error("Failed to close audit file", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("Server exiting")
	return nil
}

// openSQLRepo returns nil without error when no database is configured.
func openSQLRepo(cfg *config.Config) (*repository.SQLAuditRepo, error) {
	if cfg.Database.DSN == "" && cfg.Database.Driver != "sqlite" {
		return nil, nil
	}
	db, err := repository.NewDB(cfg.Database)
	if err != nil {
		return nil, err
	}
	repo := repository.NewSQLAuditRepo(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := repo.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate audit_logs: %w", err)
	}
	return repo, nil
}

func runCleanupLoop(ctx context.Context, repo *repository.SQLAuditRepo, cfg config.DatabaseConfig) {
	interval := time.Duration(cfg.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	retention := time.Duration(cfg.AuditRetentionDays) * 24 * time.Hour

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := repo.Cleanup(ctx, retention)
			if err != nil {
				logger.Error("Audit cleanup failed", "error", err)
				continue
			}
			metrics.CleanupRemoved.Add(float64(removed))
			logger.Debug("Audit cleanup done", "removed", removed)
		}
	}
}
