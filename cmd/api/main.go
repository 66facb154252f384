package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanwahyu/remix-lens/internal/application"
	appanalysis "github.com/bryanwahyu/remix-lens/internal/application/analysis"
	"github.com/bryanwahyu/remix-lens/internal/config"
	domai "github.com/bryanwahyu/remix-lens/internal/domain/ai"
	"github.com/bryanwahyu/remix-lens/internal/domain/analysis"
	"github.com/bryanwahyu/remix-lens/internal/domain/analyst"
	"github.com/bryanwahyu/remix-lens/internal/domain/failures"
	"github.com/bryanwahyu/remix-lens/internal/infra/ai/offline"
	aiopenai "github.com/bryanwahyu/remix-lens/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/remix-lens/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/remix-lens/internal/infra/db/postgres"
	sqlitep "github.com/bryanwahyu/remix-lens/internal/infra/db/sqlite"
	"github.com/bryanwahyu/remix-lens/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/remix-lens/internal/infra/storage"
	"github.com/bryanwahyu/remix-lens/internal/middleware"
	"github.com/bryanwahyu/remix-lens/internal/platform/logger"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	lg, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, repo, failRepo, err := openDatabase(ctx, cfg)
	if err != nil {
		lg.Fatal("database init error", "driver", cfg.Database.Driver, "error", err)
	}
	defer db.Close()

	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}

	svc := &appanalysis.Service{
		Model: newModel(cfg, lg),
		Pipeline: analysis.New(analysis.Options{
			FallbackTokens: cfg.Pipeline.FallbackTokens,
			PreviewLimit:   cfg.Pipeline.PreviewLimit,
			DeepRepair:     cfg.Pipeline.DeepRepair,
		}),
		Repo:        repo,
		FailureRepo: failRepo,
		Clock:       application.SystemClock{},
		Logger:      lg,
		Observer:    middleware.PipelineMetrics{},
		MaxAttempts: cfg.AI.MaxAttempts,
	}

	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
			cfg.Minio.PresignExpiry,
		)
		if err != nil {
			lg.Fatal("minio init error", "endpoint", cfg.Minio.Endpoint, "error", err)
		}
		svc.Media = store
		checkers["storage"] = store
	} else {
		lg.Warn("minio endpoint not set, uploads and object keys are disabled")
	}

	done := make(chan struct{})
	defer close(done)
	handler := httpserver.NewRouter(svc, httpserver.Options{
		APIKeys:      cfg.Server.APIKeys,
		CORSOrigins:  cfg.Server.CORSOrigins,
		RateLimitRPS: cfg.Server.RateLimit.RPS,
		RateBurst:    cfg.Server.RateLimit.Burst,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Checkers:     checkers,
		Logger:       lg,
		Stop:         done,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		lg.Info("server listening", "addr", addr, "driver", cfg.Database.Driver, "model", cfg.AI.Model)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server error", "error", err)
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	lg.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		lg.Error("shutdown error", "error", err)
	}
}

// openDatabase connects the configured driver, creates missing tables and
// returns both repositories.
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, analyst.Repository, failures.Repository, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := pgp.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, nil, err
		}
		if err := pgp.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return db, pgp.NewAnalystRepository(db), pgp.NewFailureRepository(db), nil
	case "sqlite":
		db, err := sqlitep.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, nil, err
		}
		if err := sqlitep.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return db, sqlitep.NewAnalystRepository(db), sqlitep.NewFailureRepository(db), nil
	default:
		db, err := mysqlp.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, nil, err
		}
		if err := mysqlp.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return db, mysqlp.NewAnalystRepository(db), mysqlp.NewFailureRepository(db), nil
	}
}

func newModel(cfg *config.Config, lg *logger.Logger) domai.Client {
	if cfg.AI.APIKey == "" {
		lg.Warn("no AI api key configured, using the offline model")
		return offline.NewClient()
	}
	return aiopenai.NewClient(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL, cfg.AI.MaxTokens)
}
