// cmd/casegen/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"casegen/internal/common/config"
	"casegen/internal/common/database"
	"casegen/internal/common/logger"
	"casegen/internal/common/observability"
	"casegen/internal/drive"
	"casegen/internal/engine"
	"casegen/internal/generator"
	"casegen/internal/notify"
	"casegen/internal/placement"
	"casegen/internal/storage"
	httptransport "casegen/internal/transport/http"
	"casegen/pkg/engineprofile"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting casegen service...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init object storage ---
	bucket, err := storage.NewBucketClient(cfg.Storage.Bucket)
	if err != nil {
		zapLog.Fatal("bucket client failed", zap.Error(err))
	}
	defer bucket.Shutdown()

	symbols := storage.NewSymbolLibrary(cfg.Storage.Symbols)

	// --- Resolve engine profile ---
	profile := engineprofile.DefaultProfile()
	if cfg.Engine.ProfilePath != "" {
		reg, err := engineprofile.Load(cfg.Engine.ProfilePath)
		if err != nil {
			zapLog.Fatal("engine profile registry load failed", zap.Error(err))
		}
		profile, err = reg.Resolve("")
		if err != nil {
			zapLog.Fatal("engine profile resolution failed", zap.Error(err))
		}
	}
	zapLog.Info("Engine profile resolved",
		zap.String("profile", profile.ID),
		zap.String("engine", profile.Engine),
	)

	// --- Init pipeline dependencies ---
	engineClient := engine.NewClient(cfg.Engine, log)
	monitor := engine.NewMonitor(
		engineClient,
		config.GetDuration(cfg.Engine.PollInterval),
		cfg.Engine.MaxPolls,
		log,
	)

	notifier, err := notify.NewNotifier(ctx, cfg.Notifications, log)
	if err != nil {
		zapLog.Fatal("notifier init failed", zap.Error(err))
	}

	signedExpiry := time.Duration(cfg.Storage.Bucket.SignedExpiry) * time.Minute
	svc := generator.NewService(generator.ServiceParams{
		Reader:       placement.NewReader(pg.GetDB(), log),
		Engine:       engineClient,
		Monitor:      monitor,
		Stager:       generator.NewStager(bucket, symbols, signedExpiry, log),
		Materializer: generator.NewMaterializer(bucket, drive.NewClient(cfg.Drive, log), log),
		Locker:       generator.NewRunLock(rdb.GetClient(), log),
		Symbols:      symbols,
		Profile:      profile,
		Notifier:     notifier,
		Observer:     obs,
		ActivityID:   cfg.Engine.ActivityID,
		Account:      cfg.Engine.Nickname,
		Logger:       log,
	})

	// --- Metrics server ---
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Metrics server listening", zap.String("address", cfg.Server.MetricsAddress))
		if err := http.ListenAndServe(cfg.Server.MetricsAddress, mux); err != nil && err != http.ErrServerClosed {
			zapLog.Error("metrics server failed", zap.Error(err))
		}
	}()

	// --- API server ---
	handler := httptransport.NewHandler(svc, log)
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      httptransport.Routes(handler),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("API server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("api server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("api server shutdown failed", zap.Error(err))
	}
	zapLog.Info("casegen stopped")
}
