package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-train-seat-reservation/internal/api"
	"github.com/sanosuguru/go-train-seat-reservation/internal/api/handler"
	"github.com/sanosuguru/go-train-seat-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-train-seat-reservation/internal/application"
	"github.com/sanosuguru/go-train-seat-reservation/internal/config"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-train-seat-reservation/internal/infrastructure/kafka"
	"github.com/sanosuguru/go-train-seat-reservation/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-train-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-train-seat-reservation/internal/worker"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, ".env の読み込みに失敗: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()

	logger.Set(logger.NewLoggerWithFile(cfg.Log.Env, logger.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}))
	defer logger.Sync()

	m := metrics.Init()

	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続エラー", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.MigrationsPath != "" {
		if err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
			logger.Fatal("マイグレーションエラー", zap.Error(err))
		}
		logger.Info("マイグレーション完了", zap.String("path", cfg.Database.MigrationsPath))
	}

	health := handler.NewHealthHandler().Require("database", func(ctx context.Context) error {
		return postgres.Ping(ctx, db)
	})

	// Redis・Kafka は任意。接続できなければロック・キャッシュ・イベント送信なしで動かす
	var (
		lockManager redisinfra.LockManagerInterface
		seatCache   redisinfra.SeatCacheInterface
	)
	if rc := connectRedis(cfg); rc != nil {
		defer rc.Close()
		lockManager = redisinfra.NewLockManager(rc)
		seatCache = redisinfra.NewSeatCache(rc)
		health.Optional("redis", func(ctx context.Context) error {
			return redisinfra.Ping(ctx, rc)
		})
	}

	var publisher booking.EventPublisher
	if cfg.Kafka.Enabled() {
		p, err := kafka.NewBookingPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Warn("Kafka接続エラー（イベント送信なしで起動）", zap.Error(err))
		} else {
			defer p.Close()
			publisher = p
			logger.Info("Kafka接続完了", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
		}
	}

	handlers, bookingService := buildHandlers(cfg, db, lockManager, seatCache, publisher)
	handlers.Health = health

	ctx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	if cfg.Booking.PurgeInterval > 0 {
		purger := worker.NewDepartedBookingPurger(bookingService, cfg.Booking.PurgeInterval, cfg.Booking.PurgeRetention)
		go purger.Start(ctx)
		defer purger.Stop()
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	middleware.SetupMiddleware(e)
	e.Use(middleware.PrometheusMiddleware(m))

	handler.RegisterRoutes(e, handlers)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(cfg.Metrics))

	go func() {
		logger.Info("サーバー起動", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("サーバーシャットダウンエラー", zap.Error(err))
		return
	}
	logger.Info("サーバーが正常にシャットダウンしました")
}

func connectRedis(cfg *config.Config) *goredis.Client {
	if !cfg.Redis.Enabled {
		logger.Info("Redis無効（分散ロック・キャッシュなしで起動）")
		return nil
	}
	rc, err := redisinfra.NewClient(&redisinfra.Config{
		Host: cfg.Redis.Host, Port: cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB,
	})
	if err != nil {
		logger.Warn("Redis接続エラー（分散ロック・キャッシュなしで起動）", zap.Error(err))
		return nil
	}
	logger.Info("Redis接続完了", zap.String("addr", cfg.Redis.Addr()))
	return rc
}

func buildHandlers(
	cfg *config.Config,
	db *sqlx.DB,
	lockManager redisinfra.LockManagerInterface,
	seatCache redisinfra.SeatCacheInterface,
	publisher booking.EventPublisher,
) (handler.Handlers, *application.BookingService) {
	txm := postgres.NewTxManager(db)
	periodRepo := postgres.NewPeriodRepository(db)
	trainRepo := postgres.NewTrainRepository(db)
	seatRepo := postgres.NewSeatRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	fareRepo := postgres.NewFareRepository(db)

	opts := application.DefaultBookingOptions()
	opts.Retry = application.RetryPolicy{MaxAttempts: cfg.Booking.MaxAttempts, Backoff: cfg.Booking.RetryBackoff}
	opts.LockTTL = cfg.Booking.LockTTL
	opts.Surcharge = cfg.Booking.SurchargePerPassenger

	journeyService := application.NewJourneyService(txm, periodRepo, trainRepo, fareRepo)
	seatService := application.NewSeatService(txm, periodRepo, trainRepo, seatRepo, seatCache, cfg.Booking.CountCacheTTL)
	bookingService := application.NewBookingService(txm, periodRepo, trainRepo, seatRepo, bookingRepo, fareRepo,
		seatService, lockManager, publisher, opts)

	return handler.Handlers{
		Health:  handler.NewHealthHandler(),
		Journey: handler.NewJourneyHandler(journeyService),
		Seat:    handler.NewSeatHandler(seatService),
		Booking: handler.NewBookingHandler(bookingService),
	}, bookingService
}
