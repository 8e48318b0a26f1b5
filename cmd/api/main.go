package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bryanwahyu/balancesheet-gpt/internal/application"
	appai "github.com/bryanwahyu/balancesheet-gpt/internal/application/ai"
	"github.com/bryanwahyu/balancesheet-gpt/internal/application/analysis"
	"github.com/bryanwahyu/balancesheet-gpt/internal/application/auth"
	"github.com/bryanwahyu/balancesheet-gpt/internal/application/dashboard"
	"github.com/bryanwahyu/balancesheet-gpt/internal/application/financial"
	"github.com/bryanwahyu/balancesheet-gpt/internal/application/uploads"
	appusers "github.com/bryanwahyu/balancesheet-gpt/internal/application/users"
	"github.com/bryanwahyu/balancesheet-gpt/internal/config"
	domai "github.com/bryanwahyu/balancesheet-gpt/internal/domain/ai"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/realtime"
	"github.com/bryanwahyu/balancesheet-gpt/internal/infra/ai/mock"
	aiopenai "github.com/bryanwahyu/balancesheet-gpt/internal/infra/ai/openai"
	"github.com/bryanwahyu/balancesheet-gpt/internal/infra/db/postgres"
	"github.com/bryanwahyu/balancesheet-gpt/internal/infra/httpserver"
	"github.com/bryanwahyu/balancesheet-gpt/internal/infra/identity"
	"github.com/bryanwahyu/balancesheet-gpt/internal/infra/processing"
	"github.com/bryanwahyu/balancesheet-gpt/internal/infra/realtime/memory"
	"github.com/bryanwahyu/balancesheet-gpt/internal/infra/realtime/pgnotify"
	"github.com/bryanwahyu/balancesheet-gpt/internal/infra/realtime/redisbus"
	minioStore "github.com/bryanwahyu/balancesheet-gpt/internal/infra/storage"
	"github.com/bryanwahyu/balancesheet-gpt/internal/logger"
	"github.com/bryanwahyu/balancesheet-gpt/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	lg, err := logger.New(cfg.Server.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	clock := application.SystemClock{}

	// connect Postgres
	db, err := postgres.Connect(ctx, cfg.PostgresDSN())
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	defer db.Close()

	// init minio
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		return fmt.Errorf("minio init: %w", err)
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}

	// realtime: every driver ends in the in-process hub subscribers listen on
	hub := memory.NewHub(lg.Named("realtime"))
	var changes realtime.Publisher
	bg, cancelBG := context.WithCancel(ctx)
	defer cancelBG()

	switch cfg.Realtime.Driver {
	case "memory":
		changes = hub
	case "redis":
		bus := redisbus.New(rdb, cfg.Realtime.Channel, lg.Named("redisbus"))
		changes = bus
		go func() {
			if err := bus.Run(bg, hub); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("redis bus stopped", zap.Error(err))
			}
		}()
	case "postgres":
		listener := pgnotify.NewListener(cfg.PostgresDSN(), cfg.Realtime.Channel, hub, lg.Named("pgnotify"))
		go func() {
			if err := listener.Run(bg); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("postgres listener stopped", zap.Error(err))
			}
		}()
	}

	data := &financial.Service{
		Companies:     postgres.NewCompanyRepository(db),
		BalanceSheets: postgres.NewBalanceSheetRepository(db),
		Documents:     postgres.NewDocumentRepository(db),
		Objects:       store,
		Queries:       postgres.NewQueryHistoryRepository(db),
		Realtime:      hub,
		Changes:       changes,
		Clock:         clock,
		Log:           lg.Named("data"),
	}

	// identity
	var revoked identity.Revoker = identity.NewMemoryRevoker(clock)
	if rdb != nil {
		revoked = identity.NewRedisRevoker(rdb)
	}
	tokens := identity.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer, clock)
	provider := identity.NewProvider(postgres.NewProfileRepository(db), tokens, revoked, lg.Named("identity"))

	var responder domai.Responder
	switch cfg.AI.Provider {
	case "openai":
		responder = aiopenai.NewClient(cfg.AI.APIKey, cfg.AI.Model)
	default:
		responder = mock.NewResponder()
	}

	metrics := middleware.NewMetrics("balancesheet")

	sim := processing.NewSimulator(cfg.Processing.Delay)
	sim.FailureRate = cfg.Processing.FailureRate
	tracker := uploads.NewTracker(uploads.BytesFacade{Service: data}, sim, clock, lg.Named("uploads"))
	tracker.OnFinish = func(st uploads.Stage) { metrics.UploadsTotal.WithLabelValues(string(st)).Inc() }
	defer tracker.Close()

	loc, err := time.LoadLocation(cfg.Server.TimeZone)
	if err != nil {
		return fmt.Errorf("time zone: %w", err)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
	defer limiter.Stop()

	dbCheck := &middleware.DatabaseHealthChecker{DB: db}
	storageCheck := middleware.CheckFunc(store.Check)

	// init router
	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(httpserver.Deps{
		Auth:      auth.NewService(provider, lg.Named("auth")),
		Data:      data,
		Uploads:   tracker,
		Chat:      appai.NewService(responder, data, clock, lg.Named("ai")),
		Users:     appusers.NewService(postgres.NewUserRepository(db), clock, lg.Named("users")),
		Dashboard: dashboard.NewService(clock, loc),
		Analysis:  analysis.NewService(data),
		Presigner: store,
		Metrics:   metrics,
		Limiter:   limiter,
		Health: map[string]middleware.HealthChecker{
			"database": dbCheck,
			"storage":  storageCheck,
		},
		Ready:          map[string]middleware.HealthChecker{"database": dbCheck},
		Logger:         lg,
		WebRoot:        cfg.Web.Root,
		AllowedOrigins: cfg.Web.AllowedOrigins,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	errc := make(chan error, 1)
	go func() {
		lg.Info("server listening",
			zap.String("addr", addr),
			zap.String("realtime", cfg.Realtime.Driver),
			zap.String("ai", cfg.AI.Provider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	// graceful shutdown
	lg.Info("shutting down server...")
	cancelBG()
	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		lg.Warn("shutdown error", zap.Error(err))
	}
	return nil
}
