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

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/database"
	"github.com/iliyamo/auth-service/internal/logger"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/observability"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/router"
	"github.com/iliyamo/auth-service/internal/utils"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	if on, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, "auth-service@"+version); err != nil {
		zl.Warn("sentry disabled", zap.Error(err))
	} else if on {
		defer observability.FlushSentry()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, tokens, closeStore, err := openStore(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher := queue.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, logger.WithComponent(zl, "publisher"))
	if err := publisher.Start(); err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			zl.Warn("close publisher", zap.Error(err))
		}
	}()

	svc := auth.NewService(
		users,
		auth.NewRefreshStore(tokens, cfg.RefreshTTL, nil),
		utils.NewBcryptHasher(cfg.BcryptCost),
		utils.NewJWTCodec(cfg.JWTSecret, cfg.AccessTTL),
		publisher,
		auth.WithLockoutPolicy(auth.LockoutPolicy{Threshold: cfg.LockoutThreshold, Duration: cfg.LockoutDuration}),
		auth.WithExchange(cfg.RabbitMQExchange),
		auth.WithLogger(logger.WithComponent(zl, "auth")),
	)

	var limiter = middleware.NewTokenBucket(config.LoadRateLimitConfig(), nil, zl)
	if rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig()); err != nil {
		zl.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
	} else {
		defer func() { _ = rdb.Close() }()
		limiter = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger.WithComponent(zl, "ratelimit"))
	}

	e := router.New(router.Deps{
		Env:           cfg.Env,
		Service:       svc,
		Authenticator: svc,
		RateLimit:     limiter,
		CORSOrigins:   cfg.CORSOrigins,
		Log:           logger.WithComponent(zl, "http"),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStore connects the configured driver, prepares indexes or schema
// and returns the repositories with a close function.
func openStore(ctx context.Context, cfg config.Config, zl *zap.Logger) (repository.UserRepository, repository.TokenRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.Migrate(ctx, db, logger.WithComponent(zl, "migrate")); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("mysql migrate: %w", err)
		}
		zl.Info("mysql ready", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
		return repository.NewUserRepo(db), repository.NewTokenRepo(db), func() { _ = db.Close() }, nil

	default:
		client, db, err := database.OpenMongo(cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, nil, err
		}
		users, tokens := repository.NewMongoUserRepo(db), repository.NewMongoTokenRepo(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, nil, fmt.Errorf("mongo users indexes: %w", err)
		}
		if err := tokens.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, nil, fmt.Errorf("mongo refresh_tokens indexes: %w", err)
		}
		zl.Info("mongo ready", zap.String("db", cfg.MongoDatabase))
		closeFn := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}
		return users, tokens, closeFn, nil
	}
}
