// Command identity-api serves registration, login and bearer-token
// authentication over HTTP.
//
// Startup order: logger, configuration, credential store (MongoDB or
// memory), optional Redis login throttle, hash pool, services, admin
// bootstrap, HTTP server. SIGINT and SIGTERM trigger a graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	_ "github.com/petfarm/identity-api/docs"
	"github.com/petfarm/identity-api/internal/api"
	"github.com/petfarm/identity-api/internal/api/handler"
	"github.com/petfarm/identity-api/internal/api/metrics"
	"github.com/petfarm/identity-api/internal/api/middleware"
	"github.com/petfarm/identity-api/internal/core/ports"
	"github.com/petfarm/identity-api/internal/core/service"
	"github.com/petfarm/identity-api/internal/infrastructure/db/memory"
	"github.com/petfarm/identity-api/internal/infrastructure/db/mongo"
	"github.com/petfarm/identity-api/internal/infrastructure/db/redis"
	"github.com/petfarm/identity-api/internal/infrastructure/queue"
	"github.com/petfarm/identity-api/internal/pkg/config"
	"github.com/petfarm/identity-api/pkg/logger"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 15 * time.Second
)

// @title						Identity API
// @version					1.0
// @description				Registration, login and bearer-token authentication with role-based access.
// @BasePath					/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
// @description				Type "Bearer" followed by a space and the JWT.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log := logger.Init(logger.Options{Service: "identity-api"})
		log.Fatal().Err(err).Msg("load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "identity-api",
	})
	log.Info().Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("configuration loaded")
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped cleanly")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	readiness := map[string]handler.Pinger{}

	// --- Credential storage ---
	var repo ports.UserRepository
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn().Msg("using in-memory credential store; records are lost on restart")
		repo = memory.NewUserRepository()
	default:
		client, db, err := mongo.Connect(startupCtx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer disconnectMongo(client, log)

		mongoRepo := mongo.NewUserRepository(db)
		if err := mongoRepo.EnsureIndexes(startupCtx); err != nil {
			return err
		}
		repo = mongoRepo
		readiness["mongodb"] = mongo.NewPinger(client)
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
	}

	// --- Login throttle ---
	var throttle service.LoginThrottle
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(startupCtx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer closeRedis(rdb, log)

		throttle = redis.NewLoginThrottle(rdb, cfg.Login.MaxAttempts, cfg.Login.Lockout)
		readiness["redis"] = redis.NewPinger(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
	} else {
		log.Warn().Msg("REDIS_ADDR not set; failed-login throttling disabled")
	}

	// --- Password hashing ---
	bcryptHasher, err := service.NewBcryptHasher(cfg.Password.BcryptCost)
	if err != nil {
		return err
	}
	pool := queue.NewHashPool(cfg.Password.HashWorkers, bcryptHasher, metrics.HashQueueDepth, logger.Component("hash_pool"))
	poolCtx, stopPool := context.WithCancel(context.Background())
	defer stopPool()
	pool.Start(poolCtx)

	// --- Services ---
	tokens, err := service.NewTokenAuthority(cfg.Token.Secret, service.TokenConfig{
		IncludeRole: cfg.Token.IncludeRole,
		TTL:         cfg.Token.TTL,
		Issuer:      cfg.Token.Issuer,
	})
	if err != nil {
		return err
	}
	store := service.NewCredentialStore(repo, pool, logger.Component("credential_store"))
	authService := service.NewAuthService(store, tokens, throttle, logger.Component("auth"))
	userService := service.NewUserService(store, logger.Component("users"))

	if cfg.Admin.Email != "" {
		created, err := userService.EnsureAdmin(startupCtx, cfg.Admin.Email, cfg.Admin.Username, cfg.Admin.Password)
		if err != nil {
			return err
		}
		log.Info().Bool("created", created).Str("email", cfg.Admin.Email).Msg("admin bootstrap checked")
	}

	// --- HTTP ---
	var limiter *middleware.IPRateLimiter
	if cfg.Login.RateLimitRPS > 0 {
		limiter = middleware.NewIPRateLimiter(ctx, cfg.Login.RateLimitRPS, 0)
	}

	e := api.NewRouter(api.Deps{
		AuthService:  authService,
		UserService:  userService,
		LoginLimiter: limiter,
		Readiness:    readiness,
		Log:          logger.Component("http"),
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("http server listening")
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}

	stopPool()
	select {
	case <-pool.Done():
	case <-shutdownCtx.Done():
		log.Warn().Msg("hash pool did not drain before shutdown deadline")
	}
	return nil
}

func disconnectMongo(client *mongodriver.Client, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("mongo disconnect")
	}
}

func closeRedis(rdb *goredis.Client, log zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("redis close")
	}
}
