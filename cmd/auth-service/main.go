// Command auth-service runs the notes platform's credential store and token
// issuer: register, login, me and the admin user listing.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/notekeeper/notes-platform/internal/api"
	"github.com/notekeeper/notes-platform/internal/api/handler"
	"github.com/notekeeper/notes-platform/internal/core/service"
	mongodb "github.com/notekeeper/notes-platform/internal/infrastructure/db/mongo"
	redisdb "github.com/notekeeper/notes-platform/internal/infrastructure/db/redis"
	"github.com/notekeeper/notes-platform/internal/infrastructure/security"
	"github.com/notekeeper/notes-platform/internal/pkg/config"
	"github.com/notekeeper/notes-platform/pkg/logger"
	"github.com/notekeeper/notes-platform/pkg/tracing"
)

const serviceName = "auth-service"

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAuth(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{Service: serviceName})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, Service: serviceName})

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.OTel.Enabled,
		Endpoint:    cfg.OTel.Endpoint,
		ServiceName: serviceName,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing init failed")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  serviceName,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo unavailable")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	users := mongodb.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("mongo index creation failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("redis unavailable")
	}
	defer rdb.Close()

	hasher, err := security.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid bcrypt cost")
	}
	tokens, err := security.NewTokenService(cfg.Token.Secret, cfg.Token.Issuer)
	if err != nil {
		log.Fatal().Err(err).Msg("token service init failed")
	}

	trusted, err := cfg.TrustedProxyNets()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid trusted proxies")
	}

	authService := service.NewAuthService(users, hasher, tokens, service.AuthOptions{
		TokenTTL:         cfg.Token.TTL,
		AllowAdminSignup: cfg.AllowAdminSignup,
	}, log)

	router := api.NewAuthRouter(api.AuthServer{
		AuthService: authService,
		Verifier:    tokens,
		Limiter:     redisdb.NewRateLimiter(rdb, cfg.Rate.Requests, cfg.Rate.Window, "ratelimit:auth"),
		// Set to the notes API address so its X-Forwarded-For identifies the client.
		TrustedProxies: trusted,
		Health: map[string]handler.HealthCheck{
			"mongodb": mongodb.Ping(client),
			"redis":   redisdb.Ping(rdb),
		},
		Logger: log,
	})

	if err := api.ListenAndServe(ctx, cfg.Port, router, serviceName, log); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("goodbye")
}
