// Command notes-api runs the public notes API. Auth routes are forwarded to
// the auth service; notes routes are served locally for the token's subject.
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
	"github.com/notekeeper/notes-platform/internal/api/proxy"
	"github.com/notekeeper/notes-platform/internal/core/service"
	mongodb "github.com/notekeeper/notes-platform/internal/infrastructure/db/mongo"
	redisdb "github.com/notekeeper/notes-platform/internal/infrastructure/db/redis"
	"github.com/notekeeper/notes-platform/internal/infrastructure/security"
	"github.com/notekeeper/notes-platform/internal/pkg/config"
	"github.com/notekeeper/notes-platform/pkg/logger"
	"github.com/notekeeper/notes-platform/pkg/tracing"
)

const serviceName = "notes-api"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadNotes(ctx)
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

	notes := mongodb.NewNoteRepository(db)
	if err := notes.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("mongo index creation failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("redis unavailable")
	}
	defer rdb.Close()

	// Same secret and issuer as the auth service; this process only verifies.
	verifier, err := security.NewTokenService(cfg.Token.Secret, cfg.Token.Issuer)
	if err != nil {
		log.Fatal().Err(err).Msg("token verifier init failed")
	}

	authProxy, err := proxy.New(proxy.Config{
		AuthServiceURL: cfg.AuthServiceURL,
		Timeout:        cfg.ProxyTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("auth proxy init failed")
	}

	router := api.NewNotesRouter(api.NotesServer{
		NoteService: service.NewNoteService(notes, log),
		Verifier:    verifier,
		Proxy:       authProxy,
		Limiter:     redisdb.NewRateLimiter(rdb, cfg.Rate.Requests, cfg.Rate.Window, "ratelimit:notes"),
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
