// Command server runs the print-shop assistant HTTP API.
//
//	@title			Print-shop Assistant API
//	@version		1.0
//	@description	Guided product discovery, order-status and support-ticket chatbot for a print shop.
//	@BasePath		/api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-printshop-assistant/internal/config"
	"github.com/tbourn/go-printshop-assistant/internal/dialogue"
	"github.com/tbourn/go-printshop-assistant/internal/fallback"
	httpapi "github.com/tbourn/go-printshop-assistant/internal/http"
	"github.com/tbourn/go-printshop-assistant/internal/observability"
	"github.com/tbourn/go-printshop-assistant/internal/repo"
	"github.com/tbourn/go-printshop-assistant/internal/services"
	"github.com/tbourn/go-printshop-assistant/internal/session"
	"github.com/tbourn/go-printshop-assistant/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const purgeInterval = time.Hour

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty)
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver,
		attribute.String("printshop.db.driver", cfg.DB.Driver),
		attribute.String("printshop.state.backend", cfg.Dialogue.StateBackend),
		attribute.String("printshop.fallback.provider", cfg.Fallback.Provider),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.Open(cfg.DB, cfg.OTEL.Enabled && cfg.DB.Trace)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	store, locker, closeBackends, err := newDialogueBackends(ctx, cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("dialogue backends")
	}
	defer closeBackends()

	responder, err := fallback.New(ctx, cfg.Fallback)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Fallback.Provider).Msg("fallback responder")
	}
	engine := dialogue.NewEngine(responder, dialogue.WithFallbackTimeout(cfg.Fallback.Timeout))

	assistant := services.NewAssistantService(db, engine, store, locker)
	assistant.MaxInputRunes = cfg.Dialogue.MaxInputRunes
	assistant.LockTimeout = cfg.Dialogue.TurnLockTimeout
	assistant.IdempotencyTTL = cfg.IdempotencyTTL

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, assistant, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go purgeIdempotency(ctx, db, purgeInterval)

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", ver).
			Str("state_backend", cfg.Dialogue.StateBackend).
			Str("lock_backend", cfg.Dialogue.LockBackend).
			Str("fallback", cfg.Fallback.Provider).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newDialogueBackends selects the state store and the per-session locker.
// The returned close func releases the Redis client, if one was opened.
func newDialogueBackends(ctx context.Context, cfg config.Config, db *gorm.DB) (session.Store, session.Locker, func(), error) {
	closeFn := func() {}
	var rdb *redis.Client
	if cfg.UsesRedis() {
		c, err := session.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, closeFn, err
		}
		rdb = c
		closeFn = func() { _ = c.Close() }
	}

	var store session.Store
	switch cfg.Dialogue.StateBackend {
	case config.StateMemory:
		store = session.NewMemoryStore()
	case config.StateRedis:
		store = session.NewRedisStore(rdb, cfg.Redis.KeyPrefix, cfg.Dialogue.StateTTL)
	default:
		store = session.NewDBStore(db)
	}

	var locker session.Locker
	switch cfg.Dialogue.LockBackend {
	case config.LockRedis:
		locker = session.NewRedisLocker(rdb, cfg.Redis.KeyPrefix, cfg.Dialogue.LockTTL, 0)
	default:
		locker = session.NewKeyedMutex()
	}
	return store, locker, closeFn, nil
}

// purgeIdempotency deletes expired idempotency records every interval until
// ctx is done.
func purgeIdempotency(ctx context.Context, db *gorm.DB, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, time.Now().UTC())
			if err != nil {
				log.Warn().Err(err).Msg("purge idempotency")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("purged expired idempotency records")
			}
		}
	}
}
