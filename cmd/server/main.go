// Command server runs the shipment tracker API.
//
// @title          Shipment Tracker API
// @version        1.0
// @description    Clients, orders, shipping status and WhatsApp notifications for the import dashboard.
// @BasePath       /api/v1
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
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/docs"
	"github.com/tbourn/go-shipment-tracker/internal/config"
	httpapi "github.com/tbourn/go-shipment-tracker/internal/http"
	"github.com/tbourn/go-shipment-tracker/internal/jobs"
	"github.com/tbourn/go-shipment-tracker/internal/notify"
	"github.com/tbourn/go-shipment-tracker/internal/observability"
	"github.com/tbourn/go-shipment-tracker/internal/repo"
	"github.com/tbourn/go-shipment-tracker/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("load .env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.SetupLogging(os.Stdout, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	gin.SetMode(cfg.GinMode)
	docs.SwaggerInfo.BasePath = cfg.APIBasePath
	docs.SwaggerInfo.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}

	backend, cache, err := openDatabases(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open databases")
	}

	ch, closeChannel, err := openChannel(cfg.Notify)
	if err != nil {
		log.Fatal().Err(err).Msg("notification channel")
	}

	app, err := httpapi.NewApp(cfg, backend, cache, ch)
	if err != nil {
		log.Fatal().Err(err).Msg("wire application")
	}
	source, err := app.LoadState(ctx)
	if err != nil {
		// the dashboard still serves an empty collection
		log.Warn().Err(err).Str("source", source).Msg("client collection unavailable at startup")
	} else {
		log.Info().Str("source", source).Int("clients", app.Tracker.Stats().TotalClients).Msg("clients loaded")
	}

	jm := jobs.NewJobManager(
		jobs.NewNotificationRetryJob(app.Tracker, cfg.Notify.RetrySchedule),
		jobs.NewIdempotencyPurgeJob(jobs.PurgerFunc(app.PurgeIdempotency), cfg.Notify.PurgeSchedule),
	)
	if err := jm.StartAll(); err != nil {
		log.Fatal().Err(err).Msg("start jobs")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, app, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("driver", cfg.DB.Driver).Str("channel", ch.Name()).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	jm.StopAll()
	app.Tracker.Wait()
	if err := closeChannel(); err != nil {
		log.Warn().Err(err).Msg("close notification channel")
	}
	closeDB(backend)
	closeDB(cache)
	if err := shutdownOTel(sctx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
}

// openDatabases opens and migrates the backend and the local cache.
func openDatabases(cfg config.Config) (backend, cache *gorm.DB, err error) {
	backend, err = repo.Open(cfg.DB.Driver, cfg.DB.Path, cfg.DB.DSN)
	if err != nil {
		return nil, nil, err
	}
	cache, err = repo.OpenSQLite(cfg.CachePath)
	if err != nil {
		closeDB(backend)
		return nil, nil, err
	}
	for _, db := range []*gorm.DB{backend, cache} {
		if err := repo.UseTracing(db); err != nil {
			log.Warn().Err(err).Msg("gorm tracing plugin not installed")
		}
	}
	if err := repo.AutoMigrate(backend); err != nil {
		// the tracker falls back to the cache when the backend is down
		log.Error().Err(err).Msg("backend migration failed")
	}
	if err := repo.AutoMigrateCache(cache); err != nil {
		closeDB(backend)
		closeDB(cache)
		return nil, nil, err
	}
	return backend, cache, nil
}

func openChannel(cfg config.NotifyConfig) (notify.Channel, func() error, error) {
	if cfg.Channel == config.ChannelAMQP {
		ch, closeFn, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, nil, err
		}
		return ch, closeFn, nil
	}
	return notify.LinkChannel{}, func() error { return nil }, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
