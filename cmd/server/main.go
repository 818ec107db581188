// Command server runs the documentation search HTTP API.
//
// Startup sequence:
//  1. Load .env (best effort) and environment configuration
//  2. Configure zerolog (level, optional pretty console output)
//  3. Initialize OpenTelemetry tracing (optional)
//  4. Open the SQLite query log database
//  5. Build or load the search index and warm the service
//  6. Serve HTTP with graceful shutdown on SIGINT/SIGTERM
//
// @title           Documentation Search API
// @version         1.0
// @description     BM25 full-text search over a documentation corpus.
// @BasePath        /api/v1
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
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-docsearch-backend/internal/cache"
	"github.com/tbourn/go-docsearch-backend/internal/config"
	httpapi "github.com/tbourn/go-docsearch-backend/internal/http"
	"github.com/tbourn/go-docsearch-backend/internal/observability"
	"github.com/tbourn/go-docsearch-backend/internal/repo"
	"github.com/tbourn/go-docsearch-backend/internal/search"
	"github.com/tbourn/go-docsearch-backend/internal/services"
	"github.com/tbourn/go-docsearch-backend/internal/sysutil"
)

func main() {
	// Optional .env for local development; real deployments use the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty && !sysutil.IsTruthy(os.Getenv("NO_COLOR")) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	version := sysutil.FirstNonEmpty(os.Getenv("SERVICE_VERSION"), "dev")

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shCtx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath, cfg.OTEL.Enabled)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open query log database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("query log migration failed")
	}

	var resultCache cache.ResultCache
	if cfg.Cache.Enabled {
		switch cfg.Cache.Backend {
		case "redis":
			client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
			if err := client.Ping(ctx).Err(); err != nil {
				log.Fatal().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("redis unreachable")
			}
			resultCache = cache.NewRedis(client, cfg.Cache.MaxSize, cfg.Cache.TTL, log.Logger)
		default:
			resultCache = cache.NewMemory(cfg.Cache.MaxSize, cfg.Cache.TTL)
		}
	}

	store := search.NewStore(cfg.Index, cfg.BM25, cfg.Text, log.Logger)
	svc := services.NewSearchService(store, resultCache, db, cfg.Behavior, log.Logger)
	if err := svc.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("index initialization failed")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, svc, cfg)

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
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
