// api/main.go
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
	"go.uber.org/zap"

	"sitepulse/api/aggregation"
	"sitepulse/api/cache"
	"sitepulse/api/config"
	"sitepulse/api/handlers"
	"sitepulse/api/ingest"
	"sitepulse/api/logger"
	"sitepulse/api/privacy"
	"sitepulse/api/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Env)
	defer log.Sync()

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.UsesDefaultSalt() {
		log.Warn("IP_HASH_SALT is not set; address hashes use the built-in salt and offer weaker privacy protection")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx := context.Background()

	// --- Event store ---
	eventStore, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize event store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer eventStore.Close()

	// --- Aggregation ---
	engineOpts := []aggregation.Option{
		aggregation.WithLocation(loc),
		aggregation.WithActiveWindow(cfg.ActiveWindow),
	}
	if cfg.Redis.Addr != "" {
		dashboardCache, err := cache.NewRedisDashboardCache(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn("dashboard cache disabled", zap.Error(err))
		} else {
			defer dashboardCache.Close()
			engineOpts = append(engineOpts, aggregation.WithCache(dashboardCache))
		}
	}
	engine := aggregation.New(eventStore, log, engineOpts...)

	// --- Ingestion ---
	ingestService := ingest.NewService(
		eventStore,
		privacy.NewHasher(cfg.Salt()),
		ingest.NewClock(nil),
		cfg.IngestTimeout,
		log,
	)

	r := handlers.Router{
		Config: cfg,
		Store:  eventStore,
		Ingest: ingestService,
		Engine: engine,
		Log:    log,
	}.Build()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("analytics API starting", zap.String("port", cfg.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("analytics API failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exiting")
}
