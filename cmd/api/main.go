package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/safar/reseller-store/internal/auth"
	"github.com/safar/reseller-store/internal/cache"
	"github.com/safar/reseller-store/internal/catalog"
	"github.com/safar/reseller-store/internal/config"
	"github.com/safar/reseller-store/internal/database"
	"github.com/safar/reseller-store/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Load config")
	}

	logger.Init(cfg.Log.Env, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Connect to database")
	}
	defer db.Close()

	var catalogCache cache.Cache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, storefront cache disabled")
			rc.Close()
		} else {
			log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
			catalogCache = rc
			defer rc.Close()
		}
	}

	srv := &server{
		db:      db,
		catalog: catalog.NewService(db, catalogCache, cfg.Redis.CatalogTTL),
		auth:    auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		now:     time.Now,
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv.handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown")
		}
	}()

	log.Info().Str("port", cfg.Server.Port).Msg("Server starting")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server error")
	}
	log.Info().Msg("Server stopped")
}
