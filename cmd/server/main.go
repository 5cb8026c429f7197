package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/dfryer1193/dailycomic/comic/application"
	"github.com/dfryer1193/dailycomic/comic/persistence"
	"github.com/dfryer1193/dailycomic/internal/config"
	"github.com/dfryer1193/dailycomic/internal/middleware"
	"github.com/dfryer1193/dailycomic/internal/rest"
	"github.com/dfryer1193/dailycomic/shared/web"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	shutdownTimeout = 5 * time.Second
)

func main() {
	cfgPath := config.Path()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setLogLevel(cfg.LogLevel)

	// Initialize dependencies
	slot, err := persistence.NewFileCacheSlot(cfg.ImageDir())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare image cache")
	}

	refreshCfg := application.DefaultRefreshConfig()
	pipeline := application.NewRefreshPipeline(web.NewClient(refreshCfg.RequestTimeout), slot, refreshCfg)

	coordinator := application.NewCoordinator(pipeline, cfg.RefreshInterval())
	defer func() {
		if err := coordinator.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to gracefully close coordinator")
		}
	}()

	image := application.NewComicImage(slot, coordinator)
	coordinator.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		err := config.Watch(ctx, cfgPath, func(updated *config.Config) {
			coordinator.SetInterval(updated.RefreshInterval())
		})
		if err != nil {
			log.Warn().Err(err).Msg("Config changes will not be picked up")
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.LoggingMiddleware())
	r.Use(gin.CustomRecovery(middleware.HandlePanics()))
	rest.NewApi(r, image, coordinator)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Str("image", slot.Path()).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown server")
	}

	log.Info().Msg("Server stopped")
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("Unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
