package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dfryer1193/dailycomic/comic/application"
	"github.com/dfryer1193/dailycomic/comic/persistence"
	"github.com/dfryer1193/dailycomic/internal/config"
	"github.com/dfryer1193/dailycomic/shared/web"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// comic-fetch runs a single refresh cycle and exits. The exit code is 0 when a new
// image was cached and 1 when nothing changed.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	slot, err := persistence.NewFileCacheSlot(cfg.ImageDir())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare image cache")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	refreshCfg := application.DefaultRefreshConfig()
	pipeline := application.NewRefreshPipeline(web.NewClient(refreshCfg.RequestTimeout), slot, refreshCfg)

	result := pipeline.Execute(ctx)
	if result == nil {
		fmt.Fprintln(os.Stderr, "no update")
		stop()
		os.Exit(1)
	}

	fmt.Printf("%s\t%s\t%d bytes\n", slot.Path(), result.PublicationDate, len(result.Image))
}
