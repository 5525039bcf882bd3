package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/honey001700-lgtm/Durazno/internal/config"
	"github.com/honey001700-lgtm/Durazno/internal/discord"
	"github.com/honey001700-lgtm/Durazno/internal/logging"
	"github.com/honey001700-lgtm/Durazno/internal/storage"
	"github.com/honey001700-lgtm/Durazno/internal/version"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Configuration error")
	}

	logging.Setup(cfg.LogLevel, cfg.LogFile)
	log.Info().Str("version", version.Version).Msgf("Starting %s", version.AppName)

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.StoragePath).Msg("Datastore open failed")
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		cancel()
	}()

	if err := discord.StartBot(ctx, cfg, store); err != nil {
		log.Fatal().Err(err).Msg("Bot exited with error")
	}

	log.Info().Msg("Goodbye")
}
