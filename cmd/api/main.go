package main

import (
	"context"

	"spotfinder_go_backend/cmd/api/config"
	"spotfinder_go_backend/internal/app"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	app.SetupLogger(cfg.LogLevel, cfg.LogFormat, nil)

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise application")
	}

	log.Info().Str("port", cfg.Port).Msg("Server starting")
	if err := application.Router().Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
