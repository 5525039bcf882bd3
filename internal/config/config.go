package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the bot reads from the environment.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required"`

	// StoragePath is the JSON datastore file for playlists and
	// channel allowlists.
	StoragePath string `env:"STORAGE_PATH" envDefault:"data/durazno.json"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	// Optional local audio cues, played best-effort on voice
	// connect/disconnect. Empty disables them.
	GreetingSound string `env:"GREETING_SOUND"`
	FarewellSound string `env:"FAREWELL_SOUND"`
}

// New loads .env (if present) and parses the environment.
func New() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
