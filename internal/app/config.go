package app

import (
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-planner/internal/config"
)

func ReadEnv(logger zerolog.Logger) (*config.Config, error) {
	cfg, err := config.NewEnvReader().Read()
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to read env")
		return nil, err
	}
	logger.Info().
		Str("env", cfg.Env).
		Msg("read env")
	return cfg, nil
}
