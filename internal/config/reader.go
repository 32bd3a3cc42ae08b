package config

import (
	"errors"
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type Reader interface {
	Read() (*Config, error)
}

type EnvReader struct{}

func NewEnvReader() EnvReader {
	return EnvReader{}
}

func (EnvReader) Read() (*Config, error) {
	cfg := new(Config)
	err := cleanenv.ReadEnv(cfg)
	if err != nil {
		return nil, err
	}

	err = cfg.validate()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.Env {
	case EnvDev, EnvProd, EnvLocal:
	default:
		return fmt.Errorf("unknown env: %s", cfg.Env)
	}
	if cfg.Workload.DefaultCapacity <= 0 {
		return fmt.Errorf("workload default capacity must be positive, got %v", cfg.Workload.DefaultCapacity)
	}
	if cfg.Upload.MaxSize <= 0 {
		return fmt.Errorf("upload max size must be positive, got %d", cfg.Upload.MaxSize)
	}
	return nil
}

func (cfg UploadConfig) Validate() error {
	if cfg.S3Bucket == "" {
		return errors.New("UPLOAD_S3_BUCKET is required")
	}
	if cfg.PublicBaseURL == "" {
		return errors.New("UPLOAD_PUBLIC_BASE_URL is required")
	}
	return nil
}
