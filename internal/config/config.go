package config

import "time"

const (
	EnvDev   = "dev"
	EnvProd  = "prod"
	EnvLocal = "local"
)

type Config struct {
	Env      string `env:"ENV" env-required:"true"`
	HTTP     HTTPConfig
	Postgres PostgresConfig
	JWT      JWTConfig
	Workload WorkloadConfig
	Upload   UploadConfig
}

type HTTPConfig struct {
	Host            string        `env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `env:"HTTP_PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
	// Comma separated. Empty allows every origin.
	CORSAllowedOrigins []string `env:"HTTP_CORS_ALLOWED_ORIGINS" env-separator:","`
}

type PostgresConfig struct {
	Host           string        `env:"POSTGRES_HOST" env-required:"true"`
	Port           int           `env:"POSTGRES_PORT" env-default:"5432"`
	Username       string        `env:"POSTGRES_USERNAME" env-required:"true"`
	Password       string        `env:"POSTGRES_PASSWORD" env-required:"true"`
	Database       string        `env:"POSTGRES_DATABASE" env-required:"true"`
	SSLMode        string        `env:"POSTGRES_SSL_MODE" env-default:"disable"`
	ConnectTimeout time.Duration `env:"POSTGRES_CONNECT_TIMEOUT" env-default:"10s"`
	PingTimeout    time.Duration `env:"POSTGRES_PING_TIMEOUT" env-default:"10s"`
}

type JWTConfig struct {
	Issuer         string        `env:"JWT_ISSUER" env-default:"go-planner"`
	SigningKey     string        `env:"JWT_SIGNING_KEY" env-required:"true"`
	AccessTokenTTL time.Duration `env:"JWT_ACCESS_TOKEN_TTL" env-default:"1h"`
}

type WorkloadConfig struct {
	// Hours per day used for users without an explicit capacity.
	DefaultCapacity float64 `env:"WORKLOAD_DEFAULT_CAPACITY" env-default:"8"`
}

// UploadConfig is only needed by the http api. Call Validate before using it.
type UploadConfig struct {
	MaxSize        int64  `env:"UPLOAD_MAX_SIZE" env-default:"5242880"`
	S3Bucket       string `env:"UPLOAD_S3_BUCKET"`
	S3Region       string `env:"UPLOAD_S3_REGION" env-default:"us-east-1"`
	S3Endpoint     string `env:"UPLOAD_S3_ENDPOINT"`
	S3UsePathStyle bool   `env:"UPLOAD_S3_USE_PATH_STYLE" env-default:"false"`
	PublicBaseURL  string `env:"UPLOAD_PUBLIC_BASE_URL"`
	KeyPrefix      string `env:"UPLOAD_KEY_PREFIX" env-default:"profile-pictures"`
}
