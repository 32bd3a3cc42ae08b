package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-planner/internal/config"
	"github.com/adanyl0v/go-planner/internal/delivery/http/v1"
	"github.com/adanyl0v/go-planner/internal/services"
	"github.com/adanyl0v/go-planner/internal/storage"
)

// App owns the process wide dependencies. Close must be called once done.
type App struct {
	Logger zerolog.Logger
	Config *config.Config

	pool *pgxpool.Pool

	Auth    services.AuthService
	Tasks   services.TaskService
	Users   services.UserService
	Friends services.FriendService
}

func New(ctx context.Context) (*App, error) {
	logger := NewDefaultLogger()

	cfg, err := ReadEnv(logger)
	if err != nil {
		return nil, err
	}

	logger, err = NewApplicationLogger(logger, cfg.Env)
	if err != nil {
		return nil, err
	}

	pool, err := ConnectPostgres(ctx, logger, cfg.Postgres)
	if err != nil {
		return nil, err
	}

	jwtCfg := cfg.JWT
	return &App{
		Logger: logger,
		Config: cfg,
		pool:   pool,
		Auth: services.NewAuthService(
			logger,
			pool,
			jwtCfg.Issuer,
			[]byte(jwtCfg.SigningKey),
			jwtCfg.AccessTokenTTL,
		),
		Tasks:   services.NewTaskService(logger, pool, cfg.Workload.DefaultCapacity),
		Users:   services.NewUserService(logger, pool),
		Friends: services.NewFriendService(logger, pool),
	}, nil
}

// Serve runs the http api until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	uploadCfg := a.Config.Upload
	err := uploadCfg.Validate()
	if err != nil {
		a.Logger.Error().
			Err(err).
			Msg("invalid upload config")
		return err
	}
	objectStorage, err := storage.NewS3(ctx, storage.S3Options{
		Bucket:        uploadCfg.S3Bucket,
		Region:        uploadCfg.S3Region,
		Endpoint:      uploadCfg.S3Endpoint,
		UsePathStyle:  uploadCfg.S3UsePathStyle,
		PublicBaseURL: uploadCfg.PublicBaseURL,
	})
	if err != nil {
		a.Logger.Error().
			Err(err).
			Msg("failed to init object storage")
		return err
	}
	uploads := services.NewUploadService(
		a.Logger,
		objectStorage,
		a.Users,
		uploadCfg.MaxSize,
		uploadCfg.KeyPrefix,
	)

	v1Handler := v1.New(
		a.Logger,
		a.Auth,
		a.Tasks,
		a.Users,
		a.Friends,
		uploads,
		uploadCfg.MaxSize,
	)
	handler := newHTTPHandler(a.Logger, a.Config.Env, a.Config.HTTP, a.pool, v1Handler)
	return serveHTTP(ctx, a.Logger, a.Config.HTTP, handler)
}

func (a *App) Close() {
	a.pool.Close()
	a.Logger.Info().Msg("disconnected from postgres")
}
