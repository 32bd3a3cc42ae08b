package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-planner/internal/config"
	"github.com/adanyl0v/go-planner/internal/delivery/http/v1"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func newHTTPHandler(
	logger zerolog.Logger,
	env string,
	httpCfg config.HTTPConfig,
	db pinger,
	v1Handler v1.Handler,
) http.Handler {
	if env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		err := db.Ping(ctx)
		if err != nil {
			logger.Error().
				Err(err).
				Msg("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	v1.Register(router, v1Handler)

	allowedOrigins := httpCfg.CORSAllowedOrigins
	if len(allowedOrigins) == 0 {
		logger.Warn().Msg("no cors origins configured, allowing every origin")
		allowedOrigins = []string{"*"}
	}
	logger.Info().
		Strs("origins", allowedOrigins).
		Msg("configured cors")

	return gorillahandlers.CORS(
		gorillahandlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"}),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillahandlers.AllowedOrigins(allowedOrigins),
	)(router)
}

// serveHTTP blocks until ctx is done and then shuts the server down.
func serveHTTP(ctx context.Context, logger zerolog.Logger, httpCfg config.HTTPConfig, handler http.Handler) error {
	server := &http.Server{
		Addr:              net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		return err
	}
	logger.Info().Msg("shut down http server")
	return nil
}
