package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/natthaphon/secretkeeper/internal/auth"
	"github.com/natthaphon/secretkeeper/internal/config"
	"github.com/natthaphon/secretkeeper/internal/handler"
	"github.com/natthaphon/secretkeeper/internal/metrics"
	"github.com/natthaphon/secretkeeper/internal/middleware"
	"github.com/natthaphon/secretkeeper/internal/repository"
	"github.com/natthaphon/secretkeeper/internal/session"
	"github.com/natthaphon/secretkeeper/internal/view"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to disconnect from mongodb")
		}
	}()

	if err := client.Ping(ctx, nil); err != nil {
		logger.Fatal().Err(err).Msg("failed to reach mongodb")
	}

	db := client.Database(cfg.Mongo.Database)
	users := repository.NewUserMongoRepository(ctx, &logger, db)

	sessions := session.NewManager(users, session.Config{
		CookieName:   cfg.Session.CookieName,
		CookieDomain: cfg.Session.CookieDomain,
		CookieSecure: cfg.Session.CookieSecure,
		TTL:          cfg.Session.TTL,
	}, &logger)
	defer sessions.Close()

	states := auth.NewStateSigner([]byte(cfg.Session.Secret), 0)
	local := auth.NewLocalAuthenticator(users)
	federated := auth.NewFederatedAuthenticator(users, states, &logger)

	google := auth.NewGoogleProvider(auth.GoogleConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.CallbackURL,
		Timeout:      cfg.Google.Timeout,
	})
	facebook := auth.NewFacebookProvider(auth.FacebookConfig{
		ClientID:     cfg.Facebook.ClientID,
		ClientSecret: cfg.Facebook.ClientSecret,
		RedirectURL:  cfg.Facebook.CallbackURL,
		Timeout:      cfg.Facebook.Timeout,
	})

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer rateLimiter.Stop()

	renderer := view.NewRenderer(&logger)

	router := handler.NewRouter(&handler.RouterDeps{
		Auth:        handler.NewAuthHandler(local, federated, sessions, renderer, collector, &logger),
		Secrets:     handler.NewSecretsHandler(users, renderer, collector, &logger),
		Sessions:    sessions,
		Google:      google,
		Facebook:    facebook,
		Metrics:     collector,
		Gatherer:    registry,
		RateLimiter: rateLimiter,
		Logger:      &logger,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("port", cfg.Server.Port).Str("base_url", cfg.Server.BaseURL).Msg("server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-stopCtx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
