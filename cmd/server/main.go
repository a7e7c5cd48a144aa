// Command server runs the bucket gateway HTTP API.
//
// @title                       Bucketgate API
// @version                     1.0
// @description                 Login, token refresh and scoped access to S3 buckets.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/s3ui/bucketgate/internal/api"
	"github.com/s3ui/bucketgate/internal/api/handler"
	"github.com/s3ui/bucketgate/internal/core/service"
	"github.com/s3ui/bucketgate/internal/core/validation"
	"github.com/s3ui/bucketgate/internal/infrastructure/awsclients"
	mongostore "github.com/s3ui/bucketgate/internal/infrastructure/db/mongo"
	redisstore "github.com/s3ui/bucketgate/internal/infrastructure/db/redis"
	"github.com/s3ui/bucketgate/internal/pkg/config"
	"github.com/s3ui/bucketgate/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log := logger.Get()
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{Service: "bucketgate"})
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "bucketgate",
	})

	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "bucketgate",
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	users := mongostore.NewAuthRepository(db, cfg.Mongo.UsersCollection)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}

	health := map[string]func(context.Context) error{
		"mongodb": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
	}

	registry := cfg.Registry()
	tokens := service.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	passwords := validation.DefaultPasswordPolicy()
	authOpts := []service.AuthOption{service.WithPasswordPolicy(passwords)}

	if cfg.Auth.TokenRevocation {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		authOpts = append(authOpts, service.WithRevocation(redisstore.NewRevocationStore(rdb)))
		health["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info().Str("addr", cfg.Redis.Addr).Msg("token revocation enabled")
	}

	clients, err := awsclients.BuildClients(ctx, registry)
	if err != nil {
		return err
	}

	authService := service.NewAuthService(users, tokens, registry, log, authOpts...)
	storageService := service.NewStorageService(registry, clients, log)

	e := api.NewRouter(api.Deps{
		Auth:             authService,
		Storage:          storageService,
		Validator:        handler.NewValidator(passwords, validation.DefaultFileNamePolicy()),
		Health:           health,
		Log:              log,
		StaticDir:        cfg.StaticDir,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Strs("buckets", registry.Names()).Msg("listening")
		errCh <- e.StartServer(srv)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}
