package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tourguide/tourguide-api/internal/app"
	"github.com/tourguide/tourguide-api/internal/auth"
	"github.com/tourguide/tourguide-api/internal/observability"
	"github.com/tourguide/tourguide-api/internal/rbac"
	"github.com/tourguide/tourguide-api/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	secret := []byte(cfg.AccessTokenSecret)
	issuer, err := auth.NewIssuer(secret)
	if err != nil {
		return err
	}
	verifier, err := auth.NewVerifier(secret)
	if err != nil {
		return err
	}

	repo, closeStore, err := app.OpenAccountStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := closeStore(closeCtx); err != nil {
			logger.Warn("close store", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	usersService := users.NewService(repo, users.ServiceConfig{StoreTimeout: cfg.StoreTimeout})
	authMiddleware := auth.Middleware{Verifier: verifier, Logger: logger, Recorder: metrics}
	rbacMiddleware := rbac.Middleware{Resolver: usersService, Logger: logger, Recorder: metrics}

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		AuthHandler:  auth.NewHandler(logger, issuer),
		UsersHandler: users.NewHandler(logger, usersService, authMiddleware, rbacMiddleware),
		Metrics:      metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
