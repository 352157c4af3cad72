package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"loanterms/internal/auth"
	"loanterms/internal/bootstrap"
	"loanterms/internal/config"
	"loanterms/internal/handler"
	"loanterms/internal/logger"
	"loanterms/internal/metrics"
	"loanterms/internal/middleware"
	"loanterms/internal/router"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, cfg, zl, true)
	if err != nil {
		return err
	}
	defer app.Close()

	var tokens middleware.TokenValidator
	if cfg.JWT.Secret != "" {
		ts, err := auth.NewTokenService(cfg.JWT)
		if err != nil {
			return fmt.Errorf("failed to initialize token service: %w", err)
		}
		tokens = ts
	} else {
		zl.Warn("jwt.secret is empty; /api/v1 is unauthenticated")
	}

	var m *metrics.Metrics
	if cfg.Server.MetricsEnabled {
		m = app.Metrics
	}

	termsH := handler.NewTermsHandler(app.Terms, cfg.Server.MaxBodyBytes)
	healthH := handler.NewHealthHandler(app.Terms)
	r := router.Setup(zl, m, tokens, cfg.CORS.AllowedOrigins, termsH, healthH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		zl.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	zl.Info("server stopped")
	return nil
}
