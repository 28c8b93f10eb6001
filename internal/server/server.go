// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/castnet/internal/analysis"
	"github.com/OFFIS-RIT/castnet/internal/config"
	mid "github.com/OFFIS-RIT/castnet/internal/server/middleware"
	"github.com/OFFIS-RIT/castnet/internal/server/util"
	"github.com/OFFIS-RIT/castnet/internal/storage"
	"github.com/OFFIS-RIT/castnet/pkg/logger"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-playground/validator"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New builds the HTTP server around app.
func New(app *mid.App, bodyLimit string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))

	RegisterRoutes(e)
	return e
}

// Init serves the API until SIGINT or SIGTERM.
func Init(cfg *config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &mid.App{
		Runs:         util.NewRunRegistry(cfg.Analysis.MaxActiveRuns, cfg.Analysis.ResultTTL),
		MasterAPIKey: cfg.Auth.MasterAPIKey,
	}

	if cfg.Auth.URL != "" {
		jwksUrl := cfg.Auth.URL + "/jwks"
		k, err := keyfunc.NewDefault([]string{jwksUrl})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		app.Key = k
	}

	var objects *s3.Client
	if cfg.S3.Enabled() {
		client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			logger.Fatal("Failed to create S3 client", "err", err)
		}
		objects = client
		app.Results = storage.NewResultStore(client, cfg.S3.Bucket, cfg.S3.ResultsPrefix)
	}

	if objects != nil {
		app.Books = analysis.NewBooks(objects, cfg.S3.Bucket, false)
	} else {
		app.Books = analysis.NewBooks(nil, "", false)
	}

	svc, err := analysis.NewServiceFromConfig(cfg, app.Books)
	if err != nil {
		logger.Fatal("Failed to create analysis service", "err", err)
	}
	app.Service = svc

	go app.Runs.SweepEvery(ctx, time.Minute)

	e := New(app, cfg.App.BodyLimit)

	go func() {
		logger.Info("Starting server", "port", cfg.App.Port)
		if err := e.Start(":" + cfg.App.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
