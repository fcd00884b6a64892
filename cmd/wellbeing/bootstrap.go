package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellbeing-backend/internal/config"
	httpapi "github.com/tbourn/go-wellbeing-backend/internal/http"
	"github.com/tbourn/go-wellbeing-backend/internal/line"
	"github.com/tbourn/go-wellbeing-backend/internal/observability"
	"github.com/tbourn/go-wellbeing-backend/internal/repo"
	"github.com/tbourn/go-wellbeing-backend/internal/sysutil"
)

var envFiles []string

// app is the state every subcommand starts from.
type app struct {
	cfg      config.Config
	db       *gorm.DB
	shutdown func(context.Context) error
}

// bootstrap loads configuration, sets up logging and tracing, and opens and
// migrates the database.
func bootstrap(ctx context.Context) (*app, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	sysutil.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty)

	shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, Version)
	if err != nil {
		return nil, fmt.Errorf("otel: %w", err)
	}

	db, err := repo.Open(cfg.DBDriver, cfg.DBPath, cfg.DBDSN)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info().
		Str("driver", cfg.DBDriver).
		Str("version", Version).
		Msg("storage ready")

	return &app{cfg: cfg, db: db, shutdown: shutdown}, nil
}

// platform returns the LINE collaborators, or an empty Platform when no
// access token is configured (sends then fail as not configured).
func (a *app) platform() (httpapi.Platform, error) {
	if !a.cfg.Line.Configured() {
		log.Warn().Msg("LINE access token not set; outbound messages are disabled")
		return httpapi.Platform{}, nil
	}
	client, err := line.NewClient(a.cfg.Line, nil)
	if err != nil {
		return httpapi.Platform{}, err
	}
	return httpapi.Platform{Messenger: client, Profiles: client}, nil
}

func (a *app) services() (*httpapi.Services, error) {
	p, err := a.platform()
	if err != nil {
		return nil, err
	}
	return httpapi.NewServices(a.db, a.cfg, p)
}

func (a *app) close(ctx context.Context) {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := a.shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
}
