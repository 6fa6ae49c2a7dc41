package cmd

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/viktsys/taifexbot/config"
	"github.com/viktsys/taifexbot/database"
	"github.com/viktsys/taifexbot/fetcher"
	"github.com/viktsys/taifexbot/ingest"
	"github.com/viktsys/taifexbot/logger"
)

// app holds the dependencies shared by the subcommands.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	loc       *time.Location
	db        *gorm.DB
	store     *database.Store
	processor *ingest.Processor
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.App.LogLevel, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	loc, err := cfg.App.Location()
	if err != nil {
		return nil, err
	}

	log.Info("Initializing database...")
	db, err := database.Open(cfg.Postgres, log)
	if err != nil {
		return nil, err
	}

	store := database.NewStore(db)
	processor := ingest.NewProcessor(fetcher.New(cfg.Taifex, log), store, cfg.Taifex, loc, log)

	return &app{
		cfg:       cfg,
		log:       log,
		loc:       loc,
		db:        db,
		store:     store,
		processor: processor,
	}, nil
}

func (a *app) close() {
	if err := database.Close(a.db); err != nil {
		a.log.Warnw("failed to close database", "error", err)
	}
	_ = a.log.Sync()
}
