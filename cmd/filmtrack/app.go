package main

import (
	"io"

	"github.com/BearBump/FilmTrack/config"
	"github.com/BearBump/FilmTrack/internal/integrations/status"
	"github.com/BearBump/FilmTrack/internal/integrations/status/vendors"
	"github.com/BearBump/FilmTrack/internal/logging"
	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/BearBump/FilmTrack/internal/storage/sqliteorders"
)

const defaultDBPath = "filmtrack.db"

type cliApp struct {
	configPath string
	dbPath     string

	out    io.Writer
	stores *models.StoreCatalog

	newRegistry func(cfg *config.Config) (*status.Registry, error)
}

func newCLIApp(out io.Writer) *cliApp {
	return &cliApp{
		out:    out,
		stores: models.NewStoreCatalog(models.DefaultStoreModels()),
		newRegistry: func(cfg *config.Config) (*status.Registry, error) {
			// no shared limiter for a single local user
			return vendors.NewRegistry(cfg.Providers, nil)
		},
	}
}

// loadConfig reads --config when given; without it built-in defaults apply.
func (a *cliApp) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if a.configPath == "" {
		cfg = &config.Config{}
	} else {
		c, err := config.LoadConfig(a.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	level := cfg.Logging.Level
	if level == "" {
		// failures already show up in the status column
		level = "error"
	}
	logging.Init(level, "text")
	return cfg, nil
}

func (a *cliApp) openStore(cfg *config.Config) (*sqliteorders.Store, error) {
	path := a.dbPath
	if path == "" {
		path = cfg.FilmTrack.SQLitePath
	}
	if path == "" {
		path = defaultDBPath
	}
	return sqliteorders.Open(path)
}
