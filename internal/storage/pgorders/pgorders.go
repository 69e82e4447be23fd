package pgorders

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type Storage struct {
	db *pgxpool.Pool
}

// The pool serves the api handlers, the status consumer and worker claims.
const (
	maxPoolConns = 10
	minPoolConns = 1
)

func New(connString string) (*Storage, error) {
	cfg, err := poolConfig(connString)
	if err != nil {
		return nil, err
	}

	db, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pg")
	}

	s := &Storage{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func poolConfig(connString string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "parse pg config")
	}
	// an explicit pool_max_conns in the DSN wins
	if !strings.Contains(connString, "pool_max_conns") {
		cfg.MaxConns = maxPoolConns
	}
	cfg.MinConns = minPoolConns
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	return cfg, nil
}

func (s *Storage) Close() {
	if s.db != nil {
		s.db.Close()
	}
}
