package pgorders

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS film_orders (
  id BIGSERIAL PRIMARY KEY,
  provider_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  shop_id TEXT NOT NULL,
  order_number TEXT NOT NULL,
  ht_number TEXT NOT NULL DEFAULT '',
  added_at TIMESTAMPTZ NOT NULL,
  state TEXT NOT NULL,
  state_text TEXT NOT NULL DEFAULT '',
  state_at TIMESTAMPTZ NULL,
  last_checked_at TIMESTAMPTZ NULL,
  next_check_at TIMESTAMPTZ NOT NULL,
  last_error TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  UNIQUE (shop_id, order_number)
)`,
		`CREATE INDEX IF NOT EXISTS idx_film_orders_next_check_at ON film_orders(next_check_at)`,
		`CREATE INDEX IF NOT EXISTS idx_film_orders_added_at ON film_orders(added_at DESC)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
