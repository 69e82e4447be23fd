// Package sqliteorders keeps the CLI's tracked orders in a local SQLite file.
package sqliteorders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database file and runs migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS film_orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  shop_id TEXT NOT NULL,
  order_number TEXT NOT NULL,
  ht_number TEXT NOT NULL DEFAULT '',
  added_at TEXT NOT NULL,
  state TEXT NOT NULL DEFAULT 'UNKNOWN',
  state_text TEXT NOT NULL DEFAULT '',
  state_at TEXT NULL,
  last_checked_at TEXT NULL,
  UNIQUE (shop_id, order_number)
)`)
	return errors.Wrap(err, "migrate")
}

// AddOrder inserts the order or returns the already tracked one.
func (s *Store) AddOrder(ctx context.Context, in models.OrderCreateInput) (*models.TrackedOrder, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO film_orders (provider_id, store_id, shop_id, order_number, ht_number, added_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (shop_id, order_number) DO NOTHING
`, in.ProviderID, in.StoreID, in.ShopID, in.OrderNumber, in.HTNumber, formatTime(now))
	if err != nil {
		return nil, errors.Wrap(err, "insert order")
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM film_orders WHERE shop_id = ? AND order_number = ?`,
		in.ShopID, in.OrderNumber)
	return scanOrder(row)
}

// ListOrders returns all orders, oldest first.
func (s *Store) ListOrders(ctx context.Context) ([]*models.TrackedOrder, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM film_orders ORDER BY added_at ASC, id ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var out []*models.TrackedOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, errors.Wrap(rows.Err(), "rows")
}

func (s *Store) RemoveOrder(ctx context.Context, id uint64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM film_orders WHERE id = ?`, id)
	if err != nil {
		return false, errors.Wrap(err, "delete order")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return n > 0, nil
}

// SaveStatus records the last successful status. ERROR statuses are not stored.
func (s *Store) SaveStatus(ctx context.Context, id uint64, st models.FilmStatus, checkedAt time.Time) error {
	if st.IsError() {
		_, err := s.db.ExecContext(ctx, `UPDATE film_orders SET last_checked_at = ? WHERE id = ?`, formatTime(checkedAt), id)
		return errors.Wrap(err, "update checked_at")
	}
	var stateAt *string
	if st.StateDate != nil {
		v := formatTime(*st.StateDate)
		stateAt = &v
	}
	_, err := s.db.ExecContext(ctx, `
UPDATE film_orders
SET state = ?, state_text = ?, state_at = ?, last_checked_at = ?
WHERE id = ?
`, string(st.State), st.StateText, stateAt, formatTime(checkedAt), id)
	return errors.Wrap(err, "update status")
}

const columns = `id, provider_id, store_id, shop_id, order_number, ht_number, added_at,
  state, state_text, state_at, last_checked_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(sc scanner) (*models.TrackedOrder, error) {
	var o models.TrackedOrder
	var addedAt, state string
	var stateAt, lastChecked sql.NullString
	if err := sc.Scan(&o.ID, &o.ProviderID, &o.StoreID, &o.ShopID, &o.OrderNumber, &o.HTNumber, &addedAt,
		&state, &o.StateText, &stateAt, &lastChecked); err != nil {
		return nil, errors.Wrap(err, "scan order")
	}
	o.State = models.OrderState(state)

	var err error
	if o.AddedAt, err = parseTime(addedAt); err != nil {
		return nil, err
	}
	if o.StateAt, err = parseNullTime(stateAt); err != nil {
		return nil, err
	}
	if o.LastCheckedAt, err = parseNullTime(lastChecked); err != nil {
		return nil, err
	}
	o.CreatedAt = o.AddedAt
	return &o, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	return t, errors.Wrap(err, "parse time")
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
