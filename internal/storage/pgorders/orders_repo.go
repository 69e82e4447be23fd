package pgorders

import (
	"context"
	"time"

	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const orderColumns = `
  id, provider_id, store_id, shop_id, order_number, ht_number, added_at,
  state, state_text, state_at, last_checked_at, next_check_at, last_error,
  created_at, updated_at`

// StatusUpdate is the outcome of one worker check.
type StatusUpdate struct {
	OrderID uint64

	CheckedAt time.Time

	State     models.OrderState
	StateText string
	StateAt   *time.Time

	NextCheckAt time.Time

	Error *string
}

// CreateOrGetOrders inserts the orders, returning the existing row for an
// already tracked (shop_id, order_number). Output follows input order.
func (s *Storage) CreateOrGetOrders(ctx context.Context, items []models.OrderCreateInput) ([]*models.TrackedOrder, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]uint64, 0, len(items))
	for _, it := range items {
		var id uint64
		err := tx.QueryRow(ctx, `
INSERT INTO film_orders (
  provider_id, store_id, shop_id, order_number, ht_number, added_at,
  state, next_check_at, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$6,$6,$6)
ON CONFLICT (shop_id, order_number)
DO UPDATE SET updated_at = film_orders.updated_at
RETURNING id
`, it.ProviderID, it.StoreID, it.ShopID, it.OrderNumber, it.HTNumber, now, string(models.OrderStateUnknown)).Scan(&id)
		if err != nil {
			return nil, errors.Wrap(err, "insert order")
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}

	got, err := s.GetOrdersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]*models.TrackedOrder, len(got))
	for _, o := range got {
		byID[o.ID] = o
	}
	out := make([]*models.TrackedOrder, 0, len(ids))
	for _, id := range ids {
		if o, ok := byID[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Storage) GetOrdersByIDs(ctx context.Context, ids []uint64) ([]*models.TrackedOrder, error) {
	if len(ids) == 0 {
		return []*models.TrackedOrder{}, nil
	}

	rows, err := s.db.Query(ctx, `SELECT `+orderColumns+` FROM film_orders WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "select orders")
	}
	return collectOrders(rows, len(ids))
}

func (s *Storage) ListOrders(ctx context.Context, limit, offset int) ([]*models.TrackedOrder, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `SELECT `+orderColumns+`
FROM film_orders
ORDER BY added_at DESC, id DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return collectOrders(rows, limit)
}

// DeleteOrder reports whether a row was removed.
func (s *Storage) DeleteOrder(ctx context.Context, id uint64) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM film_orders WHERE id = $1`, id)
	if err != nil {
		return false, errors.Wrap(err, "delete order")
	}
	return tag.RowsAffected() > 0, nil
}

// RefreshOrder makes the order due now and reports whether it exists.
// A DONE order drops back to UNKNOWN so the poller claims it again.
func (s *Storage) RefreshOrder(ctx context.Context, id uint64) (bool, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE film_orders
SET
  state = CASE WHEN state = $2 THEN $3 ELSE state END,
  next_check_at = now(),
  updated_at = now()
WHERE id = $1
`, id, string(models.OrderStateDone), string(models.OrderStateUnknown))
	if err != nil {
		return false, errors.Wrap(err, "refresh order")
	}
	return tag.RowsAffected() > 0, nil
}

// ClaimDueOrders picks a batch of orders due for a check and leases them so
// that concurrent workers skip them. Uses SELECT ... FOR UPDATE SKIP LOCKED.
func (s *Storage) ClaimDueOrders(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.TrackedOrder, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `SELECT `+orderColumns+`
FROM film_orders
WHERE next_check_at <= $1
  AND state <> $2
ORDER BY next_check_at ASC
LIMIT $3
FOR UPDATE SKIP LOCKED
`, now.UTC(), string(models.OrderStateDone), limit)
	if err != nil {
		return nil, errors.Wrap(err, "select due orders")
	}
	picked, err := collectOrders(rows, limit)
	if err != nil {
		return nil, err
	}

	leaseUntil := now.UTC().Add(lease)
	for _, o := range picked {
		_, err := tx.Exec(ctx, `UPDATE film_orders SET next_check_at = $2, updated_at = now() WHERE id = $1`, o.ID, leaseUntil)
		if err != nil {
			return nil, errors.Wrap(err, "lease order")
		}
		o.NextCheckAt = leaseUntil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return picked, nil
}

// ApplyStatusUpdate stores a check result. A failed check keeps the last
// known state and only records the error.
func (s *Storage) ApplyStatusUpdate(ctx context.Context, upd StatusUpdate) error {
	if upd.Error != nil && *upd.Error != "" {
		_, err := s.db.Exec(ctx, `
UPDATE film_orders
SET
  last_checked_at = $2,
  last_error = $3,
  next_check_at = $4,
  updated_at = now()
WHERE id = $1
`, upd.OrderID, upd.CheckedAt.UTC(), *upd.Error, upd.NextCheckAt.UTC())
		return errors.Wrap(err, "update order (error)")
	}

	_, err := s.db.Exec(ctx, `
UPDATE film_orders
SET
  state = $3,
  state_text = $4,
  state_at = $5,
  last_checked_at = $2,
  last_error = NULL,
  next_check_at = $6,
  updated_at = now()
WHERE id = $1
`, upd.OrderID, upd.CheckedAt.UTC(), string(upd.State), upd.StateText, upd.StateAt, upd.NextCheckAt.UTC())
	return errors.Wrap(err, "update order (ok)")
}

func collectOrders(rows pgx.Rows, capHint int) ([]*models.TrackedOrder, error) {
	defer rows.Close()

	out := make([]*models.TrackedOrder, 0, capHint)
	for rows.Next() {
		var o models.TrackedOrder
		var state string
		if err := rows.Scan(
			&o.ID, &o.ProviderID, &o.StoreID, &o.ShopID, &o.OrderNumber, &o.HTNumber, &o.AddedAt,
			&state, &o.StateText, &o.StateAt, &o.LastCheckedAt, &o.NextCheckAt, &o.LastError,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		o.State = models.OrderState(state)
		out = append(out, &o)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
