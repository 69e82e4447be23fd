package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/BearBump/FilmTrack/internal/broker/messages"
	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/BearBump/FilmTrack/internal/services/batch"
	"github.com/BearBump/FilmTrack/internal/storage/pgorders"
	"github.com/pkg/errors"
)

// maxBatchItems caps both AddOrders and CheckOrders.
const maxBatchItems = 1000

var (
	ErrNotFound   = errors.New("order not found")
	ErrValidation = errors.New("validation failed")
)

type Repository interface {
	CreateOrGetOrders(ctx context.Context, items []models.OrderCreateInput) ([]*models.TrackedOrder, error)
	GetOrdersByIDs(ctx context.Context, ids []uint64) ([]*models.TrackedOrder, error)
	ListOrders(ctx context.Context, limit, offset int) ([]*models.TrackedOrder, error)
	DeleteOrder(ctx context.Context, id uint64) (bool, error)
	RefreshOrder(ctx context.Context, id uint64) (bool, error)
	ApplyStatusUpdate(ctx context.Context, upd pgorders.StatusUpdate) error
}

type Fetcher interface {
	Fetch(ctx context.Context, orders []models.FilmOrder) ([]batch.OrderStatus, error)
}

// CheckedOrder is a stored order with a freshly fetched status.
type CheckedOrder struct {
	Order  *models.TrackedOrder
	Status models.FilmStatus
}

type Service struct {
	repo    Repository
	fetcher Fetcher
	stores  *models.StoreCatalog
}

func New(repo Repository, fetcher Fetcher, stores *models.StoreCatalog) *Service {
	return &Service{repo: repo, fetcher: fetcher, stores: stores}
}

func (s *Service) Stores() []models.StoreModel {
	return s.stores.All()
}

func (s *Service) AddOrders(ctx context.Context, items []models.OrderCreateInput) ([]*models.TrackedOrder, error) {
	if len(items) == 0 {
		return nil, errors.Wrap(ErrValidation, "items is empty")
	}
	if len(items) > maxBatchItems {
		return nil, errors.Wrapf(ErrValidation, "too many items (max %d)", maxBatchItems)
	}

	clean := make([]models.OrderCreateInput, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		in, err := Prepare(s.stores, it)
		if err != nil {
			return nil, err
		}
		k := fmt.Sprintf("%s|%s", in.ShopID, in.OrderNumber)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		clean = append(clean, in)
	}

	return s.repo.CreateOrGetOrders(ctx, clean)
}

// Prepare validates one input against its store model and assigns the provider.
func Prepare(stores *models.StoreCatalog, in models.OrderCreateInput) (models.OrderCreateInput, error) {
	if in.StoreID == "" {
		return in, errors.Wrap(ErrValidation, "storeId is required")
	}
	store, ok := stores.Get(in.StoreID)
	if !ok {
		return in, errors.Wrapf(ErrValidation, "unknown store %q", in.StoreID)
	}
	// identity fields are always required, whatever the store model says
	if in.ShopID == "" {
		return in, errors.Wrap(ErrValidation, "shopId is required")
	}
	if in.OrderNumber == "" {
		return in, errors.Wrap(ErrValidation, "orderNumber is required")
	}
	if err := store.Validate(in); err != nil {
		return in, errors.Wrap(ErrValidation, err.Error())
	}
	in.ProviderID = store.ProviderID
	return in, nil
}

func (s *Service) ListOrders(ctx context.Context, limit, offset int) ([]*models.TrackedOrder, error) {
	return s.repo.ListOrders(ctx, limit, offset)
}

// GetOrdersByIDs returns the known orders in the order of ids; unknown ids are skipped.
func (s *Service) GetOrdersByIDs(ctx context.Context, ids []uint64) ([]*models.TrackedOrder, error) {
	if len(ids) == 0 {
		return []*models.TrackedOrder{}, nil
	}
	got, err := s.repo.GetOrdersByIDs(ctx, ids)
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

func (s *Service) RemoveOrder(ctx context.Context, id uint64) error {
	if id == 0 {
		return errors.Wrap(ErrValidation, "orderId is required")
	}
	removed, err := s.repo.DeleteOrder(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}

func (s *Service) RefreshOrder(ctx context.Context, id uint64) error {
	if id == 0 {
		return errors.Wrap(ErrValidation, "orderId is required")
	}
	found, err := s.repo.RefreshOrder(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// CheckOrders fetches the live status of the given orders. One pair is
// returned per known order, failed fetches included as ERROR statuses.
func (s *Service) CheckOrders(ctx context.Context, ids []uint64) ([]CheckedOrder, error) {
	if len(ids) > maxBatchItems {
		return nil, errors.Wrapf(ErrValidation, "too many ids (max %d)", maxBatchItems)
	}
	tracked, err := s.GetOrdersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	films := make([]models.FilmOrder, 0, len(tracked))
	for _, o := range tracked {
		films = append(films, o.Film())
	}

	res, err := s.fetcher.Fetch(ctx, films)
	if err != nil {
		return nil, err
	}
	out := make([]CheckedOrder, 0, len(res))
	for i, r := range res {
		out = append(out, CheckedOrder{Order: tracked[i], Status: r.Status})
	}
	return out, nil
}

// ApplyStatusUpdate persists a worker result received from the broker.
func (s *Service) ApplyStatusUpdate(ctx context.Context, msg messages.FilmStatusUpdated) error {
	if msg.OrderID == 0 {
		return errors.Wrap(ErrValidation, "order_id is required")
	}
	if msg.CheckedAt.IsZero() {
		msg.CheckedAt = time.Now().UTC()
	}
	if msg.NextCheckAt.IsZero() {
		// worker did not schedule: check again in an hour
		msg.NextCheckAt = msg.CheckedAt.Add(60 * time.Minute)
	}

	return s.repo.ApplyStatusUpdate(ctx, pgorders.StatusUpdate{
		OrderID:     msg.OrderID,
		CheckedAt:   msg.CheckedAt,
		State:       msg.State,
		StateText:   msg.StateText,
		StateAt:     msg.StateAt,
		NextCheckAt: msg.NextCheckAt,
		Error:       msg.Error,
	})
}
