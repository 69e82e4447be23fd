package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/BearBump/FilmTrack/internal/integrations/status"
	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/pkg/errors"
)

type Resolver interface {
	Resolve(id string) (status.Provider, error)
}

// OrderStatus pairs an order with the status fetched for it.
type OrderStatus struct {
	Order  models.FilmOrder
	Status models.FilmStatus
}

// Fetcher fetches the status of many orders. A failing order is reported as an
// ERROR status in its own slot and never stops the others.
type Fetcher struct {
	reg         Resolver
	concurrency int
}

func New(reg Resolver) *Fetcher {
	return &Fetcher{reg: reg, concurrency: 1}
}

// WithConcurrency bounds the number of in-flight vendor calls. 1 means sequential.
func (f *Fetcher) WithConcurrency(n int) *Fetcher {
	if n > 0 {
		f.concurrency = n
	}
	return f
}

// Fetch returns one result per order, in input order. When ctx is cancelled
// before all orders are done, in-flight calls are aborted and the partial
// results are dropped.
func (f *Fetcher) Fetch(ctx context.Context, orders []models.FilmOrder) ([]OrderStatus, error) {
	out := make([]OrderStatus, len(orders))

	if f.concurrency <= 1 {
		for i, o := range orders {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out[i] = OrderStatus{Order: o, Status: f.fetchOne(ctx, o)}
		}
	} else {
		sem := make(chan struct{}, f.concurrency)
		var wg sync.WaitGroup
	loop:
		for i, o := range orders {
			select {
			case <-ctx.Done():
				break loop
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func() {
				defer func() {
					<-sem
					wg.Done()
				}()
				out[i] = OrderStatus{Order: o, Status: f.fetchOne(ctx, o)}
			}()
		}
		wg.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, o models.FilmOrder) (st models.FilmStatus) {
	defer func() {
		if r := recover(); r != nil {
			st = f.failed(o, status.Unclassified(o.ProviderID, fmt.Errorf("provider panic: %v", r)))
		}
	}()

	p, err := f.reg.Resolve(o.ProviderID)
	if err != nil {
		return f.failed(o, err)
	}
	res, err := p.FetchStatus(ctx, o)
	if err != nil {
		var fe *status.FetchError
		if !errors.As(err, &fe) {
			err = status.Unclassified(o.ProviderID, err)
		}
		return f.failed(o, err)
	}
	return res
}

func (f *Fetcher) failed(o models.FilmOrder, err error) models.FilmStatus {
	slog.Warn("fetch film status",
		"provider", o.ProviderID,
		"shop_id", o.ShopID,
		"order_number", o.OrderNumber,
		"kind", string(status.KindOf(err)),
		"error", err.Error())
	return models.NewErrorStatus(err.Error())
}

// Pending is a batch fetch running in the background.
type Pending struct {
	done      chan struct{}
	cancel    context.CancelFunc
	cancelled atomic.Bool
	res       []OrderStatus
	err       error
}

// FetchAsync starts Fetch on its own goroutine so the caller is not blocked.
func (f *Fetcher) FetchAsync(ctx context.Context, orders []models.FilmOrder) *Pending {
	ctx, cancel := context.WithCancel(ctx)
	p := &Pending{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(p.done)
		defer cancel()
		p.res, p.err = f.Fetch(ctx, orders)
	}()
	return p
}

func (p *Pending) Done() <-chan struct{} { return p.done }

// Cancel aborts the fetch. Result never returns statuses after Cancel.
func (p *Pending) Cancel() {
	p.cancelled.Store(true)
	p.cancel()
}

// Result blocks until the fetch has finished.
func (p *Pending) Result() ([]OrderStatus, error) {
	<-p.done
	if p.cancelled.Load() {
		return nil, context.Canceled
	}
	return p.res, p.err
}
