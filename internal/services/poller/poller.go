package poller

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/FilmTrack/internal/broker/messages"
	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/BearBump/FilmTrack/internal/services/batch"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const publishAttempts = 5

type Repository interface {
	ClaimDueOrders(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.TrackedOrder, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, orders []models.FilmOrder) ([]batch.OrderStatus, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Poller struct {
	repo     Repository
	fetcher  Fetcher
	producer Producer

	topic string

	planner *Planner

	pollInterval time.Duration
	batchSize    int
	lease        time.Duration

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalClaimed        atomic.Int64
	totalProcessed      atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, fetcher Fetcher, producer Producer, topic string) *Poller {
	return &Poller{
		repo: repo, fetcher: fetcher, producer: producer, topic: topic,
		planner:           DefaultPlanner(),
		pollInterval:      30 * time.Second,
		batchSize:         100,
		lease:             120 * time.Second,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func DefaultPlanner() *Planner {
	return NewPlanner(DefaultPlannerConfig(), nil)
}

func (p *Poller) WithSettings(pollInterval time.Duration, batchSize int, lease time.Duration) *Poller {
	if pollInterval > 0 {
		p.pollInterval = pollInterval
	}
	if batchSize > 0 {
		p.batchSize = batchSize
	}
	if lease > 0 {
		p.lease = lease
	}
	return p
}

func (p *Poller) WithPlanner(cfg PlannerConfig) *Poller {
	p.planner = NewPlanner(cfg, nil)
	return p
}

// Trigger forces an immediate poll cycle (best-effort, non-blocking).
func (p *Poller) Trigger() {
	p.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastCycleAt    *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt  *time.Time `json:"lastTriggerAt,omitempty"`
	TotalClaimed   int64      `json:"totalClaimed"`
	TotalProcessed int64      `json:"totalProcessed"`
	TotalErrors    int64      `json:"totalErrors"`
	InFlight       int64      `json:"inFlight"`
	LastError      string     `json:"lastError,omitempty"`
}

func (p *Poller) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, p.startedAtUnixNano).UTC(),
		TotalClaimed:   p.totalClaimed.Load(),
		TotalProcessed: p.totalProcessed.Load(),
		TotalErrors:    p.totalErrors.Load(),
		InFlight:       p.inFlight.Load(),
	}
	if n := p.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := p.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	p.lastErrorMu.Lock()
	st.LastError = p.lastError
	p.lastErrorMu.Unlock()
	return st
}

func (p *Poller) Run(ctx context.Context) error {
	t := time.NewTicker(p.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.runOnce(ctx)
		case <-p.triggerCh:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) setLastError(err error) {
	p.lastErrorMu.Lock()
	p.lastError = err.Error()
	p.lastErrorMu.Unlock()
}

func (p *Poller) runOnce(ctx context.Context) {
	now := time.Now().UTC()
	p.lastCycleUnixNano.Store(now.UnixNano())

	items, err := p.repo.ClaimDueOrders(ctx, now, p.batchSize, p.lease)
	if err != nil {
		slog.Error("claim due orders", "error", err.Error())
		p.setLastError(err)
		return
	}
	if len(items) == 0 {
		return
	}
	p.totalClaimed.Add(int64(len(items)))

	films := make([]models.FilmOrder, len(items))
	for i, o := range items {
		films[i] = o.Film()
	}

	p.inFlight.Add(int64(len(items)))
	res, err := p.fetcher.Fetch(ctx, films)
	p.inFlight.Add(-int64(len(items)))
	if err != nil {
		// cancelled mid-batch: the leases expire and the orders are claimed again
		slog.Warn("fetch batch", "size", len(items), "error", err.Error())
		return
	}

	for i, r := range res {
		failed := r.Status.IsError()
		if err := p.publish(ctx, items[i], r.Status); err != nil {
			failed = true
			p.setLastError(err)
			slog.Error("publish status", "order_id", items[i].ID, "error", err.Error())
		}
		// once per order, whether the fetch or the publish failed
		if failed {
			p.totalErrors.Add(1)
		}
		p.totalProcessed.Add(1)
	}
}

// buildMessage turns a fetched status into the update the api applies.
func (p *Poller) buildMessage(o *models.TrackedOrder, st models.FilmStatus, now time.Time) messages.FilmStatusUpdated {
	msg := messages.FilmStatusUpdated{
		EventID:     uuid.NewString(),
		OrderID:     o.ID,
		CheckedAt:   now,
		NextCheckAt: now.Add(p.planner.NextCheckDelay(st.State)),
	}
	if st.IsError() {
		e := st.StateText
		msg.Error = &e
		return msg
	}
	msg.State = st.State
	msg.StateText = st.StateText
	msg.StateAt = st.StateDate
	return msg
}

func (p *Poller) publish(ctx context.Context, o *models.TrackedOrder, st models.FilmStatus) error {
	msg := p.buildMessage(o, st, time.Now().UTC())

	b, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal kafka msg")
	}

	key := []byte(strconv.FormatUint(o.ID, 10))
	// Kafka may still be starting when the worker comes up.
	var pubErr error
	for i := 0; i < publishAttempts; i++ {
		if pubErr = p.producer.Publish(ctx, p.topic, key, b); pubErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(150*(i+1)) * time.Millisecond):
		}
	}
	return pubErr
}
