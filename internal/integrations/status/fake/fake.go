package fake

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/BearBump/FilmTrack/internal/models"
)

// Provider is an offline stand-in for a vendor backend.
// The state is deterministic per (provider id, shop, order): roughly every
// fifth order is DONE, the rest are PROCESSING.
type Provider struct {
	id  string
	now func() time.Time
}

func New(id string) *Provider {
	if id == "" {
		id = "fake"
	}
	return &Provider{id: id, now: func() time.Time { return time.Now().UTC() }}
}

func (p *Provider) ID() string { return p.id }

func (p *Provider) FetchStatus(ctx context.Context, order models.FilmOrder) (models.FilmStatus, error) {
	if err := ctx.Err(); err != nil {
		return models.FilmStatus{}, err
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(p.id))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(order.Key()))
	v := h.Sum32()

	state := models.OrderStateProcessing
	text := "Ihr Auftrag wird bearbeitet"
	if v%5 == 0 {
		state = models.OrderStateDone
		text = "Ihr Auftrag ist abholbereit"
	}

	y, m, d := p.now().Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return models.NewFilmStatus(text, &date, state), nil
}
