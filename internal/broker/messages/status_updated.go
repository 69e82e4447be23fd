package messages

import (
	"time"

	"github.com/BearBump/FilmTrack/internal/models"
)

const DefaultStatusUpdatedTopic = "film.status.updated"

// FilmStatusUpdated is published by the worker after each check of an order.
type FilmStatusUpdated struct {
	EventID   string    `json:"event_id"`
	OrderID   uint64    `json:"order_id"`
	CheckedAt time.Time `json:"checked_at"`

	State     models.OrderState `json:"state,omitempty"`
	StateText string            `json:"state_text,omitempty"`
	StateAt   *time.Time        `json:"state_at,omitempty"`

	NextCheckAt time.Time `json:"next_check_at"`

	Error *string `json:"error,omitempty"`
}
