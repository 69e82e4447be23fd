package models

import "time"

// TrackedOrder is a persisted FilmOrder plus the last known status.
type TrackedOrder struct {
	ID          uint64
	ProviderID  string
	StoreID     string
	ShopID      string
	OrderNumber string
	HTNumber    string
	AddedAt     time.Time

	State         OrderState
	StateText     string
	StateAt       *time.Time
	LastCheckedAt *time.Time
	NextCheckAt   time.Time
	LastError     *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Film returns the value passed to status providers.
func (t *TrackedOrder) Film() FilmOrder {
	return FilmOrder{
		ShopID:      t.ShopID,
		OrderNumber: t.OrderNumber,
		HTNumber:    t.HTNumber,
		AddedDate:   t.AddedAt,
		ProviderID:  t.ProviderID,
	}
}

type OrderCreateInput struct {
	StoreID     string
	// ProviderID is filled in from the store model by the orders service.
	ProviderID  string
	ShopID      string
	OrderNumber string
	HTNumber    string
}
