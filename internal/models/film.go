package models

import "time"

// OrderState is the normalized processing state of a film order.
type OrderState string

const (
	OrderStateProcessing OrderState = "PROCESSING"
	OrderStateDone       OrderState = "DONE"
	OrderStateUnknown    OrderState = "UNKNOWN"
	// OrderStateError marks a status synthesized from a failed fetch.
	OrderStateError OrderState = "ERROR"
)

// FilmOrder identifies one tracked order at a photo kiosk.
// Identity is (ShopID, OrderNumber); ProviderID is decided by the store model at add time.
type FilmOrder struct {
	ShopID      string
	OrderNumber string
	HTNumber    string
	AddedDate   time.Time
	ProviderID  string
}

// Key returns the identity of the order.
func (o FilmOrder) Key() string {
	return o.ShopID + "|" + o.OrderNumber
}

// FilmStatus is the result of one fetch attempt.
type FilmStatus struct {
	StateText string
	StateDate *time.Time
	State     OrderState
}

func NewFilmStatus(text string, date *time.Time, state OrderState) FilmStatus {
	var d *time.Time
	if date != nil {
		t := *date
		d = &t
	}
	return FilmStatus{StateText: text, StateDate: d, State: state}
}

// NewErrorStatus builds the status shown in place of a vendor state when the fetch failed.
func NewErrorStatus(message string) FilmStatus {
	return FilmStatus{StateText: message, State: OrderStateError}
}

func (s FilmStatus) IsError() bool {
	return s.State == OrderStateError
}
