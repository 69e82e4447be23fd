package status

import (
	"context"

	"github.com/BearBump/FilmTrack/internal/models"
)

// Provider fetches the status of one order from a vendor backend.
// Vendor-reported states are successes; only transport and parse failures are errors.
type Provider interface {
	ID() string
	FetchStatus(ctx context.Context, order models.FilmOrder) (models.FilmStatus, error)
}

// VendorConfig is the per-provider constant configuration.
type VendorConfig struct {
	BaseURL string
	Config  string
}

// MapStateCode normalizes a PhotoPrintit state code.
func MapStateCode(code string) models.OrderState {
	switch code {
	case "PROCESSING":
		return models.OrderStateProcessing
	case "SHIPPED":
		return models.OrderStateDone
	default:
		return models.OrderStateUnknown
	}
}
