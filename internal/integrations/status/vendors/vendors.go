// Package vendors builds the provider registry from configuration.
package vendors

import (
	"fmt"
	"time"

	"github.com/BearBump/FilmTrack/config"
	"github.com/BearBump/FilmTrack/internal/integrations/status"
	"github.com/BearBump/FilmTrack/internal/integrations/status/fake"
	"github.com/BearBump/FilmTrack/internal/integrations/status/forshop"
	"github.com/BearBump/FilmTrack/internal/integrations/status/photoprintit"
)

const (
	KindForShop      = "forshop"
	KindPhotoPrintit = "photoprintit"
	KindFake         = "fake"
)

// DefaultProviderConfigs is used when the config file lists no providers.
// PhotoPrintit tenants need a tenant config id, so only dm is built in.
func DefaultProviderConfigs() []config.ProviderConfig {
	return []config.ProviderConfig{
		{ID: forshop.DefaultID, Kind: KindForShop, BaseURL: forshop.DefaultBaseURL, Config: forshop.DefaultConfig},
	}
}

// NewRegistry builds one provider per entry. rl may be nil to disable throttling.
func NewRegistry(cfgs []config.ProviderConfig, rl status.RateLimiter) (*status.Registry, error) {
	if len(cfgs) == 0 {
		cfgs = DefaultProviderConfigs()
	}
	providers := make([]status.Provider, 0, len(cfgs))
	for _, pc := range cfgs {
		p, err := newProvider(pc)
		if err != nil {
			return nil, err
		}
		providers = append(providers, status.RateLimited(p, rl, int64(pc.RateLimitPerMinute)))
	}
	return status.NewRegistry(providers...)
}

func newProvider(pc config.ProviderConfig) (status.Provider, error) {
	if pc.ID == "" {
		return nil, fmt.Errorf("provider id is required")
	}
	timeout := time.Duration(pc.TimeoutSeconds) * time.Second
	vc := status.VendorConfig{BaseURL: pc.BaseURL, Config: pc.Config}

	switch pc.Kind {
	case KindForShop:
		return forshop.New(pc.ID, vc, timeout), nil
	case KindPhotoPrintit:
		if pc.Config == "" {
			return nil, fmt.Errorf("provider %s: config (tenant id) is required", pc.ID)
		}
		return photoprintit.New(pc.ID, vc, timeout), nil
	case KindFake:
		return fake.New(pc.ID), nil
	default:
		return nil, fmt.Errorf("provider %s: unknown kind %q", pc.ID, pc.Kind)
	}
}
