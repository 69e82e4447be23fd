// Package forshop queries the single-endpoint "forShop" order info API used by dm.
package forshop

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/BearBump/FilmTrack/internal/integrations/status"
	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/pkg/errors"
)

const (
	DefaultID      = "dm"
	DefaultBaseURL = "https://spot.photoprintit.com/spotapi/orderInfo/forShop"
	DefaultConfig  = "1320"
)

type Client struct {
	id    string
	cfg   status.VendorConfig
	httpc *http.Client
}

func New(id string, cfg status.VendorConfig, timeout time.Duration) *Client {
	if id == "" {
		id = DefaultID
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Config == "" {
		cfg.Config = DefaultConfig
	}
	return &Client{
		id:    id,
		cfg:   cfg,
		httpc: status.NewHTTPClient(timeout),
	}
}

type respBody struct {
	SummaryStateText *string `json:"summaryStateText"`
}

func (c *Client) ID() string { return c.id }

// FetchStatus reports the vendor's summary text. The endpoint carries no state
// code, so the state is always UNKNOWN and the date is absent.
func (c *Client) FetchStatus(ctx context.Context, order models.FilmOrder) (models.FilmStatus, error) {
	u, err := c.orderURL(order)
	if err != nil {
		return models.FilmStatus{}, status.TransportError(c.id, err)
	}

	body, err := status.GetBody(ctx, c.httpc, c.id, u)
	if err != nil {
		return models.FilmStatus{}, err
	}

	var rb respBody
	if err := json.Unmarshal(body, &rb); err != nil {
		return models.FilmStatus{}, status.MalformedResponseError(c.id, errors.Wrap(err, "decode"))
	}
	if rb.SummaryStateText == nil {
		return models.FilmStatus{}, status.MalformedResponseError(c.id, fmt.Errorf("missing summaryStateText"))
	}

	return models.NewFilmStatus(*rb.SummaryStateText, nil, models.OrderStateUnknown), nil
}

func (c *Client) orderURL(order models.FilmOrder) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", errors.Wrap(err, "parse base url")
	}
	q := u.Query()
	q.Set("config", c.cfg.Config)
	q.Set("order", order.OrderNumber)
	q.Set("shop", order.ShopID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
