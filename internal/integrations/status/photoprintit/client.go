// Package photoprintit queries the PhotoPrintit order info API shared by several
// retailers. Each retailer is a tenant selected by the config parameter.
package photoprintit

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

const DefaultBaseURL = "https://spot.photoprintit.com/spotapi/orderInfo/order"

// DateLayout is the vendor's yyyy-MM-dd date format.
const DateLayout = "2006-01-02"

type Client struct {
	id    string
	cfg   status.VendorConfig
	httpc *http.Client
}

func New(id string, cfg status.VendorConfig, timeout time.Duration) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		id:    id,
		cfg:   cfg,
		httpc: status.NewHTTPClient(timeout),
	}
}

type respSubOrder struct {
	StateText *string `json:"stateText"`
	StateDate *string `json:"stateDate"`
	StateCode *string `json:"stateCode"`
}

type respBody struct {
	SummaryStateText *string        `json:"summaryStateText"`
	SummaryDate      *string        `json:"summaryDate"`
	SummaryStateCode *string        `json:"summaryStateCode"`
	SubOrders        []respSubOrder `json:"subOrders"`
}

func (c *Client) ID() string { return c.id }

func (c *Client) FetchStatus(ctx context.Context, order models.FilmOrder) (models.FilmStatus, error) {
	u, err := c.orderURL(order)
	if err != nil {
		return models.FilmStatus{}, status.TransportError(c.id, err)
	}

	body, err := status.GetBody(ctx, c.httpc, c.id, u)
	if err != nil {
		return models.FilmStatus{}, err
	}

	res, err := Parse(body)
	if err != nil {
		return models.FilmStatus{}, status.MalformedResponseError(c.id, err)
	}
	return res, nil
}

// Parse turns a response body into a status. The latest entry wins; a suborder
// replaces the current entry only when its date is strictly after it, so the
// summary wins ties and earlier suborders win over later ones.
func Parse(body []byte) (models.FilmStatus, error) {
	var rb respBody
	if err := json.Unmarshal(body, &rb); err != nil {
		return models.FilmStatus{}, errors.Wrap(err, "decode")
	}

	text, err := required(rb.SummaryStateText, "summaryStateText")
	if err != nil {
		return models.FilmStatus{}, err
	}
	rawDate, err := required(rb.SummaryDate, "summaryDate")
	if err != nil {
		return models.FilmStatus{}, err
	}
	code, err := required(rb.SummaryStateCode, "summaryStateCode")
	if err != nil {
		return models.FilmStatus{}, err
	}
	date, err := parseDate(rawDate)
	if err != nil {
		return models.FilmStatus{}, errors.Wrap(err, "summaryDate")
	}

	for i, so := range rb.SubOrders {
		soRawDate, err := required(so.StateDate, fmt.Sprintf("subOrders[%d].stateDate", i))
		if err != nil {
			return models.FilmStatus{}, err
		}
		soText, err := required(so.StateText, fmt.Sprintf("subOrders[%d].stateText", i))
		if err != nil {
			return models.FilmStatus{}, err
		}
		soCode, err := required(so.StateCode, fmt.Sprintf("subOrders[%d].stateCode", i))
		if err != nil {
			return models.FilmStatus{}, err
		}
		soDate, err := parseDate(soRawDate)
		if err != nil {
			return models.FilmStatus{}, errors.Wrapf(err, "subOrders[%d].stateDate", i)
		}

		if soDate.After(date) {
			date, text, code = soDate, soText, soCode
		}
	}

	return models.NewFilmStatus(text, &date, status.MapStateCode(code)), nil
}

func required(v *string, field string) (string, error) {
	if v == nil {
		return "", fmt.Errorf("missing %s", field)
	}
	return *v, nil
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

func (c *Client) orderURL(order models.FilmOrder) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", errors.Wrap(err, "parse base url")
	}
	q := u.Query()
	q.Set("config", c.cfg.Config)
	q.Set("fullOrderId", order.ShopID+"-"+order.OrderNumber)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
