package status

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const DefaultTimeout = 10 * time.Second

// NewHTTPClient returns the client shared by the vendor parsers.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// GetBody performs a GET and returns the UTF-8 body of a 2xx response.
// Every failure is a transport error.
func GetBody(ctx context.Context, httpc *http.Client, providerID, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, TransportError(providerID, errors.Wrap(err, "new request"))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpc.Do(req)
	if err != nil {
		return nil, TransportError(providerID, errors.Wrap(err, "do request"))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, TransportError(providerID, errors.Wrap(err, "read body"))
	}
	if resp.StatusCode/100 != 2 {
		return nil, TransportError(providerID, fmt.Errorf("http %d", resp.StatusCode))
	}
	if !utf8.Valid(body) {
		return nil, TransportError(providerID, fmt.Errorf("response body is not valid UTF-8"))
	}
	return body, nil
}
