package status

import (
	stderrors "errors"
	"fmt"
)

type Kind string

const (
	KindTransport         Kind = "transport"
	KindMalformedResponse Kind = "malformed_response"
	KindUnknownProvider   Kind = "unknown_provider"
	KindUnclassified      Kind = "unclassified"
)

// FetchError is returned by providers and the registry.
type FetchError struct {
	Kind       Kind
	ProviderID string
	Err        error
}

func (e *FetchError) Error() string {
	msg := string(e.Kind)
	if e.ProviderID != "" {
		msg = e.ProviderID + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

func TransportError(providerID string, err error) error {
	return &FetchError{Kind: KindTransport, ProviderID: providerID, Err: err}
}

func MalformedResponseError(providerID string, err error) error {
	return &FetchError{Kind: KindMalformedResponse, ProviderID: providerID, Err: err}
}

func UnknownProviderError(providerID string) error {
	return &FetchError{
		Kind:       KindUnknownProvider,
		ProviderID: providerID,
		Err:        fmt.Errorf("no provider registered with id %q", providerID),
	}
}

func Unclassified(providerID string, err error) error {
	return &FetchError{Kind: KindUnclassified, ProviderID: providerID, Err: err}
}

// KindOf classifies err. Errors that are not a *FetchError are unclassified.
func KindOf(err error) Kind {
	var fe *FetchError
	if stderrors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnclassified
}
