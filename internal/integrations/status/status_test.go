package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	id    string
	calls int
}

func (p *stubProvider) ID() string { return p.id }

func (p *stubProvider) FetchStatus(ctx context.Context, order models.FilmOrder) (models.FilmStatus, error) {
	p.calls++
	return models.NewFilmStatus("ok", nil, models.OrderStateUnknown), nil
}

func TestMapStateCode(t *testing.T) {
	cases := map[string]models.OrderState{
		"PROCESSING":    models.OrderStateProcessing,
		"SHIPPED":       models.OrderStateDone,
		"ANYTHING_ELSE": models.OrderStateUnknown,
		"":              models.OrderStateUnknown,
		"processing":    models.OrderStateUnknown,
		"DELIVERED":     models.OrderStateUnknown,
	}
	for code, want := range cases {
		require.Equal(t, want, MapStateCode(code), "code %q", code)
	}
}

func TestRegistry_Resolve(t *testing.T) {
	dm := &stubProvider{id: "dm"}
	mu := &stubProvider{id: "mueller"}
	r, err := NewRegistry(mu, dm)
	require.NoError(t, err)

	p, err := r.Resolve("dm")
	require.NoError(t, err)
	require.Same(t, dm, p)
	require.Equal(t, []string{"dm", "mueller"}, r.IDs())
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r, err := NewRegistry(&stubProvider{id: "dm"})
	require.NoError(t, err)

	_, err = r.Resolve("kodak")
	require.Error(t, err)
	require.Equal(t, KindUnknownProvider, KindOf(err))
	require.Contains(t, err.Error(), "kodak")
}

func TestNewRegistry_RejectsDuplicatesAndEmpty(t *testing.T) {
	_, err := NewRegistry(&stubProvider{id: "dm"}, &stubProvider{id: "dm"})
	require.Error(t, err)

	_, err = NewRegistry(&stubProvider{id: ""})
	require.Error(t, err)
}

func TestKindOf(t *testing.T) {
	cause := errors.New("eof")
	err := TransportError("dm", cause)
	require.Equal(t, KindTransport, KindOf(err))
	require.ErrorIs(t, err, cause)
	require.Equal(t, "dm: transport: eof", err.Error())

	require.Equal(t, KindMalformedResponse, KindOf(MalformedResponseError("dm", cause)))
	require.Equal(t, KindUnclassified, KindOf(Unclassified("dm", cause)))
	require.Equal(t, KindUnclassified, KindOf(cause))
}

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (l *fakeLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	l.keys = append(l.keys, key)
	return l.allowed, int64(len(l.keys)), l.err
}

func TestRateLimited_PassesThrough(t *testing.T) {
	inner := &stubProvider{id: "dm"}
	l := &fakeLimiter{allowed: true}
	p := RateLimited(inner, l, 10).(*rateLimited)
	p.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 0, 0, time.UTC) }

	_, err := p.FetchStatus(context.Background(), models.FilmOrder{})
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)
	require.Equal(t, []string{"rl:provider:dm:202405060708"}, l.keys)
	require.Equal(t, "dm", p.ID())
}

func TestRateLimited_OverLimitStillCalls(t *testing.T) {
	inner := &stubProvider{id: "dm"}
	p := RateLimited(inner, &fakeLimiter{allowed: false}, 1).(*rateLimited)
	p.pause = time.Millisecond

	_, err := p.FetchStatus(context.Background(), models.FilmOrder{})
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)
}

func TestRateLimited_LimiterErrorIsTransport(t *testing.T) {
	inner := &stubProvider{id: "dm"}
	p := RateLimited(inner, &fakeLimiter{err: errors.New("redis down")}, 1)

	_, err := p.FetchStatus(context.Background(), models.FilmOrder{})
	require.Equal(t, KindTransport, KindOf(err))
	require.Equal(t, 0, inner.calls)
}

func TestRateLimited_DisabledReturnsInner(t *testing.T) {
	inner := &stubProvider{id: "dm"}
	require.Same(t, Provider(inner), RateLimited(inner, nil, 10))
	require.Same(t, Provider(inner), RateLimited(inner, &fakeLimiter{}, 0))
}
