package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BearBump/FilmTrack/config"
	"github.com/BearBump/FilmTrack/internal/integrations/status"
	"github.com/BearBump/FilmTrack/internal/integrations/status/vendors"
	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/BearBump/FilmTrack/internal/services/poller"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct{}

func (r *fakeRepo) ClaimDueOrders(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.TrackedOrder, error) {
	return []*models.TrackedOrder{}, nil
}

type noopProducer struct{}

func (p noopProducer) Publish(ctx context.Context, topic string, key, value []byte) error { return nil }

func testFactories(closed *int) workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (poller.Repository, func(), error) {
			return &fakeRepo{}, func() { *closed++ }, nil
		},
		newProducer: func(cfg *config.Config) (poller.Producer, func()) {
			return noopProducer{}, func() { *closed++ }
		},
		newRateLimiter: func(cfg *config.Config) (status.RateLimiter, func()) {
			return nil, nil
		},
		newRegistry: func(cfg *config.Config, rl status.RateLimiter) (*status.Registry, error) {
			return vendors.NewRegistry([]config.ProviderConfig{{ID: "dm", Kind: vendors.KindFake}}, rl)
		},
	}
}

func TestDefaultWorkerFactories(t *testing.T) {
	f := defaultWorkerFactories()
	cfg := &config.Config{
		Kafka: config.KafkaConfig{Host: "localhost", Port: 9092},
		Redis: config.RedisConfig{Host: "localhost", Port: 6379},
		Providers: []config.ProviderConfig{
			{ID: "dm", Kind: vendors.KindForShop},
			{ID: "mueller", Kind: vendors.KindPhotoPrintit, Config: "1234", RateLimitPerMinute: 60},
		},
	}

	p, closeP := f.newProducer(cfg)
	require.NotNil(t, p)
	closeP()

	rl, closeRL := f.newRateLimiter(cfg)
	require.NotNil(t, rl)
	defer closeRL()

	reg, err := f.newRegistry(cfg, rl)
	require.NoError(t, err)
	require.Equal(t, []string{"dm", "mueller"}, reg.IDs())

	// no redis configured => no throttling
	rl, closeRL = f.newRateLimiter(&config.Config{})
	require.Nil(t, rl)
	require.Nil(t, closeRL)
}

func TestBuildPoller_Defaults(t *testing.T) {
	reg, err := vendors.NewRegistry(nil, nil)
	require.NoError(t, err)

	_, s := buildPoller(&config.Config{}, &fakeRepo{}, noopProducer{}, reg)
	require.Equal(t, "film.status.updated", s.Topic)
	require.Equal(t, "30s", s.PollInterval)
	require.Equal(t, 100, s.BatchSize)
	require.Equal(t, 4, s.FetchConcurrency)
	require.Equal(t, "30m0s", s.NextCheckProcessingMin)
	require.Equal(t, "2h0m0s", s.NextCheckProcessingMax)
	require.Equal(t, "1h30m0s", s.NextCheckUnknown)
	require.Equal(t, "30m0s", s.NextCheckError)
	require.Equal(t, "168h0m0s", s.NextCheckDone)
	require.Equal(t, []string{"dm"}, s.Providers)
}

func TestRunWorker_ContextCanceled(t *testing.T) {
	closed := 0
	cfg := &config.Config{
		Kafka:     config.KafkaConfig{StatusUpdatedTopic: "t"},
		FilmTrack: config.FilmTrackConfig{WorkerPollIntervalSeconds: 1},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunWorker(ctx, cfg, testFactories(&closed))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 2, closed)
}

func TestRunWorker_WithOpsServer(t *testing.T) {
	closed := 0
	cfg := &config.Config{
		FilmTrack: config.FilmTrackConfig{WorkerPollIntervalSeconds: 1, WorkerHTTPAddr: "127.0.0.1:0"},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := RunWorker(ctx, cfg, testFactories(&closed))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 2, closed)
}

func TestWorkerRouter(t *testing.T) {
	reg, err := vendors.NewRegistry(nil, nil)
	require.NoError(t, err)
	p, settings := buildPoller(&config.Config{}, &fakeRepo{}, noopProducer{}, reg)

	srv := httptest.NewServer(newWorkerRouter(workerHTTPOpts{poller: p, settings: &settings}))
	defer srv.Close()

	for _, path := range []string{"/healthz", "/readyz", "/stats", "/config"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		_ = resp.Body.Close()
	}

	resp, err := http.Post(srv.URL+"/trigger", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.True(t, out["triggered"])
	require.NotNil(t, p.Stats().LastTriggerAt)
}

func TestWorkerRouter_NotWired(t *testing.T) {
	srv := httptest.NewServer(newWorkerRouter(workerHTTPOpts{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
