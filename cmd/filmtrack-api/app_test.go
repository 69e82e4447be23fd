package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BearBump/FilmTrack/internal/broker/messages"
	"github.com/BearBump/FilmTrack/internal/integrations/status"
	"github.com/BearBump/FilmTrack/internal/integrations/status/fake"
	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/BearBump/FilmTrack/internal/services/batch"
	"github.com/BearBump/FilmTrack/internal/services/orders"
	"github.com/BearBump/FilmTrack/internal/storage/pgorders"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	applied []pgorders.StatusUpdate
	err     error
}

func (r *fakeRepo) CreateOrGetOrders(ctx context.Context, items []models.OrderCreateInput) ([]*models.TrackedOrder, error) {
	return []*models.TrackedOrder{}, nil
}
func (r *fakeRepo) GetOrdersByIDs(ctx context.Context, ids []uint64) ([]*models.TrackedOrder, error) {
	return []*models.TrackedOrder{}, nil
}
func (r *fakeRepo) ListOrders(ctx context.Context, limit, offset int) ([]*models.TrackedOrder, error) {
	return []*models.TrackedOrder{}, nil
}
func (r *fakeRepo) DeleteOrder(ctx context.Context, id uint64) (bool, error) { return false, nil }
func (r *fakeRepo) RefreshOrder(ctx context.Context, id uint64) (bool, error) { return false, nil }
func (r *fakeRepo) ApplyStatusUpdate(ctx context.Context, upd pgorders.StatusUpdate) error {
	r.applied = append(r.applied, upd)
	return r.err
}

func newService(t *testing.T, repo *fakeRepo) *orders.Service {
	t.Helper()
	reg, err := status.NewRegistry(fake.New("dm"))
	require.NoError(t, err)
	return orders.New(repo, batch.New(reg), models.NewStoreCatalog(models.DefaultStoreModels()))
}

type fakeConsumer struct{}

func (c fakeConsumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRunAPI_ServesHealthzSwaggerAndStores(t *testing.T) {
	dir := t.TempDir()
	sw := filepath.Join(dir, "swagger.json")
	require.NoError(t, os.WriteFile(sw, []byte(`{"swagger":"2.0"}`), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	opts := apiOpts{
		httpAddr:      "127.0.0.1:0",
		swaggerPath:   sw,
		topic:         "t",
		consumerGroup: "g",
		onListen:      func(httpAddr string) { addrCh <- httpAddr },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- runAPI(ctx, opts, newService(t, &fakeRepo{}), fakeConsumer{})
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-errCh:
		t.Fatalf("runAPI: %v", err)
	}
	base := "http://" + addr

	for _, path := range []string{"/healthz", "/swagger.json", "/v1/stores"} {
		var resp *http.Response
		require.Eventually(t, func() bool {
			r, err := http.Get(base + path)
			if err != nil {
				return false
			}
			resp = r
			return true
		}, 2*time.Second, 10*time.Millisecond)
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		require.NotEmpty(t, body)
		require.NotEmpty(t, resp.Header.Get("X-Request-Id"))
	}

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting api to stop")
	}
}

func TestRunAPI_MissingSwaggerFile(t *testing.T) {
	err := runAPI(context.Background(), apiOpts{
		httpAddr:    "127.0.0.1:0",
		swaggerPath: filepath.Join(t.TempDir(), "nope.json"),
	}, newService(t, &fakeRepo{}), fakeConsumer{})
	require.Error(t, err)
}

func TestStatusUpdateHandler(t *testing.T) {
	repo := &fakeRepo{}
	h := statusUpdateHandler(context.Background(), newService(t, repo))

	// undecodable and invalid messages are skipped
	require.NoError(t, h([]byte("1"), []byte("not-json")))
	require.NoError(t, h([]byte("1"), []byte(`{"event_id":"e"}`)))
	require.Empty(t, repo.applied)

	b, err := json.Marshal(messages.FilmStatusUpdated{
		EventID:     "e1",
		OrderID:     9,
		CheckedAt:   time.Now().UTC(),
		State:       models.OrderStateDone,
		StateText:   "abholbereit",
		NextCheckAt: time.Now().UTC().Add(time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, h([]byte("9"), b))
	require.Len(t, repo.applied, 1)
	require.Equal(t, uint64(9), repo.applied[0].OrderID)

	repo.err = errors.New("db down")
	require.Error(t, h([]byte("9"), b))
}
