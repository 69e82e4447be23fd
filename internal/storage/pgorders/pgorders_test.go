package pgorders

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPoolConfig(t *testing.T) {
	cfg, err := poolConfig("postgres://u:p@localhost:5432/filmtrack?sslmode=disable")
	require.NoError(t, err)
	require.Equal(t, int32(maxPoolConns), cfg.MaxConns)
	require.Equal(t, int32(minPoolConns), cfg.MinConns)
	require.Equal(t, 5*time.Minute, cfg.MaxConnIdleTime)

	cfg, err = poolConfig("postgres://u:p@localhost:5432/filmtrack?sslmode=disable&pool_max_conns=3")
	require.NoError(t, err)
	require.Equal(t, int32(3), cfg.MaxConns)

	_, err = poolConfig("postgres://u:p@localhost:notaport/filmtrack")
	require.Error(t, err)
}

func TestPGOrders_RepoFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "filmtrack_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/filmtrack_test?sslmode=disable"
	var st *Storage
	require.Eventually(t, func() bool {
		st, err = New(dsn)
		return err == nil
	}, 30*time.Second, 500*time.Millisecond)
	t.Cleanup(st.Close)

	created, err := st.CreateOrGetOrders(ctx, []models.OrderCreateInput{
		{StoreID: "dm", ProviderID: "dm", ShopID: "4711", OrderNumber: "A1"},
		{StoreID: "mueller", ProviderID: "mueller", ShopID: "0815", OrderNumber: "B2"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	require.Equal(t, "A1", created[0].OrderNumber)
	require.Equal(t, "B2", created[1].OrderNumber)
	require.Equal(t, models.OrderStateUnknown, created[0].State)

	// same identity returns the existing row
	again, err := st.CreateOrGetOrders(ctx, []models.OrderCreateInput{
		{StoreID: "dm", ProviderID: "dm", ShopID: "4711", OrderNumber: "A1"},
	})
	require.NoError(t, err)
	require.Len(t, again, 1)
	require.Equal(t, created[0].ID, again[0].ID)

	listed, err := st.ListOrders(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	// exactly one order is due
	_, err = st.db.Exec(ctx, `UPDATE film_orders SET next_check_at = now() - interval '1 minute' WHERE id = $1`, created[0].ID)
	require.NoError(t, err)
	_, err = st.db.Exec(ctx, `UPDATE film_orders SET next_check_at = now() + interval '1 hour' WHERE id = $1`, created[1].ID)
	require.NoError(t, err)

	now := time.Now().UTC()
	lease := 10 * time.Second
	due, err := st.ClaimDueOrders(ctx, now, 10, lease)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, created[0].ID, due[0].ID)
	require.WithinDuration(t, now.Add(lease), due[0].NextCheckAt, 2*time.Second)

	stateAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.ApplyStatusUpdate(ctx, StatusUpdate{
		OrderID:     created[0].ID,
		CheckedAt:   now,
		State:       models.OrderStateDone,
		StateText:   "abholbereit",
		StateAt:     &stateAt,
		NextCheckAt: now.Add(-time.Minute),
	}))

	got, err := st.GetOrdersByIDs(ctx, []uint64{created[0].ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, models.OrderStateDone, got[0].State)
	require.Equal(t, "abholbereit", got[0].StateText)
	require.Nil(t, got[0].LastError)

	// DONE orders are not claimed even when due
	due, err = st.ClaimDueOrders(ctx, time.Now().UTC(), 10, lease)
	require.NoError(t, err)
	require.Empty(t, due)

	// until refreshed
	found, err := st.RefreshOrder(ctx, created[0].ID)
	require.NoError(t, err)
	require.True(t, found)
	due, err = st.ClaimDueOrders(ctx, time.Now().UTC().Add(time.Second), 10, lease)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, created[0].ID, due[0].ID)
	require.Equal(t, models.OrderStateUnknown, due[0].State)
	require.Equal(t, "abholbereit", due[0].StateText)

	msg := "http 502"
	require.NoError(t, st.ApplyStatusUpdate(ctx, StatusUpdate{
		OrderID:     created[1].ID,
		CheckedAt:   now,
		NextCheckAt: now.Add(time.Hour),
		Error:       &msg,
	}))
	got, err = st.GetOrdersByIDs(ctx, []uint64{created[1].ID})
	require.NoError(t, err)
	require.Equal(t, models.OrderStateUnknown, got[0].State)
	require.NotNil(t, got[0].LastError)
	require.Equal(t, "http 502", *got[0].LastError)

	found, err = st.RefreshOrder(ctx, created[1].ID)
	require.NoError(t, err)
	require.True(t, found)

	removed, err := st.DeleteOrder(ctx, created[1].ID)
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = st.DeleteOrder(ctx, created[1].ID)
	require.NoError(t, err)
	require.False(t, removed)

	found, err = st.RefreshOrder(ctx, created[1].ID)
	require.NoError(t, err)
	require.False(t, found)
}
