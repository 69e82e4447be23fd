package fake

import (
	"context"
	"testing"

	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/stretchr/testify/require"
)

func TestProvider_FetchStatus(t *testing.T) {
	p := New("")
	require.Equal(t, "fake", p.ID())

	o := models.FilmOrder{ShopID: "1", OrderNumber: "A1"}
	res, err := p.FetchStatus(context.Background(), o)
	require.NoError(t, err)
	require.NotEmpty(t, res.StateText)
	require.NotNil(t, res.StateDate)
	require.Contains(t, []models.OrderState{models.OrderStateProcessing, models.OrderStateDone}, res.State)

	again, err := p.FetchStatus(context.Background(), o)
	require.NoError(t, err)
	require.Equal(t, res.State, again.State)
}

func TestProvider_FetchStatus_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New("x").FetchStatus(ctx, models.FilmOrder{})
	require.ErrorIs(t, err, context.Canceled)
}
