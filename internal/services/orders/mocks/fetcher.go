package mocks

import (
	"context"

	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/BearBump/FilmTrack/internal/services/batch"
	"github.com/stretchr/testify/mock"
)

// MockFetcher is a mock type for the Fetcher type
type MockFetcher struct {
	mock.Mock
}

func (_m *MockFetcher) Fetch(ctx context.Context, orders []models.FilmOrder) ([]batch.OrderStatus, error) {
	ret := _m.Called(ctx, orders)

	var r0 []batch.OrderStatus
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]batch.OrderStatus)
	}
	return r0, ret.Error(1)
}
