package mocks

import (
	"context"

	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/BearBump/FilmTrack/internal/storage/pgorders"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock type for the Repository type
type MockRepository struct {
	mock.Mock
}

func (_m *MockRepository) CreateOrGetOrders(ctx context.Context, items []models.OrderCreateInput) ([]*models.TrackedOrder, error) {
	ret := _m.Called(ctx, items)

	var r0 []*models.TrackedOrder
	if rf, ok := ret.Get(0).(func(context.Context, []models.OrderCreateInput) []*models.TrackedOrder); ok {
		r0 = rf(ctx, items)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*models.TrackedOrder)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) GetOrdersByIDs(ctx context.Context, ids []uint64) ([]*models.TrackedOrder, error) {
	ret := _m.Called(ctx, ids)

	var r0 []*models.TrackedOrder
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*models.TrackedOrder)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) ListOrders(ctx context.Context, limit int, offset int) ([]*models.TrackedOrder, error) {
	ret := _m.Called(ctx, limit, offset)

	var r0 []*models.TrackedOrder
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*models.TrackedOrder)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) DeleteOrder(ctx context.Context, id uint64) (bool, error) {
	ret := _m.Called(ctx, id)
	return ret.Bool(0), ret.Error(1)
}

func (_m *MockRepository) RefreshOrder(ctx context.Context, id uint64) (bool, error) {
	ret := _m.Called(ctx, id)
	return ret.Bool(0), ret.Error(1)
}

func (_m *MockRepository) ApplyStatusUpdate(ctx context.Context, upd pgorders.StatusUpdate) error {
	ret := _m.Called(ctx, upd)
	return ret.Error(0)
}
