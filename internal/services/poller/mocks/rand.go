package mocks

import "github.com/stretchr/testify/mock"

// Rand is a mock type for the Rand type
type Rand struct {
	mock.Mock
}

func (_m *Rand) Intn(n int) int {
	ret := _m.Called(n)
	return ret.Int(0)
}
