// Package mocks provides test doubles for the directions client.
package mocks

import (
	"context"

	directions "github.com/sells-group/saferoute/pkg/directions"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Routes provides a mock function with given fields: ctx, req
func (_m *MockClient) Routes(ctx context.Context, req directions.Request) ([]directions.Route, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Routes")
	}

	var r0 []directions.Route
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, directions.Request) ([]directions.Route, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, directions.Request) []directions.Route); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]directions.Route)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, directions.Request) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
