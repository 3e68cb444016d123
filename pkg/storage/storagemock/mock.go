package storagemock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/leafremote/leafremote/pkg/storage"
	"github.com/leafremote/leafremote/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) InsertAction(ctx context.Context, vin string, action types.Action) error {
	args := m.Called(ctx, vin, action)
	return args.Error(0)
}

func (m *MockDatabase) GetActionHistory(ctx context.Context, vin string, start, end time.Time) ([]types.Action, error) {
	args := m.Called(ctx, vin, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Action), args.Error(1)
}

func (m *MockDatabase) SetLatestResult(ctx context.Context, vin string, op types.Operation, result types.Result) error {
	args := m.Called(ctx, vin, op, result)
	return args.Error(0)
}

func (m *MockDatabase) GetLatestResult(ctx context.Context, vin string, op types.Operation) (types.Result, error) {
	args := m.Called(ctx, vin, op)
	return args.Get(0).(types.Result), args.Error(1)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
