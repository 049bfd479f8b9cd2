package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/size-analysis/internal/repository"
	"github.com/size-analysis/pkg/model"
)

// MockRunRepository is a mock implementation of repository.RunRepository.
type MockRunRepository struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockRunRepository) Create(ctx context.Context, run *model.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// Update mocks the Update method. The run is copied so that assertions see
// the state at call time.
func (m *MockRunRepository) Update(ctx context.Context, run *model.Run) error {
	snapshot := *run
	args := m.Called(ctx, &snapshot)
	return args.Error(0)
}

// GetByRunID mocks the GetByRunID method.
func (m *MockRunRepository) GetByRunID(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

// List mocks the List method.
func (m *MockRunRepository) List(ctx context.Context, filter repository.ListFilter) ([]*model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Run), args.Error(1)
}

// DeleteBefore mocks the DeleteBefore method.
func (m *MockRunRepository) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(int64), args.Error(1)
}

var _ repository.RunRepository = (*MockRunRepository)(nil)
