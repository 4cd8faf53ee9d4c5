package mocks

import (
	"context"

	"github.com/dukex/curator/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock implementation of persistence.Repository interface.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindExact(ctx context.Context, url, version string) (*models.Artifact, error) {
	args := m.Called(ctx, url, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Artifact), args.Error(1)
}

func (m *MockRepository) FindLatest(ctx context.Context, url string) (*models.Artifact, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Artifact), args.Error(1)
}

func (m *MockRepository) FindLatestWithStatus(ctx context.Context, url string, status models.ArtifactStatus) (*models.Artifact, error) {
	args := m.Called(ctx, url, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Artifact), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id string) (*models.Artifact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Artifact), args.Error(1)
}

func (m *MockRepository) FindAssessments(ctx context.Context, url, version string) ([]*models.Assessment, error) {
	args := m.Called(ctx, url, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Assessment), args.Error(1)
}

func (m *MockRepository) SubmitTransaction(ctx context.Context, writes []models.Write) (*models.TransactionResult, error) {
	args := m.Called(ctx, writes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.TransactionResult), args.Error(1)
}

func (m *MockRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockRepository) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
