package mocks

import (
	"context"

	"github.com/dukex/curator/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockExpander is a mock implementation of terminology.Expander interface.
type MockExpander struct {
	mock.Mock
}

func (m *MockExpander) Expand(ctx context.Context, leaf *models.Artifact, endpoint string, params *models.Parameters) (*models.Expansion, error) {
	args := m.Called(ctx, leaf, endpoint, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Expansion), args.Error(1)
}

// MockExpansionCache is a mock implementation of terminology.Cache interface.
type MockExpansionCache struct {
	mock.Mock
}

func (m *MockExpansionCache) Get(ctx context.Context, key string) (*models.Expansion, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}

	return args.Get(0).(*models.Expansion), args.Bool(1), args.Error(2)
}

func (m *MockExpansionCache) Set(ctx context.Context, key string, expansion *models.Expansion) error {
	args := m.Called(ctx, key, expansion)

	return args.Error(0)
}
