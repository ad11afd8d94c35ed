package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockGateway is a mock implementation of Gateway using testify/mock.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}
