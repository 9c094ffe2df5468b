package optimizer

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mkoppen/linguachat/internal/inference"
)

// MockCompleter mocks the Completer interface
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, req inference.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
