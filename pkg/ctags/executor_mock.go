package ctags

import (
	"context"
)

// MockExecutor is a mock implementation of Executor for testing
type MockExecutor struct {
	MockOutput []byte
	MockError  error
}

func (m *MockExecutor) Run(ctx context.Context, dir string, files []string) ([]byte, error) {
	return m.MockOutput, m.MockError
}
