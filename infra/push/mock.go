package push

import (
	"context"
	"fmt"
	"sync"

	corepush "github.com/villaops/dispatchd/core/push"
)

// MockClient is a simple push client used in tests.
type MockClient struct {
	Messages map[string][]corepush.Message
	FailIDs  map[string]bool
	mu       sync.Mutex
}

// NewMockClient creates a new MockClient.
func NewMockClient() *MockClient {
	return &MockClient{
		Messages: make(map[string][]corepush.Message),
		FailIDs:  make(map[string]bool),
	}
}

// Push records the message or returns an error if configured to fail.
func (m *MockClient) Push(_ context.Context, staffID string, msg corepush.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[staffID] {
		return "", fmt.Errorf("push failed")
	}
	m.Messages[staffID] = append(m.Messages[staffID], msg)
	return fmt.Sprintf("msg-%s-%d", staffID, len(m.Messages[staffID])), nil
}
