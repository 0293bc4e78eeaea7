package imagegen

import (
	"context"
	"fmt"
	"sync"
)

// MockGenerator is an in-process generator for tests.
type MockGenerator struct {
	mu       sync.Mutex
	calls    []string
	failWith error
}

// NewMockGenerator creates a mock image generator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Fail makes every subsequent call return err.
func (m *MockGenerator) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Calls returns the descriptions passed in so far.
func (m *MockGenerator) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// GeneratePersonaImage records the call and returns a deterministic URL.
func (m *MockGenerator) GeneratePersonaImage(ctx context.Context, description string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, description)
	if m.failWith != nil {
		return "", m.failWith
	}
	return fmt.Sprintf("https://images.example.com/personas/%d.png", len(m.calls)), nil
}

var _ Generator = (*MockGenerator)(nil)
