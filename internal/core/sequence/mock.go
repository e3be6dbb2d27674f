package sequence

import "context"

// MockCounter is a test implementation of Counter.
// Use in unit tests to avoid database dependencies.
type MockCounter struct {
	IncrementAndGetFunc func(ctx context.Context, name string) (int64, error)
	CurrentFunc         func(ctx context.Context, name string) (int64, error)
	SetFunc             func(ctx context.Context, name string, value int64) error
	RaiseFunc           func(ctx context.Context, name string, value int64) (int64, error)
	ListFunc            func(ctx context.Context) ([]Sequence, error)
}

// IncrementAndGet implements Counter.
func (m *MockCounter) IncrementAndGet(ctx context.Context, name string) (int64, error) {
	if m.IncrementAndGetFunc != nil {
		return m.IncrementAndGetFunc(ctx, name)
	}
	return 1, nil
}

// Current implements Counter.
func (m *MockCounter) Current(ctx context.Context, name string) (int64, error) {
	if m.CurrentFunc != nil {
		return m.CurrentFunc(ctx, name)
	}
	return 0, nil
}

// Set implements Counter.
func (m *MockCounter) Set(ctx context.Context, name string, value int64) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, name, value)
	}
	return nil
}

// Raise implements Counter.
func (m *MockCounter) Raise(ctx context.Context, name string, value int64) (int64, error) {
	if m.RaiseFunc != nil {
		return m.RaiseFunc(ctx, name, value)
	}
	return value, nil
}

// List implements Counter.
func (m *MockCounter) List(ctx context.Context) ([]Sequence, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

// Ensure compile-time interface compliance.
var _ Counter = (*MockCounter)(nil)
