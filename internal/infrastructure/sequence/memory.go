package sequence

import (
	"context"
	"sort"
	"sync"
	"time"

	coresequence "pharmadesk/internal/core/sequence"
)

// Ensure compile-time interface compliance.
var _ coresequence.Counter = (*MemoryCounter)(nil)

// MemoryCounter is a mutex-guarded counter store. Values are lost on
// restart and not shared between processes.
type MemoryCounter struct {
	mu       sync.Mutex
	counters map[string]coresequence.Sequence
	now      func() time.Time
}

// NewMemoryCounter creates an empty in-memory counter store.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		counters: make(map[string]coresequence.Sequence),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// IncrementAndGet implements coresequence.Counter.
func (c *MemoryCounter) IncrementAndGet(_ context.Context, name string) (int64, error) {
	if err := coresequence.ValidateName(name); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.counters[name]
	s.Name = name
	s.Value++
	s.UpdatedAt = c.now()
	c.counters[name] = s
	return s.Value, nil
}

// Current implements coresequence.Counter.
func (c *MemoryCounter) Current(_ context.Context, name string) (int64, error) {
	if err := coresequence.ValidateName(name); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[name].Value, nil
}

// Set implements coresequence.Counter.
func (c *MemoryCounter) Set(_ context.Context, name string, value int64) error {
	if err := coresequence.ValidateName(name); err != nil {
		return err
	}
	if err := coresequence.ValidateValue(value); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name] = coresequence.Sequence{Name: name, Value: value, UpdatedAt: c.now()}
	return nil
}

// Raise implements coresequence.Counter.
func (c *MemoryCounter) Raise(_ context.Context, name string, value int64) (int64, error) {
	if err := coresequence.ValidateName(name); err != nil {
		return 0, err
	}
	if err := coresequence.ValidateValue(value); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.counters[name]
	if s.Name != "" && s.Value >= value {
		return s.Value, nil
	}
	c.counters[name] = coresequence.Sequence{Name: name, Value: value, UpdatedAt: c.now()}
	return value, nil
}

// List implements coresequence.Counter.
func (c *MemoryCounter) List(_ context.Context) ([]coresequence.Sequence, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]coresequence.Sequence, 0, len(c.counters))
	for _, s := range c.counters {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
