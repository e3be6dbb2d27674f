package allocator

import "context"

// Event describes one counter draw and its outcome.
type Event struct {
	// Sequence is the counter key the value was drawn from
	Sequence string

	// Value is the drawn counter value
	Value int64

	// BusinessID is the formatted ID
	BusinessID string

	// Field is the business-ID field of the record
	Field string

	// Attempt is 1 for the first insert, 2 for the retry
	Attempt int

	// Err is the duplicate error for collisions
	Err error
}

// Observer receives allocation events. Implementations must not block.
type Observer interface {
	Allocated(ctx context.Context, e Event)
	Collided(ctx context.Context, e Event)
}

type nopObserver struct{}

func (nopObserver) Allocated(context.Context, Event) {}
func (nopObserver) Collided(context.Context, Event)  {}

// ObserverFuncs adapts plain functions to Observer. Nil funcs are skipped.
type ObserverFuncs struct {
	OnAllocated func(ctx context.Context, e Event)
	OnCollided  func(ctx context.Context, e Event)
}

// Allocated implements Observer.
func (o ObserverFuncs) Allocated(ctx context.Context, e Event) {
	if o.OnAllocated != nil {
		o.OnAllocated(ctx, e)
	}
}

// Collided implements Observer.
func (o ObserverFuncs) Collided(ctx context.Context, e Event) {
	if o.OnCollided != nil {
		o.OnCollided(ctx, e)
	}
}
