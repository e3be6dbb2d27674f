// Package sequence provides domain contracts for named monotonic counters
// and the formatting of business IDs drawn from them.
// Implementations live in infrastructure layer.
package sequence

import (
	"context"
	"strings"
	"time"

	"pharmadesk/internal/core/apperror"
)

// MaxNameLength matches the sys_sequences.name column.
const MaxNameLength = 100

// Sequence is the persisted state of one named counter.
type Sequence struct {
	Name      string    `db:"name" json:"name"`
	Value     int64     `db:"seq" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Incrementer draws values from a named counter.
//
// IncrementAndGet must be a single indivisible operation at the storage layer:
// concurrent callers on the same name observe distinct, strictly increasing
// values. An absent counter starts at 0, so the first call returns 1.
// Store failures are reported as COUNTER_UNAVAILABLE.
type Incrementer interface {
	IncrementAndGet(ctx context.Context, name string) (int64, error)
}

// Counter is the full counter store contract.
type Counter interface {
	Incrementer

	// Current returns the last issued value, 0 if the counter does not exist.
	Current(ctx context.Context, name string) (int64, error)

	// Set overwrites the counter value (for migration purposes).
	// The next IncrementAndGet returns value+1.
	Set(ctx context.Context, name string, value int64) error

	// Raise moves the counter up to value in one atomic step and returns
	// the resulting value. A counter already at or above value is unchanged.
	Raise(ctx context.Context, name string, value int64) (int64, error)

	// List returns all counters ordered by name.
	List(ctx context.Context) ([]Sequence, error)
}

// ValidateName checks a sequence name before it reaches the store.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperror.NewValidation("sequence name is required")
	}
	if len(name) > MaxNameLength {
		return apperror.NewValidation("sequence name is too long").
			WithDetail("max_length", MaxNameLength)
	}
	return nil
}

// ValidateValue checks a value passed to Set.
func ValidateValue(value int64) error {
	if value < 0 {
		return apperror.NewValidation("sequence value must not be negative").
			WithDetail("value", value)
	}
	return nil
}
