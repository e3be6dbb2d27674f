// Package allocator mints business IDs for new records from named counters
// and retries the insert once when the generated ID collides.
//
// Counter values are consumed even when the insert fails and are never
// returned, so generated IDs may have gaps. Creation is not idempotent:
// callers that need de-duplication must do it upstream (see the HTTP
// idempotency middleware).
package allocator

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/sequence"
	"pharmadesk/pkg/logger"
)

var tracer = otel.Tracer("pharmadesk/allocator")

// MaxAttempts is the number of inserts tried for one generated record.
const MaxAttempts = 2

// Record is a stored entity carrying a business ID.
type Record interface {
	// BusinessID returns the current business ID, empty if not assigned.
	BusinessID() string

	// SetBusinessID assigns the business ID.
	SetBusinessID(id string)

	// BusinessIDField is the storage field holding the business ID.
	// A duplicate on this field triggers the retry.
	BusinessIDField() string
}

// InsertFunc persists rec. It must report uniqueness violations as
// apperror DUPLICATE_ENTRY errors carrying the offending field.
type InsertFunc[T Record] func(ctx context.Context, rec T) error

// Option configures an Allocator.
type Option func(*Allocator)

// WithClock overrides the time source used for monthly patterns.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) {
		a.now = now
	}
}

// WithObserver registers an observer for allocation events.
func WithObserver(o Observer) Option {
	return func(a *Allocator) {
		a.observer = o
	}
}

// Allocator draws counter values and formats them into business IDs.
type Allocator struct {
	counter  sequence.Incrementer
	now      func() time.Time
	observer Observer
}

// New creates an Allocator drawing from counter.
func New(counter sequence.Incrementer, opts ...Option) *Allocator {
	a := &Allocator{
		counter:  counter,
		now:      func() time.Time { return time.Now().UTC() },
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CreateWithGeneratedID inserts rec, generating its business ID from pattern
// unless the caller already supplied one.
//
// A supplied ID is used verbatim: no counter draw, one insert, any error
// returned as is. An ID made only of whitespace counts as not supplied. Otherwise a value is drawn, formatted and inserted. If the
// insert fails with a duplicate on the business-ID field, a fresh value is
// drawn and the insert is retried exactly once. A second collision returns
// RETRY_EXHAUSTED wrapping the last duplicate. Any other error is returned
// immediately.
func CreateWithGeneratedID[T Record](ctx context.Context, a *Allocator, pattern sequence.Pattern, rec T, insert InsertFunc[T]) (T, error) {
	if supplied := rec.BusinessID(); strings.TrimSpace(supplied) != "" {
		if err := insert(ctx, rec); err != nil {
			return rec, err
		}
		return rec, nil
	}

	if err := pattern.Validate(); err != nil {
		return rec, err
	}

	// Key and period are fixed for the whole call so that a retry across a
	// month boundary still formats with the counter it drew from.
	at := a.now()
	key := pattern.Key(at)
	field := rec.BusinessIDField()

	ctx, span := tracer.Start(ctx, "allocator.create",
		trace.WithAttributes(
			attribute.String("sequence.name", key),
			attribute.String("allocator.field", field),
		))
	defer span.End()

	attempted := make([]string, 0, MaxAttempts)
	var lastErr error

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		seq, err := a.draw(ctx, key)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "counter draw failed")
			return rec, err
		}

		businessID, err := pattern.Format(seq, at)
		if err != nil {
			return rec, err
		}
		rec.SetBusinessID(businessID)
		attempted = append(attempted, businessID)

		span.SetAttributes(
			attribute.Int("allocator.attempt", attempt),
			attribute.Int64("sequence.value", seq),
		)

		err = insert(ctx, rec)
		if err == nil {
			a.observer.Allocated(ctx, Event{
				Sequence:   key,
				Value:      seq,
				BusinessID: businessID,
				Field:      field,
				Attempt:    attempt,
			})
			return rec, nil
		}

		if dupField, ok := apperror.DuplicateField(err); !ok || dupField != field {
			return rec, err
		}

		lastErr = err
		a.observer.Collided(ctx, Event{
			Sequence:   key,
			Value:      seq,
			BusinessID: businessID,
			Field:      field,
			Attempt:    attempt,
			Err:        err,
		})

		if attempt < MaxAttempts {
			logger.Warn(ctx, "generated business id collided, retrying with a fresh value",
				"sequence", key,
				"business_id", businessID,
				"attempt", attempt)
		}
	}

	logger.Error(ctx, "business id allocation exhausted",
		"sequence", key,
		"attempted", attempted,
		"error", lastErr)
	span.SetStatus(codes.Error, "retry exhausted")

	return rec, apperror.NewRetryExhausted(pattern.Name, field, attempted, lastErr)
}

// draw increments the counter. Errors that are not already typed are
// reported as COUNTER_UNAVAILABLE.
func (a *Allocator) draw(ctx context.Context, key string) (int64, error) {
	seq, err := a.counter.IncrementAndGet(ctx, key)
	if err == nil {
		return seq, nil
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return 0, err
	}
	return 0, apperror.NewCounterUnavailable(key, err)
}
