package allocator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/sequence"
)

type medicine struct {
	ID          string
	BatchNumber string
}

func (m *medicine) BusinessID() string      { return m.ID }
func (m *medicine) SetBusinessID(id string) { m.ID = id }
func (m *medicine) BusinessIDField() string { return "medicine_id" }

// countingCounter is an in-process counter that records every draw.
type countingCounter struct {
	mu     sync.Mutex
	values map[string]int64
	draws  []string
	err    error
}

func newCountingCounter() *countingCounter {
	return &countingCounter{values: make(map[string]int64)}
}

func (c *countingCounter) IncrementAndGet(_ context.Context, name string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draws = append(c.draws, name)
	if c.err != nil {
		return 0, c.err
	}
	c.values[name]++
	return c.values[name], nil
}

func (c *countingCounter) drawCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.draws)
}

// recordingInsert returns an InsertFunc that fails with errs in order and
// succeeds once they run out. Every attempted ID is recorded.
func recordingInsert(errs ...error) (InsertFunc[*medicine], *[]string) {
	var seen []string
	return func(_ context.Context, m *medicine) error {
		seen = append(seen, m.ID)
		if len(errs) == 0 {
			return nil
		}
		err := errs[0]
		errs = errs[1:]
		return err
	}, &seen
}

func duplicateOn(field, value string) error {
	return apperror.NewDuplicate("medicine", field, value)
}

func TestCreateWithGeneratedID_HappyPath(t *testing.T) {
	counter := newCountingCounter()
	a := New(counter)
	insert, seen := recordingInsert()

	got, err := CreateWithGeneratedID(context.Background(), a, sequence.MedicinePattern, &medicine{}, insert)

	require.NoError(t, err)
	assert.Equal(t, "MED00001", got.ID)
	assert.Equal(t, 1, counter.drawCount())
	assert.Equal(t, []string{"MED00001"}, *seen)
}

func TestCreateWithGeneratedID_RetriesOnBusinessIDCollision(t *testing.T) {
	counter := newCountingCounter()
	a := New(counter)
	insert, seen := recordingInsert(duplicateOn("medicine_id", "MED00001"))

	got, err := CreateWithGeneratedID(context.Background(), a, sequence.MedicinePattern, &medicine{}, insert)

	require.NoError(t, err)
	assert.Equal(t, "MED00002", got.ID, "second drawn value must be used")
	assert.Equal(t, 2, counter.drawCount())
	assert.Equal(t, []string{"MED00001", "MED00002"}, *seen)
}

func TestCreateWithGeneratedID_NoRetryOnOtherField(t *testing.T) {
	counter := newCountingCounter()
	a := New(counter)
	dup := duplicateOn("batch_number", "B-1")
	insert, seen := recordingInsert(dup)

	_, err := CreateWithGeneratedID(context.Background(), a, sequence.MedicinePattern, &medicine{BatchNumber: "B-1"}, insert)

	require.Error(t, err)
	assert.Same(t, dup, err)
	field, ok := apperror.DuplicateField(err)
	require.True(t, ok)
	assert.Equal(t, "batch_number", field)
	assert.Equal(t, 1, counter.drawCount())
	assert.Len(t, *seen, 1)
}

func TestCreateWithGeneratedID_RetryExhausted(t *testing.T) {
	counter := newCountingCounter()
	a := New(counter)
	last := duplicateOn("medicine_id", "MED00002")
	insert, seen := recordingInsert(duplicateOn("medicine_id", "MED00001"), last, nil)

	_, err := CreateWithGeneratedID(context.Background(), a, sequence.MedicinePattern, &medicine{}, insert)

	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeRetryExhausted))
	assert.Equal(t, 2, counter.drawCount())
	assert.Equal(t, []string{"MED00001", "MED00002"}, *seen)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"MED00001", "MED00002"}, appErr.Details["attempted"])
	assert.True(t, errors.Is(err, last), "exhausted error wraps the last duplicate")
}

func TestCreateWithGeneratedID_SuppliedIDBypassesCounter(t *testing.T) {
	counter := newCountingCounter()
	a := New(counter)
	insert, seen := recordingInsert()

	got, err := CreateWithGeneratedID(context.Background(), a, sequence.MedicinePattern, &medicine{ID: "MED-LEGACY-7"}, insert)

	require.NoError(t, err)
	assert.Equal(t, "MED-LEGACY-7", got.ID)
	assert.Equal(t, 0, counter.drawCount())
	assert.Equal(t, []string{"MED-LEGACY-7"}, *seen)
}

func TestCreateWithGeneratedID_SuppliedIDIsNotAltered(t *testing.T) {
	counter := newCountingCounter()
	a := New(counter)
	insert, seen := recordingInsert()

	got, err := CreateWithGeneratedID(context.Background(), a, sequence.MedicinePattern, &medicine{ID: " MED-7 "}, insert)
	require.NoError(t, err)
	assert.Equal(t, " MED-7 ", got.ID)
	assert.Equal(t, []string{" MED-7 "}, *seen)
	assert.Equal(t, 0, counter.drawCount())

	got, err = CreateWithGeneratedID(context.Background(), a, sequence.MedicinePattern, &medicine{ID: "   "}, insert)
	require.NoError(t, err)
	assert.Equal(t, "MED00001", got.ID)
	assert.Equal(t, 1, counter.drawCount())
}

func TestCreateWithGeneratedID_SuppliedIDDuplicateIsNotRetried(t *testing.T) {
	counter := newCountingCounter()
	a := New(counter)
	insert, seen := recordingInsert(duplicateOn("medicine_id", "MED00001"))

	_, err := CreateWithGeneratedID(context.Background(), a, sequence.MedicinePattern, &medicine{ID: "MED00001"}, insert)

	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))
	assert.Equal(t, 0, counter.drawCount())
	assert.Len(t, *seen, 1)
}

func TestCreateWithGeneratedID_NonDuplicateErrorIsNotRetried(t *testing.T) {
	counter := newCountingCounter()
	a := New(counter)
	validation := apperror.NewRecordValidation("medicine", map[string]string{"name": "required"})
	insert, seen := recordingInsert(validation)

	_, err := CreateWithGeneratedID(context.Background(), a, sequence.MedicinePattern, &medicine{}, insert)

	assert.Same(t, validation, err)
	assert.Equal(t, 1, counter.drawCount())
	assert.Len(t, *seen, 1)
}

func TestCreateWithGeneratedID_CounterFailure(t *testing.T) {
	counter := newCountingCounter()
	counter.err = errors.New("connection refused")
	a := New(counter)
	insert, seen := recordingInsert()

	_, err := CreateWithGeneratedID(context.Background(), a, sequence.MedicinePattern, &medicine{}, insert)

	require.Error(t, err)
	assert.True(t, apperror.IsCounterUnavailable(err))
	assert.Empty(t, *seen, "insert must not run without an ID")
}

func TestCreateWithGeneratedID_MonthlyPattern(t *testing.T) {
	counter := newCountingCounter()
	counter.values["order-202501"] = 2
	clock := func() time.Time { return time.Date(2025, time.January, 20, 9, 0, 0, 0, time.UTC) }
	a := New(counter, WithClock(clock))

	insert, _ := recordingInsert()
	got, err := CreateWithGeneratedID(context.Background(), a, sequence.OrderPattern, &medicine{}, insert)

	require.NoError(t, err)
	assert.Equal(t, "ORD-202501-003", got.ID)
	assert.Equal(t, []string{"order-202501"}, counter.draws)
}

func TestCreateWithGeneratedID_ObserverEvents(t *testing.T) {
	counter := newCountingCounter()
	var allocated, collided []Event
	a := New(counter, WithObserver(ObserverFuncs{
		OnAllocated: func(_ context.Context, e Event) { allocated = append(allocated, e) },
		OnCollided:  func(_ context.Context, e Event) { collided = append(collided, e) },
	}))
	insert, _ := recordingInsert(duplicateOn("medicine_id", "MED00001"))

	_, err := CreateWithGeneratedID(context.Background(), a, sequence.MedicinePattern, &medicine{}, insert)
	require.NoError(t, err)

	require.Len(t, collided, 1)
	assert.Equal(t, "MED00001", collided[0].BusinessID)
	assert.Equal(t, 1, collided[0].Attempt)

	require.Len(t, allocated, 1)
	assert.Equal(t, "MED00002", allocated[0].BusinessID)
	assert.Equal(t, int64(2), allocated[0].Value)
	assert.Equal(t, 2, allocated[0].Attempt)
}

func TestCreateWithGeneratedID_ConcurrentCreatesGetDistinctIDs(t *testing.T) {
	counter := newCountingCounter()
	a := New(counter)

	const n = 50
	var (
		mu  sync.Mutex
		ids = make(map[string]struct{}, n)
		wg  sync.WaitGroup
	)
	insert := func(_ context.Context, m *medicine) error {
		mu.Lock()
		defer mu.Unlock()
		if _, ok := ids[m.ID]; ok {
			return duplicateOn("medicine_id", m.ID)
		}
		ids[m.ID] = struct{}{}
		return nil
	}

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := CreateWithGeneratedID(context.Background(), a, sequence.MedicinePattern, &medicine{}, insert)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, ids, n)
	assert.Equal(t, n, counter.drawCount())
}
