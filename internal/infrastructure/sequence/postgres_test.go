package sequence

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmadesk/internal/core/apperror"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates sys_sequences with a map guarded by a mutex,
// standing in for the row lock taken by the upsert.
type mockQuerier struct {
	mu      sync.Mutex
	values  map[string]int64
	err     error
	queries []string
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{values: make(map[string]int64)}
}

func (m *mockQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, sql)

	if m.err != nil {
		return &mockRow{err: m.err}
	}

	name := args[0].(string)
	if strings.Contains(sql, "GREATEST") {
		m.values[name] = max(m.values[name], args[1].(int64))
		return &mockRow{val: m.values[name]}
	}
	if strings.Contains(sql, "INSERT INTO sys_sequences") {
		m.values[name]++
		return &mockRow{val: m.values[name]}
	}

	v, ok := m.values[name]
	if !ok {
		return &mockRow{err: pgx.ErrNoRows}
	}
	return &mockRow{val: v}
}

func (m *mockQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, sql)
	if m.err != nil {
		return pgconn.CommandTag{}, m.err
	}
	m.values[args[0].(string)] = args[1].(int64)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (m *mockQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported by mock")
}

func TestPostgresCounter_IncrementAndGet(t *testing.T) {
	q := newMockQuerier()
	c := NewPostgresCounter(q)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.IncrementAndGet(ctx, "medicine")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	require.NotEmpty(t, q.queries)
	assert.Contains(t, q.queries[0], "ON CONFLICT (name) DO UPDATE")
	assert.Contains(t, q.queries[0], "RETURNING seq")
}

func TestPostgresCounter_ConcurrentDistinctValues(t *testing.T) {
	c := NewPostgresCounter(newMockQuerier())
	ctx := context.Background()

	const k = 100
	seen := make(map[int64]bool, k)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.IncrementAndGet(ctx, "x")
			assert.NoError(t, err)
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, k)
	for v := int64(1); v <= k; v++ {
		assert.True(t, seen[v], "value %d missing", v)
	}
}

func TestPostgresCounter_StoreFailureIsCounterUnavailable(t *testing.T) {
	q := newMockQuerier()
	q.err = errors.New("dial tcp: connection refused")
	c := NewPostgresCounter(q)

	_, err := c.IncrementAndGet(context.Background(), "medicine")

	require.Error(t, err)
	assert.True(t, apperror.IsCounterUnavailable(err))
	assert.ErrorIs(t, err, q.err)
}

func TestPostgresCounter_EmptyNameNeverReachesStore(t *testing.T) {
	q := newMockQuerier()
	c := NewPostgresCounter(q)

	_, err := c.IncrementAndGet(context.Background(), "")

	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	assert.Empty(t, q.queries)
}

func TestPostgresCounter_CurrentAndSet(t *testing.T) {
	q := newMockQuerier()
	c := NewPostgresCounter(q)
	ctx := context.Background()

	cur, err := c.Current(ctx, "patient")
	require.NoError(t, err)
	assert.Zero(t, cur)

	require.NoError(t, c.Set(ctx, "patient", 250))
	next, err := c.IncrementAndGet(ctx, "patient")
	require.NoError(t, err)
	assert.Equal(t, int64(251), next)

	cur, err = c.Current(ctx, "patient")
	require.NoError(t, err)
	assert.Equal(t, int64(251), cur)
}

func TestPostgresCounter_RaiseKeepsHigherValue(t *testing.T) {
	q := newMockQuerier()
	c := NewPostgresCounter(q)
	ctx := context.Background()

	for range 15 {
		_, err := c.IncrementAndGet(ctx, "medicine")
		require.NoError(t, err)
	}

	v, err := c.Raise(ctx, "medicine", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(15), v)
	assert.Contains(t, q.queries[len(q.queries)-1], "GREATEST(sys_sequences.seq, EXCLUDED.seq)")

	v, err = c.Raise(ctx, "medicine", 40)
	require.NoError(t, err)
	assert.Equal(t, int64(40), v)

	q.err = errors.New("connection refused")
	_, err = c.Raise(ctx, "medicine", 50)
	assert.True(t, apperror.IsCounterUnavailable(err))
}
