package sequences

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/core/sequence"
	"pharmadesk/internal/domain/audit"
	memseq "pharmadesk/internal/infrastructure/sequence"
)

// storedIDs answers LastBusinessID from a fixed list, matching the
// prefix-then-digits rule of the record store.
type storedIDs []string

func (s storedIDs) LastBusinessID(_ context.Context, prefix string) (string, bool, error) {
	shape := regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + "[0-9]+$")
	best := ""
	for _, v := range s {
		if !shape.MatchString(v) {
			continue
		}
		if len(v) > len(best) || (len(v) == len(best) && v > best) {
			best = v
		}
	}
	return best, best != "", nil
}

type recorded struct {
	businessID string
	action     audit.Action
}

type fakeAudit struct{ entries []recorded }

func (a *fakeAudit) LogChange(_ context.Context, entityType string, _ id.ID, businessID string, action audit.Action, _ any) error {
	a.entries = append(a.entries, recorded{businessID, action})
	return nil
}

func newTestService() (*Service, *memseq.MemoryCounter, *fakeAudit) {
	counter := memseq.NewMemoryCounter()
	rec := &fakeAudit{}
	svc := NewService(counter, sequence.DefaultPatterns(), rec)
	svc.now = func() time.Time { return time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC) }
	return svc, counter, rec
}

func TestGet_PreviewsNextID(t *testing.T) {
	svc, counter, _ := newTestService()
	ctx := context.Background()

	for range 3 {
		_, err := counter.IncrementAndGet(ctx, "order-202501")
		require.NoError(t, err)
	}

	info, err := svc.Get(ctx, "order-202501")
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Value)
	assert.Equal(t, "order", info.Pattern)
	assert.Equal(t, "ORD-202501-004", info.NextID)

	info, err = svc.Get(ctx, "medicine")
	require.NoError(t, err)
	assert.Zero(t, info.Value)
	assert.Equal(t, "MED00001", info.NextID)

	info, err = svc.Get(ctx, "custom")
	require.NoError(t, err)
	assert.Empty(t, info.Pattern)
}

func TestSet_AuditsAndValidates(t *testing.T) {
	svc, counter, rec := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "medicine", 120))
	next, err := counter.IncrementAndGet(ctx, "medicine")
	require.NoError(t, err)
	assert.Equal(t, int64(121), next)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, recorded{"medicine", audit.ActionSequenceSet}, rec.entries[0])

	err = svc.Set(ctx, "medicine", -1)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	err = svc.Set(ctx, "", 1)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestSync_RaisesToHighestStoredID(t *testing.T) {
	svc, counter, _ := newTestService()
	ctx := context.Background()

	svc.RegisterSource("medicine", storedIDs{"MED00007", "MED99999", "MED100002", "MED-LEGACY", "MED-LEGACY-7"})

	res, err := svc.Sync(ctx, "medicine", svc.now())
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "MED100002", res.LastID)
	assert.Equal(t, int64(100002), res.Value)

	current, err := counter.Current(ctx, "medicine")
	require.NoError(t, err)
	assert.Equal(t, int64(100002), current)
}

func TestSync_MonthlyAndNeverLowers(t *testing.T) {
	svc, counter, _ := newTestService()
	ctx := context.Background()

	svc.RegisterSource("order", storedIDs{"ORD-202412-090", "ORD-202501-004"})
	require.NoError(t, counter.Set(ctx, "order-202501", 10))

	res, err := svc.Sync(ctx, "order", svc.now())
	require.NoError(t, err)
	assert.Equal(t, "order-202501", res.Key)
	assert.Equal(t, "ORD-202501-004", res.LastID)
	assert.False(t, res.Changed)
	assert.Equal(t, int64(10), res.Value)
}

func TestSync_Errors(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Sync(ctx, "unknown", svc.now())
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.Sync(ctx, "patient", svc.now())
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestSyncAll(t *testing.T) {
	svc, _, _ := newTestService()
	svc.RegisterSource("patient", storedIDs{"PAT00012"})
	svc.RegisterSource("prescription", storedIDs{})

	results, err := svc.SyncAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "patient", results[0].Pattern)
	assert.Equal(t, int64(12), results[0].Value)
	assert.Equal(t, "prescription-202501", results[1].Key)
	assert.False(t, results[1].Changed)
}

// drawingCounter lets a batch of draws land after Current has been read and
// before the counter is raised.
type drawingCounter struct {
	*memseq.MemoryCounter
	draws int
	once  sync.Once
}

func (c *drawingCounter) Current(ctx context.Context, name string) (int64, error) {
	v, err := c.MemoryCounter.Current(ctx, name)
	c.once.Do(func() {
		var wg sync.WaitGroup
		for range c.draws {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = c.MemoryCounter.IncrementAndGet(ctx, name)
			}()
		}
		wg.Wait()
	})
	return v, err
}

func TestSync_DrawsDuringSyncAreKept(t *testing.T) {
	ctx := context.Background()
	counter := &drawingCounter{MemoryCounter: memseq.NewMemoryCounter(), draws: 10}
	_, err := counter.Raise(ctx, "medicine", 5)
	require.NoError(t, err)

	rec := &fakeAudit{}
	svc := NewService(counter, sequence.DefaultPatterns(), rec)
	svc.RegisterSource("medicine", storedIDs{"MED00007"})

	res, err := svc.Sync(ctx, "medicine", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Previous)
	assert.Equal(t, int64(15), res.Value)
	assert.False(t, res.Changed)
	assert.Empty(t, rec.entries)

	next, err := counter.IncrementAndGet(ctx, "medicine")
	require.NoError(t, err)
	assert.Equal(t, int64(16), next)
}

func TestSync_IgnoresSuppliedIDs(t *testing.T) {
	svc, counter, _ := newTestService()
	ctx := context.Background()

	svc.RegisterSource("medicine", storedIDs{"MED-LEGACY", "MEDX99", "MED-LEGACY-70"})

	res, err := svc.Sync(ctx, "medicine", svc.now())
	require.NoError(t, err)
	assert.Empty(t, res.LastID)
	assert.False(t, res.Changed)

	current, err := counter.Current(ctx, "medicine")
	require.NoError(t, err)
	assert.Zero(t, current)
}
