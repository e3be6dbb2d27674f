package stock

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmadesk/internal/core/apperror"
	appctx "pharmadesk/internal/core/context"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/core/tx"
	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/inventory"
)

type itemKey struct {
	kind inventory.Kind
	id   id.ID
}

// memRepo applies adjustments under a mutex, like the guarded UPDATE does.
// txManager below snapshots and restores it to emulate rollback.
type memRepo struct {
	mu        sync.Mutex
	qty       map[itemKey]int64
	movements []Movement
}

func newMemRepo() *memRepo {
	return &memRepo{qty: make(map[itemKey]int64)}
}

func (r *memRepo) AdjustQuantity(_ context.Context, kind inventory.Kind, itemID id.ID, delta int64) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := itemKey{kind, itemID}
	qty, ok := r.qty[k]
	if !ok {
		return 0, false, apperror.NewNotFound(string(kind), itemID.String())
	}
	if qty+delta < 0 {
		return qty, false, nil
	}
	r.qty[k] = qty + delta
	return qty + delta, true, nil
}

func (r *memRepo) CreateMovement(_ context.Context, m *Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, *m)
	return nil
}

func (r *memRepo) ListMovements(_ context.Context, f Filter) (domain.ListResult[Movement], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Movement
	for _, m := range r.movements {
		if f.Reference != "" && m.Reference != f.Reference {
			continue
		}
		out = append(out, m)
	}
	return domain.ListResult[Movement]{Items: out, TotalCount: int64(len(out)), Limit: f.Limit}, nil
}

func (r *memRepo) quantity(kind inventory.Kind, itemID id.ID) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.qty[itemKey{kind, itemID}]
}

// snapshotTx restores the repo state when fn fails. Nested calls join the
// outermost transaction.
type snapshotTx struct {
	repo  *memRepo
	depth int
}

func (t *snapshotTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.depth > 0 {
		return fn(ctx)
	}
	t.repo.mu.Lock()
	qty := make(map[itemKey]int64, len(t.repo.qty))
	for k, v := range t.repo.qty {
		qty[k] = v
	}
	movements := append([]Movement(nil), t.repo.movements...)
	t.repo.mu.Unlock()

	t.depth++
	err := fn(ctx)
	t.depth--
	if err != nil {
		t.repo.mu.Lock()
		t.repo.qty = qty
		t.repo.movements = movements
		t.repo.mu.Unlock()
	}
	return err
}

func TestAdjust_AppliesAndRecordsMovement(t *testing.T) {
	repo := newMemRepo()
	itemID := id.New()
	repo.qty[itemKey{inventory.KindMedicine, itemID}] = 10

	svc := NewService(repo, &snapshotTx{repo: repo}, nil)
	ctx := appctx.WithOperator(context.Background(), &appctx.Operator{ID: "pharm-1"})

	m, err := svc.Adjust(ctx, Movement{
		ItemKind:  inventory.KindMedicine,
		ItemID:    itemID,
		Delta:     -4,
		Reason:    ReasonDispense,
		Reference: "RX-202501-0001",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(6), m.ResultingQuantity)
	assert.Equal(t, "pharm-1", m.OperatorID)
	assert.False(t, id.IsNil(m.ID))
	assert.Equal(t, int64(6), repo.quantity(inventory.KindMedicine, itemID))
	require.Len(t, repo.movements, 1)
}

func TestAdjust_InsufficientStock(t *testing.T) {
	repo := newMemRepo()
	itemID := id.New()
	repo.qty[itemKey{inventory.KindChemical, itemID}] = 3

	svc := NewService(repo, &snapshotTx{repo: repo}, nil)

	_, err := svc.Adjust(context.Background(), Movement{
		ItemKind: inventory.KindChemical,
		ItemID:   itemID,
		Delta:    -5,
		Reason:   ReasonUsage,
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, int64(5), appErr.Details["requested"])
	assert.Equal(t, int64(3), appErr.Details["available"])
	assert.Equal(t, int64(3), repo.quantity(inventory.KindChemical, itemID))
	assert.Empty(t, repo.movements)
}

func TestAdjust_Validation(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)

	tests := []struct {
		name string
		m    Movement
	}{
		{"zero delta", Movement{ItemKind: inventory.KindMedicine, ItemID: id.New(), Reason: ReasonAdjustment}},
		{"bad kind", Movement{ItemKind: "reagent", ItemID: id.New(), Delta: 1, Reason: ReasonAdjustment}},
		{"missing item", Movement{ItemKind: inventory.KindMedicine, Delta: 1, Reason: ReasonAdjustment}},
		{"bad reason", Movement{ItemKind: inventory.KindMedicine, ItemID: id.New(), Delta: 1, Reason: "gift"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Adjust(context.Background(), tt.m)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
		})
	}
}

func TestAdjustAll_RollsBackOnShortage(t *testing.T) {
	repo := newMemRepo()
	a, b := id.New(), id.New()
	repo.qty[itemKey{inventory.KindMedicine, a}] = 10
	repo.qty[itemKey{inventory.KindMedicine, b}] = 1

	svc := NewService(repo, &snapshotTx{repo: repo}, nil)

	_, err := svc.AdjustAll(context.Background(), []Movement{
		{ItemKind: inventory.KindMedicine, ItemID: a, Delta: -2, Reason: ReasonDispense, Reference: "RX-202501-0002"},
		{ItemKind: inventory.KindMedicine, ItemID: b, Delta: -2, Reason: ReasonDispense, Reference: "RX-202501-0002"},
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	assert.Equal(t, int64(10), repo.quantity(inventory.KindMedicine, a))
	assert.Empty(t, repo.movements)
}

func TestAdjust_ConcurrentWithdrawalsNeverGoNegative(t *testing.T) {
	repo := newMemRepo()
	itemID := id.New()
	repo.qty[itemKey{inventory.KindMedicine, itemID}] = 50

	// Each Adjust is atomic at the repository; no outer transaction needed.
	svc := NewService(repo, tx.Nop{}, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for range 80 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Adjust(context.Background(), Movement{
				ItemKind: inventory.KindMedicine, ItemID: itemID, Delta: -1, Reason: ReasonUsage,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, succeeded)
	assert.Zero(t, repo.quantity(inventory.KindMedicine, itemID))
}
