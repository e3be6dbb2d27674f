package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmadesk/internal/core/allocator"
	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/core/sequence"
	"pharmadesk/internal/core/tx"
	"pharmadesk/internal/domain"
	memseq "pharmadesk/internal/infrastructure/sequence"
)

// medicineRepo enforces the medicine_id and batch_number constraints.
type medicineRepo struct {
	mu         sync.Mutex
	rows       map[id.ID]Medicine
	lastFilter Filter
}

func newMedicineRepo() *medicineRepo {
	return &medicineRepo{rows: make(map[id.ID]Medicine)}
}

func (r *medicineRepo) Create(_ context.Context, m *Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.MedicineID == m.MedicineID {
			return apperror.NewDuplicate("medicine", "medicine_id", m.MedicineID)
		}
		if row.BatchNumber == m.BatchNumber {
			return apperror.NewDuplicate("medicine", "batch_number", m.BatchNumber)
		}
	}
	r.rows[m.ID] = *m
	return nil
}

func (r *medicineRepo) GetByID(_ context.Context, recID id.ID) (*Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[recID]
	if !ok {
		return nil, apperror.NewNotFound("medicines", recID.String())
	}
	return &row, nil
}

func (r *medicineRepo) GetByBusinessID(_ context.Context, code string) (*Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.MedicineID == code && !row.DeletionMark {
			return &row, nil
		}
	}
	return nil, apperror.NewNotFound("medicines", code)
}

func (r *medicineRepo) Update(_ context.Context, m *Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[m.ID]
	if !ok || row.Version != m.Version {
		return apperror.NewConcurrentModification("medicines", m.ID)
	}
	// Quantity is not written by updates.
	qty := row.Quantity
	row = *m
	row.Quantity = qty
	row.Version++
	r.rows[m.ID] = row
	return nil
}

func (r *medicineRepo) SetDeletionMark(_ context.Context, recID id.ID, marked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[recID]
	if !ok {
		return apperror.NewNotFound("medicines", recID.String())
	}
	row.DeletionMark = marked
	r.rows[recID] = row
	return nil
}

func (r *medicineRepo) List(_ context.Context, f Filter) (domain.ListResult[*Medicine], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = f
	res := domain.ListResult[*Medicine]{Limit: f.Limit, Offset: f.Offset}
	for _, row := range r.rows {
		if f.LowStock && !row.IsLowStock() {
			continue
		}
		res.Items = append(res.Items, &row)
	}
	res.TotalCount = int64(len(res.Items))
	return res, nil
}

func newMedicineService(repo *medicineRepo, counter sequence.Counter) *Service[*Medicine] {
	return NewService(KindMedicine, Config[*Medicine]{
		Repo:      repo,
		TxManager: tx.Nop{},
		Allocator: allocator.New(counter),
		Pattern:   sequence.MedicinePattern,
	})
}

func TestService_CreateAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	svc := newMedicineService(newMedicineRepo(), memseq.NewMemoryCounter())

	first, err := svc.Create(ctx, NewMedicine("Paracetamol 500mg", "B-100"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, NewMedicine("Ibuprofen 200mg", "B-101"))
	require.NoError(t, err)

	assert.Equal(t, "MED00001", first.MedicineID)
	assert.Equal(t, "MED00002", second.MedicineID)

	got, err := svc.GetByBusinessID(ctx, "MED00002")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestService_CreateKeepsSuppliedID(t *testing.T) {
	ctx := context.Background()
	counter := memseq.NewMemoryCounter()
	svc := newMedicineService(newMedicineRepo(), counter)

	m := NewMedicine("Amoxicillin", "B-7")
	m.MedicineID = "MED00500"
	created, err := svc.Create(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, "MED00500", created.MedicineID)

	cur, err := counter.Current(ctx, sequence.MedicinePattern.Name)
	require.NoError(t, err)
	assert.Zero(t, cur)
}

func TestService_DuplicateBatchIsNotRetried(t *testing.T) {
	ctx := context.Background()
	counter := memseq.NewMemoryCounter()
	svc := newMedicineService(newMedicineRepo(), counter)

	_, err := svc.Create(ctx, NewMedicine("Paracetamol", "B-1"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, NewMedicine("Paracetamol copy", "B-1"))
	require.Error(t, err)
	field, ok := apperror.DuplicateField(err)
	require.True(t, ok)
	assert.Equal(t, "batch_number", field)

	// The drawn value stays consumed.
	cur, err := counter.Current(ctx, sequence.MedicinePattern.Name)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cur)
}

func TestService_InvalidItemDrawsNothing(t *testing.T) {
	ctx := context.Background()
	counter := memseq.NewMemoryCounter()
	svc := newMedicineService(newMedicineRepo(), counter)

	_, err := svc.Create(ctx, NewMedicine("", "B-1"))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	cur, err := counter.Current(ctx, sequence.MedicinePattern.Name)
	require.NoError(t, err)
	assert.Zero(t, cur)
}

func TestService_CounterOutage(t *testing.T) {
	ctx := context.Background()
	repo := newMedicineRepo()
	svc := newMedicineService(repo, &sequence.MockCounter{
		IncrementAndGetFunc: func(context.Context, string) (int64, error) {
			return 0, context.DeadlineExceeded
		},
	})

	_, err := svc.Create(ctx, NewMedicine("Paracetamol", "B-1"))
	require.Error(t, err)
	assert.True(t, apperror.IsCounterUnavailable(err))
	assert.Empty(t, repo.rows)
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	repo := newMedicineRepo()
	svc := newMedicineService(repo, memseq.NewMemoryCounter())

	low := NewMedicine("Low", "B-1")
	low.ReorderLevel = 10
	_, err := svc.Create(ctx, low)
	require.NoError(t, err)

	plenty := NewMedicine("Plenty", "B-2")
	plenty.Quantity = 100
	plenty.ReorderLevel = 10
	_, err = svc.Create(ctx, plenty)
	require.NoError(t, err)

	res, err := svc.List(ctx, Filter{LowStock: true})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Low", res.Items[0].Name)
	assert.Equal(t, 50, repo.lastFilter.Limit)

	days := -1
	_, err = svc.List(ctx, Filter{ExpiringWithinDays: &days})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
