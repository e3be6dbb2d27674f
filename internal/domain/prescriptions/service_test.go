package prescriptions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmadesk/internal/core/allocator"
	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/core/sequence"
	"pharmadesk/internal/core/tx"
	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/inventory"
	"pharmadesk/internal/domain/patients"
	"pharmadesk/internal/domain/stock"
	memseq "pharmadesk/internal/infrastructure/sequence"
)

type memPrescriptions struct {
	mu   sync.Mutex
	rows map[id.ID]Prescription
}

func clone(p Prescription) *Prescription {
	p.Items = append([]Item(nil), p.Items...)
	return &p
}

func (r *memPrescriptions) Create(_ context.Context, p *Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.PrescriptionNumber == p.PrescriptionNumber {
			return apperror.NewDuplicate("prescription", "prescription_number", p.PrescriptionNumber)
		}
	}
	r.rows[p.ID] = *clone(*p)
	return nil
}

func (r *memPrescriptions) GetByID(_ context.Context, pid id.ID) (*Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[pid]
	if !ok {
		return nil, apperror.NewNotFound("prescriptions", pid.String())
	}
	return clone(row), nil
}

func (r *memPrescriptions) GetByBusinessID(_ context.Context, number string) (*Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.PrescriptionNumber == number {
			return clone(row), nil
		}
	}
	return nil, apperror.NewNotFound("prescriptions", number)
}

func (r *memPrescriptions) Update(_ context.Context, p *Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := clone(*p)
	next.Version++
	r.rows[p.ID] = *next
	return nil
}

func (r *memPrescriptions) SetDeletionMark(context.Context, id.ID, bool) error { return nil }

func (r *memPrescriptions) List(_ context.Context, f Filter) (domain.ListResult[*Prescription], error) {
	return domain.ListResult[*Prescription]{Limit: f.Limit}, nil
}

type patientsByID map[id.ID]*patients.Patient

func (m patientsByID) GetByID(_ context.Context, pid id.ID) (*patients.Patient, error) {
	if p, ok := m[pid]; ok {
		return p, nil
	}
	return nil, apperror.NewNotFound("patient", pid.String())
}

type fakeStock struct {
	movements []stock.Movement
	err       error
}

func (s *fakeStock) AdjustAll(_ context.Context, movements []stock.Movement) ([]stock.Movement, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.movements = append(s.movements, movements...)
	return movements, nil
}

type fixture struct {
	svc     *Service
	counter *memseq.MemoryCounter
	stock   *fakeStock
	patient *patients.Patient
}

func newFixture(now time.Time) *fixture {
	patient := patients.NewPatient("Ada", "Lovelace")
	patient.PatientID = "PAT00001"

	f := &fixture{
		counter: memseq.NewMemoryCounter(),
		stock:   &fakeStock{},
		patient: patient,
	}
	f.svc = NewService(Config{
		Repo:      &memPrescriptions{rows: make(map[id.ID]Prescription)},
		TxManager: tx.Nop{},
		Allocator: allocator.New(f.counter, allocator.WithClock(func() time.Time { return now })),
		Pattern:   sequence.PrescriptionPattern,
		Patients:  patientsByID{patient.ID: patient},
		Stock:     f.stock,
	})
	f.svc.now = func() time.Time { return now }
	return f
}

func (f *fixture) prescription(medicineID id.ID, qty int64) *Prescription {
	p := NewPrescription(f.patient.ID, "Dr. House", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	p.AddItem(Item{MedicineID: medicineID, Dosage: "500mg", Frequency: "2x daily", DurationDays: 7, Quantity: qty})
	return p
}

func TestCreate_PrescriptionNumber(t *testing.T) {
	f := newFixture(time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC))

	p, err := f.svc.Create(context.Background(), f.prescription(id.New(), 14))
	require.NoError(t, err)
	assert.Equal(t, "RX-202503-0001", p.PrescriptionNumber)
	assert.Equal(t, StatusActive, p.Status)
	assert.Equal(t, 1, p.Items[0].LineNo)
}

func TestCreate_UnknownPatientDrawsNoNumber(t *testing.T) {
	f := newFixture(time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC))
	ctx := context.Background()

	p := f.prescription(id.New(), 1)
	p.PatientID = id.New()
	_, err := f.svc.Create(ctx, p)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	current, err := f.counter.Current(ctx, "prescription-202503")
	require.NoError(t, err)
	assert.Zero(t, current)
}

func TestDispense_WithdrawsStock(t *testing.T) {
	now := time.Date(2025, 3, 5, 8, 30, 0, 0, time.UTC)
	f := newFixture(now)
	ctx := context.Background()
	medicineID := id.New()

	p, err := f.svc.Create(ctx, f.prescription(medicineID, 14))
	require.NoError(t, err)

	dispensed, err := f.svc.Dispense(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDispensed, dispensed.Status)
	assert.Equal(t, now, *dispensed.DispensedAt)

	require.Len(t, f.stock.movements, 1)
	m := f.stock.movements[0]
	assert.Equal(t, inventory.KindMedicine, m.ItemKind)
	assert.Equal(t, medicineID, m.ItemID)
	assert.Equal(t, int64(-14), m.Delta)
	assert.Equal(t, stock.ReasonDispense, m.Reason)
	assert.Equal(t, "RX-202503-0001", m.Reference)

	_, err = f.svc.Dispense(ctx, p.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule), "dispensing twice is rejected")
}

func TestDispense_ShortageKeepsPrescriptionActive(t *testing.T) {
	f := newFixture(time.Now())
	ctx := context.Background()
	f.stock.err = apperror.NewInsufficientStock("m", 14, 2)

	p, err := f.svc.Create(ctx, f.prescription(id.New(), 14))
	require.NoError(t, err)

	_, err = f.svc.Dispense(ctx, p.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	stored, err := f.svc.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, stored.Status)
}

func TestCancel(t *testing.T) {
	f := newFixture(time.Now())
	ctx := context.Background()

	p, err := f.svc.Create(ctx, f.prescription(id.New(), 1))
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = f.svc.Dispense(ctx, p.ID)
	assert.Error(t, err)
	assert.Empty(t, f.stock.movements)
}
