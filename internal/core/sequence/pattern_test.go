package sequence

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPattern_KeyAndFormat(t *testing.T) {
	jan := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)
	dec := time.Date(2025, time.December, 31, 23, 59, 0, 0, time.UTC)

	tests := []struct {
		name    string
		pattern Pattern
		at      time.Time
		seq     int64
		wantKey string
		wantID  string
	}{
		{name: "medicine", pattern: MedicinePattern, at: jan, seq: 1, wantKey: "medicine", wantID: "MED00001"},
		{name: "medicine ignores month", pattern: MedicinePattern, at: dec, seq: 12, wantKey: "medicine", wantID: "MED00012"},
		{name: "order january", pattern: OrderPattern, at: jan, seq: 3, wantKey: "order-202501", wantID: "ORD-202501-003"},
		{name: "order december", pattern: OrderPattern, at: dec, seq: 7, wantKey: "order-202512", wantID: "ORD-202512-007"},
		{name: "prescription", pattern: PrescriptionPattern, at: jan, seq: 1, wantKey: "prescription-202501", wantID: "RX-202501-0001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKey, tt.pattern.Key(tt.at))

			got, err := tt.pattern.Format(tt.seq, tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got)
		})
	}
}

func TestPattern_Validate(t *testing.T) {
	for name, p := range DefaultPatterns() {
		assert.NoError(t, p.Validate(), name)
	}

	invalid := []Pattern{
		{Name: "", Prefix: "X", Width: 3, Scope: ScopeNever},
		{Name: "x", Prefix: " ", Width: 3, Scope: ScopeNever},
		{Name: "x", Prefix: "X", Width: 0, Scope: ScopeNever},
		{Name: "x", Prefix: "X", Width: MaxWidth + 1, Scope: ScopeNever},
		{Name: "x", Prefix: "X", Width: 3, Scope: "yearly"},
	}
	for _, p := range invalid {
		assert.Error(t, p.Validate(), "%+v", p)
	}
}

func TestPattern_IDPrefix(t *testing.T) {
	at := time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, "MED", MedicinePattern.IDPrefix(at))
	assert.Equal(t, "ORD-202501-", OrderPattern.IDPrefix(at))

	id, err := OrderPattern.Format(7, at)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, OrderPattern.IDPrefix(at)))
}
