package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmadesk/internal/core/apperror"
)

func TestItemValidate(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		wantErr bool
	}{
		{"equal", Item{Field: "category", Operator: Equal, Value: "antibiotic"}, false},
		{"null needs no value", Item{Field: "expiry_date", Operator: IsNull}, false},
		{"missing field", Item{Operator: Equal, Value: 1}, true},
		{"missing value", Item{Field: "quantity", Operator: Greater}, true},
		{"unknown operator", Item{Field: "quantity", Operator: "between", Value: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
		})
	}
}
