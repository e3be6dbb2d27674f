package postgres

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmadesk/internal/domain/audit"
)

func TestAuditService_PackUnpackRoundTrip(t *testing.T) {
	s, err := NewAuditService(nil, 64)
	require.NoError(t, err)

	small := json.RawMessage(`{"name":"Paracetamol"}`)
	changes, compressed, algo := s.pack(small)
	assert.Equal(t, CompressionNone, algo)
	assert.Equal(t, small, changes)
	assert.Nil(t, compressed)

	large := json.RawMessage(`{"description":"` + string(bytes.Repeat([]byte("x"), 500)) + `"}`)
	changes, compressed, algo = s.pack(large)
	assert.Equal(t, CompressionZstd, algo)
	assert.Nil(t, changes)
	assert.Less(t, len(compressed), len(large))

	restored, err := s.unpack(AuditEntry{ChangesCompressed: compressed, CompressionAlgo: algo})
	require.NoError(t, err)
	assert.JSONEq(t, string(large), string(restored))
}

func TestAuditService_CompressionDisabled(t *testing.T) {
	s, err := NewAuditService(nil, 0)
	require.NoError(t, err)

	large := json.RawMessage(`"` + string(bytes.Repeat([]byte("y"), 4096)) + `"`)
	_, _, algo := s.pack(large)
	assert.Equal(t, CompressionNone, algo)
}

func TestDiff(t *testing.T) {
	oldState := map[string]any{"name": "Aspirin", "quantity": int64(10), "unit": "box"}
	newState := map[string]any{"name": "Aspirin", "quantity": int64(12), "category": "analgesic"}

	changes := Diff(oldState, newState)

	assert.NotContains(t, changes, "name")
	assert.Equal(t, map[string]any{"old": int64(10), "new": int64(12)}, changes["quantity"])
	assert.Equal(t, map[string]any{"old": nil, "new": "analgesic"}, changes["category"])
	assert.Equal(t, map[string]any{"old": "box", "new": nil}, changes["unit"])
}

func TestUpdateChanges_KeepsOnlyChangedFields(t *testing.T) {
	type line struct {
		ItemID   string `json:"itemId"`
		Quantity int    `json:"quantity"`
	}
	type order struct {
		Supplier  string `json:"supplier"`
		Version   int    `json:"version"`
		UpdatedBy string `json:"updatedBy,omitempty"`
		Lines     []line `json:"lines"`
	}

	before := &order{Supplier: "Acme", Version: 1, Lines: []line{{"a", 2}}}
	after := &order{Supplier: "Acme", Version: 2, UpdatedBy: "nurse-7", Lines: []line{{"a", 5}}}

	changes, err := updateChanges(audit.Update{Before: before, After: after})
	require.NoError(t, err)

	assert.Len(t, changes, 1)
	require.Contains(t, changes, "lines")
	assert.NotContains(t, changes, "supplier")
	assert.NotContains(t, changes, "version")
	assert.NotContains(t, changes, "updatedBy")
}
