package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmadesk/internal/core/apperror"
)

func TestFormatPaddedID(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		seq    int64
		width  int
		want   string
	}{
		{name: "first", prefix: "MED", seq: 1, width: 5, want: "MED00001"},
		{name: "exact width", prefix: "MED", seq: 99999, width: 5, want: "MED99999"},
		{name: "grows past width", prefix: "MED", seq: 100000, width: 5, want: "MED100000"},
		{name: "patient", prefix: "PAT", seq: 42, width: 5, want: "PAT00042"},
		{name: "width one", prefix: "X", seq: 7, width: 1, want: "X7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatPaddedID(tt.prefix, tt.seq, tt.width)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatPaddedID_RejectsNonPositive(t *testing.T) {
	for _, seq := range []int64{0, -1} {
		got, err := FormatPaddedID("MED", seq, 5)
		assert.Empty(t, got)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "seq %d", seq)
	}
}

func TestFormatDatedID(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month int
		seq   int64
		width int
		want  string
	}{
		{name: "january", year: 2025, month: 1, seq: 3, width: 3, want: "ORD-202501-003"},
		{name: "december", year: 2025, month: 12, seq: 7, width: 3, want: "ORD-202512-007"},
		{name: "grows past width", year: 2025, month: 6, seq: 1234, width: 3, want: "ORD-202506-1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatDatedID("ORD", tt.year, tt.month, tt.seq, tt.width)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatDatedID_RejectsInvalidRanges(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month int
		seq   int64
	}{
		{name: "month zero", year: 2025, month: 0, seq: 1},
		{name: "month thirteen", year: 2025, month: 13, seq: 1},
		{name: "negative month", year: 2025, month: -1, seq: 1},
		{name: "year zero", year: 0, month: 1, seq: 1},
		{name: "year five digits", year: 10000, month: 1, seq: 1},
		{name: "seq zero", year: 2025, month: 1, seq: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatDatedID("ORD", tt.year, tt.month, tt.seq, 3)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
		})
	}
}

func TestParseSeq(t *testing.T) {
	tests := []struct {
		id     string
		want   int64
		wantOK bool
	}{
		{id: "MED00001", want: 1, wantOK: true},
		{id: "MED100000", want: 100000, wantOK: true},
		{id: "ORD-202501-003", want: 3, wantOK: true},
		{id: "RX-202512-0042", want: 42, wantOK: true},
		{id: "MED", wantOK: false},
		{id: "", wantOK: false},
		{id: "MED-X", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, ok := ParseSeq(tt.id)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
