package sequence

import (
	"fmt"
	"strconv"

	"pharmadesk/internal/core/apperror"
)

// FormatPaddedID renders prefix followed by seq zero-padded to width digits.
// Values wider than width keep all their digits: FormatPaddedID("MED", 100000, 5)
// is "MED100000", never a truncated "MED00000". Counters start at 1, so a
// seq below 1 is rejected.
func FormatPaddedID(prefix string, seq int64, width int) (string, error) {
	if seq < 1 {
		return "", apperror.NewValidation("sequence value must be positive").
			WithDetail("seq", seq)
	}
	return fmt.Sprintf("%s%0*d", prefix, width, seq), nil
}

// FormatDatedID renders PREFIX-YYYYMM-NNN, e.g. ORD-202501-003.
// The numeric part grows past width the same way FormatPaddedID does.
func FormatDatedID(prefix string, year, month int, seq int64, width int) (string, error) {
	if month < 1 || month > 12 {
		return "", apperror.NewValidation("month must be between 1 and 12").
			WithDetail("month", month)
	}
	if year < 1 || year > 9999 {
		return "", apperror.NewValidation("year must be between 1 and 9999").
			WithDetail("year", year)
	}
	if seq < 1 {
		return "", apperror.NewValidation("sequence value must be positive").
			WithDetail("seq", seq)
	}
	return fmt.Sprintf("%s-%04d%02d-%0*d", prefix, year, month, width, seq), nil
}

// ParseSeq extracts the trailing numeric part of a business ID.
// Returns false if the ID does not end in digits.
func ParseSeq(businessID string) (int64, bool) {
	i := len(businessID)
	for i > 0 && businessID[i-1] >= '0' && businessID[i-1] <= '9' {
		i--
	}
	if i == len(businessID) {
		return 0, false
	}
	n, err := strconv.ParseInt(businessID[i:], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
