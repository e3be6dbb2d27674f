// Package id provides internal record identifiers.
//
// Internal IDs are UUIDv7 and never shown to clinic staff; the human-readable
// business IDs (MED00001, ORD-202501-003) come from the sequence allocator.
package id

import (
	"github.com/google/uuid"
)

// ID is the primary key type of every stored record.
type ID = uuid.UUID

// Nil is the zero ID.
var Nil ID = uuid.Nil

// New generates a time-ordered UUIDv7, falling back to v4.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts string to ID, panics on error. Tests only.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}
