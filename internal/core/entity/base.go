// Package entity provides base types for all stored records.
package entity

import (
	"context"
	"time"

	"pharmadesk/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// BaseEntity contains the fields shared by every stored record.
type BaseEntity struct {
	// ID is the internal primary key (UUIDv7), never shown as a business ID
	ID id.ID `db:"id" json:"id"`

	// DeletionMark indicates soft-deleted record
	DeletionMark bool `db:"deletion_mark" json:"deletionMark"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}

// NewBaseEntity creates a new BaseEntity with generated ID and timestamps.
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		ID:        id.New(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GetID returns the internal ID.
func (b *BaseEntity) GetID() id.ID {
	return b.ID
}

// GetVersion returns the optimistic locking version.
func (b *BaseEntity) GetVersion() int {
	return b.Version
}

// Touch updates the UpdatedAt timestamp.
// Version is bumped by the repository on successful update.
func (b *BaseEntity) Touch() {
	b.UpdatedAt = time.Now().UTC()
}

// SetCreatedBy stamps creator and updater.
func (b *BaseEntity) SetCreatedBy(operatorID string) {
	b.CreatedBy = operatorID
	b.UpdatedBy = operatorID
}

// SetUpdatedBy stamps the last updater.
func (b *BaseEntity) SetUpdatedBy(operatorID string) {
	b.UpdatedBy = operatorID
}
