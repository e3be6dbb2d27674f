package entity

import (
	"slices"

	"pharmadesk/internal/core/apperror"
)

// Status is the lifecycle state of a document (order, prescription).
type Status string

// Document is the base type for records with a lifecycle.
type Document struct {
	BaseEntity

	// Status is the current lifecycle state
	Status Status `db:"status" json:"status"`

	// Comment is an optional free-text note
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a document in its initial status.
func NewDocument(initial Status) Document {
	return Document{
		BaseEntity: NewBaseEntity(),
		Status:     initial,
	}
}

// Transition moves the document to next if the current status is one of from.
func (d *Document) Transition(next Status, from ...Status) error {
	if !slices.Contains(from, d.Status) {
		return apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"status transition not allowed",
		).
			WithDetail("from", string(d.Status)).
			WithDetail("to", string(next))
	}
	d.Status = next
	d.Touch()
	return nil
}

// IsIn reports whether the document is in one of the given statuses.
func (d *Document) IsIn(statuses ...Status) bool {
	return slices.Contains(statuses, d.Status)
}
