// Package audit defines the audit trail contract used by domain services
// and the helpers that stamp operator fields on records.
package audit

import (
	"context"

	appctx "pharmadesk/internal/core/context"
	"pharmadesk/internal/core/id"
)

// Action is the kind of audited operation.
type Action string

const (
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionStatus      Action = "status_change"
	ActionStockAdjust Action = "stock_adjust"
	ActionIDAllocated Action = "id_allocated"
	ActionIDCollision Action = "id_collision"
	ActionSequenceSet Action = "sequence_set"
)

// EntitySequence is the entity type of counter events; the business ID
// holds the counter key.
const EntitySequence = "sequence"

// Update is the payload of an update entry. Recorders may store it as the
// set of fields that changed between Before and After.
type Update struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

// Recorder writes audit entries. Implementations join the transaction
// carried by ctx when there is one.
type Recorder interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, businessID string, action Action, changes any) error
}

// Nop discards every entry.
type Nop struct{}

// LogChange implements Recorder.
func (Nop) LogChange(context.Context, string, id.ID, string, Action, any) error {
	return nil
}

// StampCreated sets CreatedBy and UpdatedBy from the operator in ctx.
// No-op when the request carries no operator.
func StampCreated(ctx context.Context, e interface{ SetCreatedBy(string) }) {
	if operatorID := appctx.GetOperatorID(ctx); operatorID != "" {
		e.SetCreatedBy(operatorID)
	}
}

// StampUpdated sets UpdatedBy from the operator in ctx.
func StampUpdated(ctx context.Context, e interface{ SetUpdatedBy(string) }) {
	if operatorID := appctx.GetOperatorID(ctx); operatorID != "" {
		e.SetUpdatedBy(operatorID)
	}
}
