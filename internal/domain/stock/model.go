// Package stock provides the stock movement ledger of inventory items.
package stock

import (
	"time"

	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/inventory"
)

// Reason classifies a movement.
type Reason string

const (
	ReasonReceipt    Reason = "receipt"    // purchase order received
	ReasonDispense   Reason = "dispense"   // prescription dispensed
	ReasonAdjustment Reason = "adjustment" // manual correction
	ReasonWriteOff   Reason = "write_off"  // expired, damaged or lost
	ReasonUsage      Reason = "usage"      // consumed by the lab or clinic
)

// Valid reports whether r is a known reason.
func (r Reason) Valid() bool {
	switch r {
	case ReasonReceipt, ReasonDispense, ReasonAdjustment, ReasonWriteOff, ReasonUsage:
		return true
	}
	return false
}

// Movement is one applied change of an item's quantity.
type Movement struct {
	ID       id.ID          `db:"id" json:"id"`
	ItemKind inventory.Kind `db:"item_kind" json:"itemKind"`
	ItemID   id.ID          `db:"item_id" json:"itemId"`

	// Delta is positive for incoming stock, negative for outgoing
	Delta int64 `db:"delta" json:"delta"`

	// ResultingQuantity is the item quantity right after this movement
	ResultingQuantity int64 `db:"resulting_quantity" json:"resultingQuantity"`

	Reason Reason `db:"reason" json:"reason"`

	// Reference is the business ID of the causing document (ORD-..., RX-...)
	Reference string `db:"reference" json:"reference,omitempty"`

	Note       string    `db:"note" json:"note,omitempty"`
	OperatorID string    `db:"operator_id" json:"operatorId,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Validate checks the request part of a movement.
func (m *Movement) Validate() error {
	if !m.ItemKind.Valid() {
		return apperror.NewValidation("invalid item kind").
			WithDetail("field", "itemKind").
			WithDetail("value", string(m.ItemKind))
	}
	if id.IsNil(m.ItemID) {
		return apperror.NewValidation("item id is required").WithDetail("field", "itemId")
	}
	if m.Delta == 0 {
		return apperror.NewValidation("delta must not be zero").WithDetail("field", "delta")
	}
	if !m.Reason.Valid() {
		return apperror.NewValidation("invalid movement reason").
			WithDetail("field", "reason").
			WithDetail("value", string(m.Reason))
	}
	return nil
}

// Filter narrows movement lists.
type Filter struct {
	domain.ListFilter

	ItemKind  inventory.Kind
	ItemID    *id.ID
	Reference string
	Reason    Reason
	From      *time.Time
	To        *time.Time
}
