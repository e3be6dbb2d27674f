package dto

import (
	"time"

	"pharmadesk/internal/core/id"
	"pharmadesk/internal/domain/inventory"
	"pharmadesk/internal/domain/stock"
)

// AdjustStockRequest changes the quantity of one item.
type AdjustStockRequest struct {
	Delta     int64  `json:"delta" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
	Reference string `json:"reference" binding:"max=50"`
	Note      string `json:"note"`
}

// ToMovement maps the request to a movement of the given item.
func (r AdjustStockRequest) ToMovement(kind inventory.Kind, itemID id.ID) stock.Movement {
	return stock.Movement{
		ItemKind:  kind,
		ItemID:    itemID,
		Delta:     r.Delta,
		Reason:    stock.Reason(r.Reason),
		Reference: r.Reference,
		Note:      r.Note,
	}
}

// MovementResponse is one applied movement.
type MovementResponse struct {
	ID                string    `json:"id"`
	ItemKind          string    `json:"itemKind"`
	ItemID            string    `json:"itemId"`
	Delta             int64     `json:"delta"`
	ResultingQuantity int64     `json:"resultingQuantity"`
	Reason            string    `json:"reason"`
	Reference         string    `json:"reference,omitempty"`
	Note              string    `json:"note,omitempty"`
	OperatorID        string    `json:"operatorId,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// FromMovement maps a movement for output.
func FromMovement(m stock.Movement) MovementResponse {
	return MovementResponse{
		ID:                m.ID.String(),
		ItemKind:          string(m.ItemKind),
		ItemID:            m.ItemID.String(),
		Delta:             m.Delta,
		ResultingQuantity: m.ResultingQuantity,
		Reason:            string(m.Reason),
		Reference:         m.Reference,
		Note:              m.Note,
		OperatorID:        m.OperatorID,
		CreatedAt:         m.CreatedAt,
	}
}
