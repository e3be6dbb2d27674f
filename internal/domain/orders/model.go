// Package orders provides purchase orders for restocking inventory.
package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/entity"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/core/types"
	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/inventory"
)

const (
	StatusPending   entity.Status = "pending"
	StatusApproved  entity.Status = "approved"
	StatusReceived  entity.Status = "received"
	StatusCancelled entity.Status = "cancelled"
)

// Line is one ordered item.
type Line struct {
	LineNo    int            `db:"line_no" json:"lineNo"`
	ItemKind  inventory.Kind `db:"item_kind" json:"itemKind"`
	ItemID    id.ID          `db:"item_id" json:"itemId"`
	Quantity  int64          `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`

	// Amount is Quantity × UnitPrice, computed by Recalculate
	Amount types.Money `db:"amount" json:"amount"`
}

// PurchaseOrder is a request to a supplier.
type PurchaseOrder struct {
	entity.Document

	// OrderNumber is the business ID (ORD-202501-001)
	OrderNumber string `db:"order_number" json:"orderNumber"`

	Supplier     string     `db:"supplier" json:"supplier"`
	OrderDate    time.Time  `db:"order_date" json:"orderDate"`
	ExpectedDate *time.Time `db:"expected_date" json:"expectedDate,omitempty"`
	ReceivedAt   *time.Time `db:"received_at" json:"receivedAt,omitempty"`

	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`

	Lines []Line `db:"-" json:"lines"`
}

// NewPurchaseOrder creates a pending order.
func NewPurchaseOrder(supplier string, orderDate time.Time) *PurchaseOrder {
	return &PurchaseOrder{
		Document:  entity.NewDocument(StatusPending),
		Supplier:  supplier,
		OrderDate: orderDate,
	}
}

func (o *PurchaseOrder) BusinessID() string      { return o.OrderNumber }
func (o *PurchaseOrder) SetBusinessID(v string)  { o.OrderNumber = v }
func (o *PurchaseOrder) BusinessIDField() string { return "order_number" }

// AddLine appends a line and recalculates totals.
func (o *PurchaseOrder) AddLine(kind inventory.Kind, itemID id.ID, qty int64, unitPrice types.Money) {
	o.Lines = append(o.Lines, Line{
		ItemKind:  kind,
		ItemID:    itemID,
		Quantity:  qty,
		UnitPrice: unitPrice,
	})
	o.Recalculate()
}

// Recalculate numbers the lines and recomputes amounts and the total.
func (o *PurchaseOrder) Recalculate() {
	amounts := make([]types.Money, len(o.Lines))
	for i := range o.Lines {
		o.Lines[i].LineNo = i + 1
		o.Lines[i].Amount = types.LineTotal(o.Lines[i].Quantity, o.Lines[i].UnitPrice)
		amounts[i] = o.Lines[i].Amount
	}
	o.TotalAmount = types.Sum(amounts...)
}

// Validate implements entity.Validatable interface.
func (o *PurchaseOrder) Validate(ctx context.Context) error {
	if strings.TrimSpace(o.Supplier) == "" {
		return apperror.NewValidation("supplier is required").WithDetail("field", "supplier")
	}
	if o.OrderDate.IsZero() {
		return apperror.NewValidation("order date is required").WithDetail("field", "orderDate")
	}
	if o.ExpectedDate != nil && o.ExpectedDate.Before(o.OrderDate) {
		return apperror.NewValidation("expected date is before order date").WithDetail("field", "expectedDate")
	}
	if len(o.Lines) == 0 {
		return apperror.NewValidation("order must have at least one line").WithDetail("field", "lines")
	}
	for i, l := range o.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if !l.ItemKind.Valid() {
			return apperror.NewValidation("invalid item kind").
				WithDetail("field", field+".itemKind").
				WithDetail("value", string(l.ItemKind))
		}
		if id.IsNil(l.ItemID) {
			return apperror.NewValidation("item id is required").WithDetail("field", field+".itemId")
		}
		if l.Quantity <= 0 {
			return apperror.NewValidation("quantity must be positive").WithDetail("field", field+".quantity")
		}
		if l.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").WithDetail("field", field+".unitPrice")
		}
	}
	return nil
}

// Approve moves a pending order to approved.
func (o *PurchaseOrder) Approve() error {
	return o.Transition(StatusApproved, StatusPending)
}

// MarkReceived moves an approved order to received.
func (o *PurchaseOrder) MarkReceived(at time.Time) error {
	if err := o.Transition(StatusReceived, StatusApproved); err != nil {
		return err
	}
	o.ReceivedAt = &at
	return nil
}

// Cancel cancels an order that has not been received.
func (o *PurchaseOrder) Cancel() error {
	return o.Transition(StatusCancelled, StatusPending, StatusApproved)
}

// Filter narrows order lists.
type Filter struct {
	domain.ListFilter

	Status   entity.Status
	Supplier string
	DateFrom *time.Time
	DateTo   *time.Time
}
