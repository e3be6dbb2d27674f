package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/domain/inventory"
	"pharmadesk/internal/domain/orders"
)

// OrderLineRequest is one ordered item.
type OrderLineRequest struct {
	ItemKind  string          `json:"itemKind" binding:"required"`
	ItemID    string          `json:"itemId" binding:"required"`
	Quantity  int64           `json:"quantity" binding:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// CreateOrderRequest creates a pending purchase order.
type CreateOrderRequest struct {
	OrderNumber  string             `json:"orderNumber"`
	Supplier     string             `json:"supplier" binding:"required,max=200"`
	OrderDate    *Date              `json:"orderDate"`
	ExpectedDate *Date              `json:"expectedDate"`
	Comment      string             `json:"comment"`
	Lines        []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

func setOrderLines(o *orders.PurchaseOrder, lines []OrderLineRequest) error {
	o.Lines = o.Lines[:0]
	for i, l := range lines {
		itemID, err := id.Parse(l.ItemID)
		if err != nil {
			return apperror.NewValidation("invalid item id").
				WithDetail("field", fmt.Sprintf("lines[%d].itemId", i)).
				WithDetail("value", l.ItemID)
		}
		o.AddLine(inventory.Kind(l.ItemKind), itemID, l.Quantity, l.UnitPrice)
	}
	o.Recalculate()
	return nil
}

// ToEntity maps the request to a new order.
func (r CreateOrderRequest) ToEntity(today time.Time) (*orders.PurchaseOrder, error) {
	orderDate := today
	if t := r.OrderDate.TimePtr(); t != nil {
		orderDate = *t
	}
	o := orders.NewPurchaseOrder(r.Supplier, orderDate)
	o.OrderNumber = r.OrderNumber
	o.ExpectedDate = r.ExpectedDate.TimePtr()
	o.Comment = r.Comment
	if err := setOrderLines(o, r.Lines); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateOrderRequest updates a pending order. Lines replace the stored
// lines when present.
type UpdateOrderRequest struct {
	OrderNumber  *string            `json:"orderNumber"`
	Supplier     *string            `json:"supplier"`
	OrderDate    *Date              `json:"orderDate"`
	ExpectedDate *Date              `json:"expectedDate"`
	Comment      *string            `json:"comment"`
	Lines        []OrderLineRequest `json:"lines" binding:"omitempty,dive"`
	Version      int                `json:"version" binding:"required,min=1"`
}

// ApplyTo applies the changes to o.
func (r UpdateOrderRequest) ApplyTo(o *orders.PurchaseOrder) (*orders.PurchaseOrder, error) {
	if r.OrderNumber != nil {
		o.OrderNumber = *r.OrderNumber
	}
	if r.Supplier != nil {
		o.Supplier = *r.Supplier
	}
	if t := r.OrderDate.TimePtr(); t != nil {
		o.OrderDate = *t
	}
	if r.ExpectedDate != nil {
		o.ExpectedDate = r.ExpectedDate.TimePtr()
	}
	if r.Comment != nil {
		o.Comment = *r.Comment
	}
	if r.Lines != nil {
		if err := setOrderLines(o, r.Lines); err != nil {
			return nil, err
		}
	}
	o.Version = r.Version
	return o, nil
}

// OrderLineResponse is one ordered item.
type OrderLineResponse struct {
	LineNo    int             `json:"lineNo"`
	ItemKind  string          `json:"itemKind"`
	ItemID    string          `json:"itemId"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Amount    decimal.Decimal `json:"amount"`
}

// OrderResponse is a purchase order.
type OrderResponse struct {
	DocumentResponse
	OrderNumber  string              `json:"orderNumber"`
	Supplier     string              `json:"supplier"`
	OrderDate    Date                `json:"orderDate"`
	ExpectedDate *Date               `json:"expectedDate,omitempty"`
	ReceivedAt   *time.Time          `json:"receivedAt,omitempty"`
	TotalAmount  decimal.Decimal     `json:"totalAmount"`
	Lines        []OrderLineResponse `json:"lines"`
}

// FromOrder maps an order for output. List results carry no lines.
func FromOrder(o *orders.PurchaseOrder) OrderResponse {
	lines := make([]OrderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = OrderLineResponse{
			LineNo:    l.LineNo,
			ItemKind:  string(l.ItemKind),
			ItemID:    l.ItemID.String(),
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Amount:    l.Amount,
		}
	}
	return OrderResponse{
		DocumentResponse: FromDocument(o.Document),
		OrderNumber:      o.OrderNumber,
		Supplier:         o.Supplier,
		OrderDate:        Date{Time: o.OrderDate},
		ExpectedDate:     DatePtr(o.ExpectedDate),
		ReceivedAt:       o.ReceivedAt,
		TotalAmount:      o.TotalAmount,
		Lines:            lines,
	}
}
