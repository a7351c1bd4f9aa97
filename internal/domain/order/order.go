package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state. Transitions are linear with no
// re-entry: pending -> processing -> shipped -> delivered, and any
// pre-delivery state may move to cancelled.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// CanTransitionTo reports whether moving from s to next is a legal lifecycle
// transition.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusCancelled
	case StatusProcessing:
		return next == StatusShipped || next == StatusCancelled
	case StatusShipped:
		return next == StatusDelivered || next == StatusCancelled
	default:
		// delivered and cancelled are terminal.
		return false
	}
}

// Line is a priced order line, snapshotted at order time. For online orders
// the name, price, and category come from the catalog; for offline tickets
// they are operator-entered.
type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
}

// Order is a persisted customer order with its reconciled financial fields.
type Order struct {
	ID              string
	UserID          string
	SaleType        SaleType
	Lines           []Line
	Subtotal        decimal.Decimal
	DiscountAmount  decimal.Decimal
	CouponDiscount  decimal.Decimal
	GiftPrice       decimal.Decimal
	DeliveryCharges decimal.Decimal
	TaxAmount       decimal.Decimal
	TotalAmount     decimal.Decimal
	CouponCode      string
	Status          Status
	InvoiceID       string
	InvoiceNumber   string
	CreatedAt       time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// AttachInvoice records the created invoice's id and number on the
	// order. Called only after the invoice row exists, so an order never
	// references a missing invoice.
	AttachInvoice(ctx context.Context, orderID, invoiceID, invoiceNumber string) error
}
