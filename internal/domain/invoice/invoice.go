package invoice

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks the money side of an invoice.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Status is the document lifecycle state of an invoice.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusIssued    Status = "issued"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// Item is a line on the invoice: a snapshot copy taken at assembly time,
// never a live reference to the catalog.
type Item struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Rate     decimal.Decimal `json:"rate"`
	Amount   decimal.Decimal `json:"amount"`
}

// Invoice is the frozen financial record of an order. The monetary fields
// are copied once at creation and never recomputed; only PaymentStatus,
// Status, and PaymentDate may change afterwards.
type Invoice struct {
	ID              string
	Number          string
	OrderID         string
	UserID          string
	Items           []Item
	Subtotal        decimal.Decimal
	DiscountAmount  decimal.Decimal
	CouponDiscount  decimal.Decimal
	GiftPrice       decimal.Decimal
	DeliveryCharges decimal.Decimal
	TaxAmount       decimal.Decimal
	TotalAmount     decimal.Decimal
	PaymentStatus   PaymentStatus
	Status          Status
	PaymentDate     *time.Time
	// QRPayload is an opaque payment deep link rendered by callers; set for
	// offline tickets when a payee handle is configured.
	QRPayload string
	CreatedAt time.Time
}

// Repository defines persistence operations for invoices.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
}
