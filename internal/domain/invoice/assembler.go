package invoice

import (
	"context"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source is the order-side input to invoice assembly: the identifiers,
// snapshot lines, and reconciled monetary fields of an already-persisted
// order or ticket.
type Source struct {
	OrderID string
	UserID  string
	// Offline marks point-of-sale tickets; they get a payment QR payload
	// when one is configured.
	Offline bool
	// Paid marks orders whose payment was already captured upstream. Online
	// orders are always assembled paid; offline tickets only when the
	// operator marked them so.
	Paid            bool
	Items           []Item
	Subtotal        decimal.Decimal
	DiscountAmount  decimal.Decimal
	CouponDiscount  decimal.Decimal
	GiftPrice       decimal.Decimal
	DeliveryCharges decimal.Decimal
	TaxAmount       decimal.Decimal
	TotalAmount     decimal.Decimal
}

// QRConfig configures the UPI payment deep link generated for offline
// tickets. An empty PayeeVPA disables QR generation.
type QRConfig struct {
	PayeeVPA     string
	MerchantName string
}

// Assembler freezes an order into an invoice: it snapshots the line items,
// copies the reconciled monetary fields, requests a number from the
// sequencer, and persists exactly one invoice row.
type Assembler struct {
	invoices Repository
	seq      *Sequencer
	qr       QRConfig
	now      func() time.Time
	newID    func() string
}

// NewAssembler creates an Assembler with the required dependencies.
func NewAssembler(invoices Repository, seq *Sequencer, qr QRConfig) *Assembler {
	return &Assembler{
		invoices: invoices,
		seq:      seq,
		qr:       qr,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Assemble creates the invoice for an already-persisted order. The caller
// links the returned invoice back onto the order; if creation fails the
// order stands untouched and the error is recoverable.
//
// A sequencer fallback (timestamp-derived number) is not an error here: the
// invoice is still created, per the rule that numbering trouble must never
// block invoicing.
func (a *Assembler) Assemble(ctx context.Context, src Source) (*Invoice, error) {
	number, _ := a.seq.Next(ctx)

	inv := &Invoice{
		ID:              a.newID(),
		Number:          number,
		OrderID:         src.OrderID,
		UserID:          src.UserID,
		Items:           append([]Item(nil), src.Items...),
		Subtotal:        src.Subtotal,
		DiscountAmount:  src.DiscountAmount,
		CouponDiscount:  src.CouponDiscount,
		GiftPrice:       src.GiftPrice,
		DeliveryCharges: src.DeliveryCharges,
		TaxAmount:       src.TaxAmount,
		TotalAmount:     src.TotalAmount,
		PaymentStatus:   PaymentPending,
		Status:          StatusIssued,
		CreatedAt:       a.now(),
	}

	if src.Paid {
		inv.PaymentStatus = PaymentPaid
		inv.Status = StatusPaid
		paidAt := inv.CreatedAt
		inv.PaymentDate = &paidAt
	}

	if src.Offline && a.qr.PayeeVPA != "" {
		inv.QRPayload = upiPayload(a.qr, number, src.TotalAmount)
	}

	if err := a.invoices.Create(ctx, inv); err != nil {
		return nil, errors.Wrap(err, "create invoice")
	}
	return inv, nil
}

// upiPayload renders a upi://pay deep link for the given amount. Treated as
// opaque data; rendering it as an actual QR image is the caller's concern.
func upiPayload(cfg QRConfig, number string, amount decimal.Decimal) string {
	v := url.Values{}
	v.Set("pa", cfg.PayeeVPA)
	v.Set("pn", cfg.MerchantName)
	v.Set("am", amount.StringFixed(2))
	v.Set("cu", "INR")
	v.Set("tn", number)
	return "upi://pay?" + v.Encode()
}
