package order

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SaleType is the transaction origin. Online web checkout and offline
// point-of-sale tickets follow different discount and tax rules, defined
// exactly once in ComputeTotals.
type SaleType string

const (
	SaleOnline  SaleType = "online"
	SaleOffline SaleType = "offline"
)

// ParseSaleType classifies a raw sale type value. A missing or unrecognized
// value maps to SaleOnline. This default is a backward-compatibility policy
// carried over from existing callers that never send the field, not a
// business rule.
func ParseSaleType(raw string) SaleType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(SaleOffline):
		return SaleOffline
	default:
		return SaleOnline
	}
}

// taxRate is the flat GST rate applied to online orders when the caller did
// not supply a tax amount.
var taxRate = decimal.NewFromFloat(0.05)

// TotalsInput carries the normalized financial inputs for one transaction.
// Optional caller-supplied values use pointers: nil means "not supplied,
// compute it", a value means "already settled with the customer, trust it".
type TotalsInput struct {
	Subtotal        decimal.Decimal
	DiscountAmount  decimal.Decimal
	CouponDiscount  decimal.Decimal
	GiftPrice       decimal.Decimal
	DeliveryCharges decimal.Decimal
	// FreeShipping zeroes the delivery charge (free_shipping coupons).
	FreeShipping bool
	// SuppliedTax, when non-nil, is trusted verbatim and never recomputed.
	SuppliedTax *decimal.Decimal
	// SuppliedTotal, when non-nil, is trusted over the computed total. The
	// computed figure is a fallback, not an override of a settled value.
	SuppliedTotal *decimal.Decimal
}

// Totals is the reconciled set of monetary fields for an order or ticket.
type Totals struct {
	Subtotal        decimal.Decimal
	DiscountAmount  decimal.Decimal
	CouponDiscount  decimal.Decimal
	GiftPrice       decimal.Decimal
	DeliveryCharges decimal.Decimal
	TaxAmount       decimal.Decimal
	TotalAmount     decimal.Decimal
}

// ComputeTotals derives the channel's totals from the input.
//
// Offline: the ticket subtotal already includes tax, so tax is reported as
// zero rather than broken out; the operator-entered discount applies
// directly; coupons never apply; total = subtotal - discount.
//
// Online: the subtotal is pre-tax; the coupon discount is authoritative and
// falls back to the plain discount field when absent; tax is 5% of
// (subtotal - coupon discount + gift price) unless the caller already
// supplied one; total = subtotal + delivery + gift + tax - coupon discount.
func (s SaleType) ComputeTotals(in TotalsInput) Totals {
	if s == SaleOffline {
		return computeOffline(in)
	}
	return computeOnline(in)
}

func computeOffline(in TotalsInput) Totals {
	t := Totals{
		Subtotal:        in.Subtotal,
		DiscountAmount:  in.DiscountAmount,
		CouponDiscount:  decimal.Zero,
		GiftPrice:       in.GiftPrice,
		DeliveryCharges: in.DeliveryCharges,
		TaxAmount:       decimal.Zero,
	}

	t.TotalAmount = floorAtZero(in.Subtotal.Sub(in.DiscountAmount))
	if in.SuppliedTotal != nil {
		t.TotalAmount = *in.SuppliedTotal
	}
	return t
}

func computeOnline(in TotalsInput) Totals {
	couponDiscount := in.CouponDiscount
	if couponDiscount.IsZero() {
		couponDiscount = in.DiscountAmount
	}

	delivery := in.DeliveryCharges
	if in.FreeShipping {
		delivery = decimal.Zero
	}

	var tax decimal.Decimal
	if in.SuppliedTax != nil {
		tax = *in.SuppliedTax
	} else {
		taxable := floorAtZero(in.Subtotal.Sub(couponDiscount).Add(in.GiftPrice))
		tax = taxable.Mul(taxRate).Round(2)
	}

	t := Totals{
		Subtotal:        in.Subtotal,
		DiscountAmount:  in.DiscountAmount,
		CouponDiscount:  couponDiscount,
		GiftPrice:       in.GiftPrice,
		DeliveryCharges: delivery,
		TaxAmount:       tax,
	}

	t.TotalAmount = floorAtZero(
		in.Subtotal.Add(delivery).Add(in.GiftPrice).Add(tax).Sub(couponDiscount))
	if in.SuppliedTotal != nil {
		t.TotalAmount = *in.SuppliedTotal
	}
	return t
}

func floorAtZero(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
