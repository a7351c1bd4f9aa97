package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the eligible subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the eligible subtotal.
	DiscountFixed DiscountType = "fixed"
	// DiscountBuyXGetY grants free units per product group: buy X units, get Y free.
	DiscountBuyXGetY DiscountType = "buy_x_get_y"
	// DiscountFreeShipping waives the delivery charge. It never produces a
	// monetary discount amount; the order layer zeroes the delivery charge
	// instead, so the two paths cannot double-count.
	DiscountFreeShipping DiscountType = "free_shipping"
)

var (
	// ErrInvalidCoupon is returned when a coupon code is not found.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponNotUsable is returned when a coupon exists but is inactive,
	// outside its date window, or has exhausted its usage limit.
	ErrCouponNotUsable = errors.New("coupon is not usable")
	// ErrBelowMinPurchase is returned when the cart total does not reach the
	// coupon's minimum purchase amount. Distinct from a zero discount:
	// callers surface it as a hard rejection.
	ErrBelowMinPurchase = errors.New("cart total below coupon minimum purchase amount")
)

// Rule defines a coupon's discount behaviour and eligibility constraints.
type Rule struct {
	Code                 string
	DiscountType         DiscountType
	DiscountValue        decimal.Decimal
	MinPurchaseAmount    decimal.Decimal
	MaxDiscountAmount    decimal.Decimal
	BuyQuantity          int
	GetQuantity          int
	ApplicableProducts   []string
	ApplicableCategories []string
	StartDate            *time.Time
	EndDate              *time.Time
	UsageLimit           int
	UsageCount           int
	IsActive             bool
	Description          string
}

// UsableAt reports whether the coupon can be redeemed at the given instant.
// It fails closed on the active flag, then checks the optional date window
// and the usage cap. A UsageLimit of zero means unlimited. Pure; safe to
// call from preview, validate, and apply flows alike.
func (r *Rule) UsableAt(now time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.StartDate != nil && now.Before(*r.StartDate) {
		return false
	}
	if r.EndDate != nil && now.After(*r.EndDate) {
		return false
	}
	if r.UsageLimit > 0 && r.UsageCount >= r.UsageLimit {
		return false
	}
	return true
}

// Restricted reports whether the rule carries any product or category
// restriction.
func (r *Rule) Restricted() bool {
	return len(r.ApplicableProducts) > 0 || len(r.ApplicableCategories) > 0
}

// NormalizeCode upper-cases and trims a coupon code so lookups and
// comparisons are case-insensitive everywhere.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Discount holds the computed discount and what it applies to.
type Discount struct {
	// Amount is the monetary discount, floored to whole currency units,
	// never negative. Zero for free_shipping.
	Amount decimal.Decimal
	// FreeShipping is set for free_shipping coupons; the order layer zeroes
	// the delivery charge when it is true.
	FreeShipping bool
	Description  string
}

// Line is a cart or ticket line for discount calculation purposes.
type Line struct {
	ProductID string
	Category  string
	Price     decimal.Decimal
	Quantity  int
}

// Repository provides lookup and usage bookkeeping for coupon rules.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	// IncrementUsage bumps usage_count by one iff the usage limit has not
	// been reached. Implementations must perform the check-and-increment
	// atomically. Returns ErrCouponNotUsable when the cap was already hit.
	IncrementUsage(ctx context.Context, code string) error
}
