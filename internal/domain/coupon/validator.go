package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Quoter produces a discount quote for a coupon code against a set of cart
// lines without mutating any coupon state. The usage counter is bumped
// separately, by the successful-order path only.
type Quoter interface {
	Quote(ctx context.Context, code string, lines []Line) (*Discount, error)
}

// RepoQuoter implements Quoter by looking up coupon rules from a Repository
// and applying them via Compute.
type RepoQuoter struct {
	repo Repository
	now  func() time.Time
}

// NewRepoQuoter creates a RepoQuoter backed by the given Repository.
func NewRepoQuoter(repo Repository) *RepoQuoter {
	return &RepoQuoter{repo: repo, now: time.Now}
}

// Quote looks up the rule for code, checks usability and the minimum
// purchase gate against the full cart total, and computes the discount.
// It has no side effects and is idempotent, so it serves preview, validate,
// and apply flows alike.
//
// Failure modes are distinguishable: ErrInvalidCoupon (unknown code),
// ErrCouponNotUsable (inactive, outside window, or cap reached), and
// ErrBelowMinPurchase (cart too small).
func (q *RepoQuoter) Quote(ctx context.Context, code string, lines []Line) (*Discount, error) {
	rule, err := q.repo.FindByCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !rule.UsableAt(q.now()) {
		return nil, ErrCouponNotUsable
	}

	if !MeetsMinPurchase(Subtotal(lines), rule) {
		return nil, ErrBelowMinPurchase
	}

	d, err := Compute(lines, rule)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FinalAmount returns the cart total after applying the discount, floored at
// zero. Used by the preview boundary to echo the post-discount figure.
func FinalAmount(cartTotal decimal.Decimal, d *Discount) decimal.Decimal {
	final := cartTotal.Sub(d.Amount)
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}
