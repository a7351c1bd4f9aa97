package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MeetsMinPurchase reports whether the full cart total reaches the rule's
// minimum purchase threshold. Callers must gate Compute on this and reject
// failing carts outright; a below-minimum cart is a distinct failure mode,
// not a silently-zero discount.
func MeetsMinPurchase(cartTotal decimal.Decimal, rule *Rule) bool {
	if rule.MinPurchaseAmount.IsZero() {
		return true
	}
	return cartTotal.GreaterThanOrEqual(rule.MinPurchaseAmount)
}

// Compute calculates the discount for the rule against the cart. The lines
// are first narrowed by the rule's restrictions; percentage and fixed rules
// then apply to the eligible subtotal when the rule is restricted, or to the
// full cart subtotal when it is not, so an unrestricted coupon discounts
// everything and a restricted one only its matches. Zero eligible lines
// yield a zero discount, not an error.
//
// The returned amount is floored to whole currency units and never negative.
func Compute(lines []Line, rule *Rule) (Discount, error) {
	eligible := EligibleLines(lines, rule)

	base := Subtotal(lines)
	if rule.Restricted() {
		base = Subtotal(eligible)
	}

	switch rule.DiscountType {
	case DiscountPercentage:
		return applyPercentage(rule, base), nil
	case DiscountFixed:
		return applyFixed(rule, base), nil
	case DiscountBuyXGetY:
		return applyBuyXGetY(rule, eligible), nil
	case DiscountFreeShipping:
		return Discount{Amount: decimal.Zero, FreeShipping: true, Description: rule.Description}, nil
	default:
		return Discount{}, errors.Errorf("unsupported discount type: %q", rule.DiscountType)
	}
}

func applyPercentage(rule *Rule, base decimal.Decimal) Discount {
	amount := base.Mul(rule.DiscountValue).Div(hundred)
	if rule.MaxDiscountAmount.IsPositive() && amount.GreaterThan(rule.MaxDiscountAmount) {
		amount = rule.MaxDiscountAmount
	}
	return Discount{Amount: settle(amount), Description: rule.Description}
}

func applyFixed(rule *Rule, base decimal.Decimal) Discount {
	amount := decimal.Min(rule.DiscountValue, base)
	return Discount{Amount: settle(amount), Description: rule.Description}
}

// applyBuyXGetY grants free units per product group. Lines are grouped by
// product ID: "buy 2 get 1" on product A is never satisfied by mixing A and
// B. For a group with total quantity Q,
// free units = floor(Q / (buy+get)) * get, each priced at that product's
// unit price.
func applyBuyXGetY(rule *Rule, eligible []Line) Discount {
	bundle := rule.BuyQuantity + rule.GetQuantity
	if bundle <= 0 || rule.GetQuantity <= 0 {
		return Discount{Amount: decimal.Zero, Description: rule.Description}
	}

	type group struct {
		quantity  int
		unitPrice decimal.Decimal
	}
	groups := make(map[string]*group)
	for _, line := range eligible {
		g, ok := groups[line.ProductID]
		if !ok {
			groups[line.ProductID] = &group{quantity: line.Quantity, unitPrice: line.Price}
			continue
		}
		g.quantity += line.Quantity
	}

	amount := decimal.Zero
	for _, g := range groups {
		freeUnits := (g.quantity / bundle) * rule.GetQuantity
		if freeUnits <= 0 {
			continue
		}
		amount = amount.Add(g.unitPrice.Mul(decimal.NewFromInt(int64(freeUnits))))
	}
	return Discount{Amount: settle(amount), Description: rule.Description}
}

// Subtotal returns the sum of price * quantity across the given lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return sum
}

// settle floors a discount to whole currency units and clamps negatives to zero.
func settle(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Floor()
}
