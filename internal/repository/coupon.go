package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/storekit/shopbill/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT code, discount_type, discount_value, min_purchase_amount,
		max_discount_amount, buy_quantity, get_quantity, applicable_products,
		applicable_categories, start_date, end_date, usage_limit, usage_count,
		is_active, description
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	// Check-and-increment in one statement so two concurrent orders cannot
	// both pass the limit check and push usage_count past the cap.
	incrementCouponUsageSQL = `UPDATE coupons SET usage_count = usage_count + 1
		WHERE UPPER(code) = UPPER($1)
		AND (usage_limit = 0 OR usage_count < usage_limit)`

	insertCouponSQL = `INSERT INTO coupons (code, discount_type, discount_value,
		min_purchase_amount, max_discount_amount, buy_quantity, get_quantity,
		applicable_products, applicable_categories, start_date, end_date,
		usage_limit, is_active, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (code) DO NOTHING`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive).
// Returns coupon.ErrInvalidCoupon when no matching coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &rule, nil
}

// IncrementUsage atomically bumps usage_count, refusing once the usage limit
// is reached. The limit check and the increment are a single UPDATE, so a
// concurrent order cannot sneak past the cap.
func (r *CouponRepository) IncrementUsage(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, incrementCouponUsageSQL, code)
	if err != nil {
		return fmt.Errorf("incrementing usage for coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrCouponNotUsable
	}
	return nil
}

// Insert creates a coupon rule, ignoring codes that already exist. Used by
// the seed and ingest tools.
func (r *CouponRepository) Insert(ctx context.Context, rule *coupon.Rule) error {
	_, err := r.pool.Exec(ctx, insertCouponSQL,
		rule.Code, string(rule.DiscountType), rule.DiscountValue,
		rule.MinPurchaseAmount, rule.MaxDiscountAmount,
		rule.BuyQuantity, rule.GetQuantity,
		rule.ApplicableProducts, rule.ApplicableCategories,
		rule.StartDate, rule.EndDate,
		rule.UsageLimit, rule.IsActive, rule.Description,
	)
	if err != nil {
		return fmt.Errorf("inserting coupon %q: %w", rule.Code, err)
	}
	return nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule         coupon.Rule
		discountType string
		value        decimal.Decimal
		minPurchase  decimal.Decimal
		maxDiscount  decimal.Decimal
		buyQty       int32
		getQty       int32
		startDate    *time.Time
		endDate      *time.Time
		usageLimit   int32
		usageCount   int32
	)
	err := row.Scan(
		&rule.Code, &discountType, &value, &minPurchase, &maxDiscount,
		&buyQty, &getQty, &rule.ApplicableProducts, &rule.ApplicableCategories,
		&startDate, &endDate, &usageLimit, &usageCount, &rule.IsActive,
		&rule.Description,
	)
	rule.DiscountType = coupon.DiscountType(discountType)
	rule.DiscountValue = value
	rule.MinPurchaseAmount = minPurchase
	rule.MaxDiscountAmount = maxDiscount
	rule.BuyQuantity = int(buyQty)
	rule.GetQuantity = int(getQty)
	rule.StartDate = startDate
	rule.EndDate = endDate
	rule.UsageLimit = int(usageLimit)
	rule.UsageCount = int(usageCount)
	return rule, err
}
