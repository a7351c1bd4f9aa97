package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCouponRepo struct {
	rule           *Rule
	err            error
	lookedUp       string
	incrementCalls int
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*Rule, error) {
	m.lookedUp = code
	return m.rule, m.err
}

func (m *mockCouponRepo) IncrementUsage(_ context.Context, _ string) error {
	m.incrementCalls++
	return nil
}

func TestRepoQuoter_Quote(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	pastTime := fixedNow.Add(-24 * time.Hour)

	lines := []Line{
		{ProductID: "p1", Price: d("500"), Quantity: 2},
	}

	tests := []struct {
		name       string
		repo       *mockCouponRepo
		code       string
		lines      []Line
		wantAmount decimal.Decimal
		wantErr    error
	}{
		{
			name: "valid percentage coupon with cap",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:              "SAVE10",
					DiscountType:      DiscountPercentage,
					DiscountValue:     d("10"),
					MaxDiscountAmount: d("50"),
					MinPurchaseAmount: d("200"),
					IsActive:          true,
				},
			},
			code:       "SAVE10",
			lines:      lines,
			wantAmount: d("50"),
		},
		{
			name:    "unknown code",
			repo:    &mockCouponRepo{err: ErrInvalidCoupon},
			code:    "BOGUS",
			lines:   lines,
			wantErr: ErrInvalidCoupon,
		},
		{
			name: "inactive coupon is not usable",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:          "OFF",
					DiscountType:  DiscountFixed,
					DiscountValue: d("50"),
					IsActive:      false,
				},
			},
			code:    "OFF",
			lines:   lines,
			wantErr: ErrCouponNotUsable,
		},
		{
			name: "expired coupon is not usable",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:          "OLD",
					DiscountType:  DiscountFixed,
					DiscountValue: d("50"),
					EndDate:       &pastTime,
					IsActive:      true,
				},
			},
			code:    "OLD",
			lines:   lines,
			wantErr: ErrCouponNotUsable,
		},
		{
			name: "usage cap reached is not usable",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:          "CAPPED",
					DiscountType:  DiscountFixed,
					DiscountValue: d("50"),
					UsageLimit:    10,
					UsageCount:    10,
					IsActive:      true,
				},
			},
			code:    "CAPPED",
			lines:   lines,
			wantErr: ErrCouponNotUsable,
		},
		{
			name: "below minimum purchase is a hard rejection",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:              "MIN5K",
					DiscountType:      DiscountFixed,
					DiscountValue:     d("50"),
					MinPurchaseAmount: d("5000"),
					IsActive:          true,
				},
			},
			code:    "MIN5K",
			lines:   lines,
			wantErr: ErrBelowMinPurchase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewRepoQuoter(tt.repo)
			q.now = func() time.Time { return fixedNow }

			got, err := q.Quote(context.Background(), tt.code, tt.lines)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.True(t, tt.wantAmount.Equal(got.Amount),
					"expected amount %s, got %s", tt.wantAmount, got.Amount)
			}

			// Quoting must never touch the usage counter.
			assert.Zero(t, tt.repo.incrementCalls)
		})
	}
}

func TestRepoQuoter_QuoteNormalizesCode(t *testing.T) {
	repo := &mockCouponRepo{
		rule: &Rule{
			Code:          "SAVE10",
			DiscountType:  DiscountFixed,
			DiscountValue: d("10"),
			IsActive:      true,
		},
	}
	q := NewRepoQuoter(repo)

	_, err := q.Quote(context.Background(), "  save10 ", []Line{
		{ProductID: "p1", Price: d("100"), Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", repo.lookedUp)
}

func TestFinalAmount(t *testing.T) {
	got := FinalAmount(d("1000"), &Discount{Amount: d("50")})
	assert.True(t, d("950").Equal(got))

	// Never below zero even if the discount exceeds the total.
	got = FinalAmount(d("30"), &Discount{Amount: d("50")})
	assert.True(t, got.IsZero())
}
