package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/storekit/shopbill/internal/domain/coupon"
)

// applyCouponRequest is the decoded preview/apply payload.
type applyCouponRequest struct {
	Code      string
	Lines     []coupon.Line
	CartTotal *decimal.Decimal
}

// ApplyCoupon handles POST /api/coupons/apply. It quotes a discount for the
// given code and cart without consuming a use. Validation failures are
// reported inline with valid=false and a message, not as HTTP errors, so the
// storefront can render feedback next to the coupon field.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	d, ok := readBody(w, r)
	if !ok {
		return
	}

	req, err := decodeApplyCouponRequest(d)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "coupon_code is required")
		return
	}

	quote, err := h.quoter.Quote(r.Context(), req.Code, req.Lines)
	if err != nil {
		switch {
		case errors.Is(err, coupon.ErrInvalidCoupon):
			writeApplyResult(w, applyResult{Message: "coupon not found"})
		case errors.Is(err, coupon.ErrCouponNotUsable):
			writeApplyResult(w, applyResult{Message: "coupon is not active or has been fully redeemed"})
		case errors.Is(err, coupon.ErrBelowMinPurchase):
			writeApplyResult(w, applyResult{Message: "cart total is below the coupon minimum purchase amount"})
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	cartTotal := coupon.Subtotal(req.Lines)
	if req.CartTotal != nil {
		cartTotal = *req.CartTotal
	}

	writeApplyResult(w, applyResult{
		Valid:          true,
		DiscountAmount: quote.Amount,
		FinalAmount:    coupon.FinalAmount(cartTotal, quote),
		FreeShipping:   quote.FreeShipping,
		Message:        quote.Description,
	})
}

type applyResult struct {
	Valid          bool
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
	FreeShipping   bool
	Message        string
}

func writeApplyResult(w http.ResponseWriter, res applyResult) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("valid", func(e *jx.Encoder) { e.Bool(res.Valid) })
		e.Field("discount_amount", func(e *jx.Encoder) { encodeDecimal(e, res.DiscountAmount) })
		e.Field("final_amount", func(e *jx.Encoder) { encodeDecimal(e, res.FinalAmount) })
		if res.FreeShipping {
			e.Field("free_shipping", func(e *jx.Encoder) { e.Bool(true) })
		}
		e.Field("message", func(e *jx.Encoder) { e.Str(res.Message) })
	})
	writeJSON(w, http.StatusOK, &e)
}

func decodeApplyCouponRequest(d *jx.Decoder) (applyCouponRequest, error) {
	var req applyCouponRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "coupon_code", "code":
			v, err := d.Str()
			if err != nil {
				return err
			}
			req.Code = v
			return nil
		case "items", "lines":
			return d.Arr(func(d *jx.Decoder) error {
				line, err := decodeCouponLine(d)
				if err != nil {
					return err
				}
				req.Lines = append(req.Lines, line)
				return nil
			})
		case "cart_total":
			v, err := decodeDecimal(d)
			if err != nil {
				return err
			}
			req.CartTotal = &v
			return nil
		default:
			return d.Skip()
		}
	})
	return req, err
}

func decodeCouponLine(d *jx.Decoder) (coupon.Line, error) {
	var line coupon.Line
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id", "productId":
			line.ProductID, err = d.Str()
		case "category":
			line.Category, err = d.Str()
		case "price":
			line.Price, err = decodeDecimal(d)
		case "quantity":
			line.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return line, err
}

// decodeDecimal accepts a JSON number or a numeric string. Legacy clients
// send monetary fields both ways.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(strings.Trim(n.String(), `"`))
}

// encodeDecimal writes a monetary value as a JSON number.
func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.RawStr(v.String())
}
