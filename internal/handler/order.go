package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/storekit/shopbill/internal/domain/coupon"
	"github.com/storekit/shopbill/internal/domain/order"
)

// PlaceOrder handles POST /api/orders for both online checkouts and offline
// point-of-sale tickets.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	d, ok := readBody(w, r)
	if !ok {
		return
	}

	req, err := decodeOrderRequest(d)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.orderService.PlaceOrder(r.Context(), req)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	writeOrderResult(w, result)
}

// decodeOrderRequest decodes the order payload, folding historical field
// aliases onto the canonical request. Callers in the wild still send
// "discount" for "discount_amount", "delivery_charge" for "delivery_charges",
// and camelCase variants of the coupon fields; all of them land on one
// canonical name here so the domain layer never sees the aliases.
func decodeOrderRequest(d *jx.Decoder) (order.PlaceOrderRequest, error) {
	var req order.PlaceOrderRequest
	saleType := ""

	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "user_id", "userId":
			req.UserID, err = d.Str()
		case "sale_type", "saleType":
			saleType, err = d.Str()
		case "items", "lines":
			err = d.Arr(func(d *jx.Decoder) error {
				line, err := decodeRequestLine(d)
				if err != nil {
					return err
				}
				req.Lines = append(req.Lines, line)
				return nil
			})
		case "coupon_code", "couponCode":
			req.CouponCode, err = d.Str()
		case "discount", "discount_amount":
			req.DiscountAmount, err = decodeDecimal(d)
		case "coupon_discount", "couponDiscount":
			req.CouponDiscount, err = decodeDecimal(d)
		case "gift_price", "giftPrice":
			req.GiftPrice, err = decodeDecimal(d)
		case "delivery_charge", "delivery_charges", "deliveryCharges":
			req.DeliveryCharges, err = decodeDecimal(d)
		case "tax", "tax_amount":
			var v decimal.Decimal
			v, err = decodeDecimal(d)
			req.Tax = &v
		case "total", "total_amount":
			var v decimal.Decimal
			v, err = decodeDecimal(d)
			req.Total = &v
		case "paid":
			req.Paid, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	req.SaleType = order.ParseSaleType(saleType)
	return req, err
}

func decodeRequestLine(d *jx.Decoder) (order.RequestLine, error) {
	var line order.RequestLine
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id", "productId":
			line.ProductID, err = d.Str()
		case "quantity":
			line.Quantity, err = d.Int()
		case "name":
			line.Name, err = d.Str()
		case "category":
			line.Category, err = d.Str()
		case "price":
			line.Price, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return line, err
}

func writeOrderResult(w http.ResponseWriter, result *order.PlaceOrderResult) {
	o := result.Order
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("user_id", func(e *jx.Encoder) { e.Str(o.UserID) })
		e.Field("sale_type", func(e *jx.Encoder) { e.Str(string(o.SaleType)) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, line := range o.Lines {
					encodeOrderLine(e, line)
				}
			})
		})
		e.Field("subtotal", func(e *jx.Encoder) { encodeDecimal(e, o.Subtotal) })
		e.Field("discount_amount", func(e *jx.Encoder) { encodeDecimal(e, o.DiscountAmount) })
		e.Field("coupon_discount", func(e *jx.Encoder) { encodeDecimal(e, o.CouponDiscount) })
		e.Field("gift_price", func(e *jx.Encoder) { encodeDecimal(e, o.GiftPrice) })
		e.Field("delivery_charges", func(e *jx.Encoder) { encodeDecimal(e, o.DeliveryCharges) })
		e.Field("tax_amount", func(e *jx.Encoder) { encodeDecimal(e, o.TaxAmount) })
		e.Field("total_amount", func(e *jx.Encoder) { encodeDecimal(e, o.TotalAmount) })
		if o.CouponCode != "" {
			e.Field("coupon_code", func(e *jx.Encoder) { e.Str(o.CouponCode) })
		}
		if result.Invoice != nil {
			e.Field("invoice_number", func(e *jx.Encoder) { e.Str(result.Invoice.Number) })
			if result.Invoice.QRPayload != "" {
				e.Field("payment_qr", func(e *jx.Encoder) { e.Str(result.Invoice.QRPayload) })
			}
		}
		if result.InvoicePending {
			e.Field("invoice_pending", func(e *jx.Encoder) { e.Bool(true) })
		}
	})
	writeJSON(w, http.StatusCreated, &e)
}

func encodeOrderLine(e *jx.Encoder, line order.Line) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("product_id", func(e *jx.Encoder) { e.Str(line.ProductID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(line.Name) })
		e.Field("category", func(e *jx.Encoder) { e.Str(line.Category) })
		e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, line.Price) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(line.Quantity) })
		e.Field("amount", func(e *jx.Encoder) { encodeDecimal(e, line.Amount) })
	})
}

// mapOrderError converts domain errors to HTTP error responses.
func mapOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyLines):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, coupon.ErrInvalidCoupon):
		writeError(w, http.StatusUnprocessableEntity, "invalid coupon code")
		return
	case errors.Is(err, coupon.ErrCouponNotUsable):
		writeError(w, http.StatusUnprocessableEntity, "coupon is not usable")
		return
	case errors.Is(err, coupon.ErrBelowMinPurchase):
		writeError(w, http.StatusUnprocessableEntity, "cart total below coupon minimum purchase amount")
		return
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		writeError(w, http.StatusUnprocessableEntity, iqErr.Error())
		return
	}

	var pnfErr *order.ProductNotFoundError
	if errors.As(err, &pnfErr) {
		writeError(w, http.StatusUnprocessableEntity, pnfErr.Error())
		return
	}

	writeError(w, http.StatusInternalServerError, "internal error")
}
