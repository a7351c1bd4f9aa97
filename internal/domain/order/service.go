package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storekit/shopbill/internal/domain/coupon"
	"github.com/storekit/shopbill/internal/domain/invoice"
	"github.com/storekit/shopbill/internal/domain/product"
)

// Sentinel errors for order validation.
var (
	ErrEmptyLines      = fmt.Errorf("line items required")
	ErrInvalidQuantity = fmt.Errorf("quantity must be greater than 0")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// RequestLine is a single requested line. Online orders only carry product
// ID and quantity; the catalog supplies the rest. Offline tickets carry the
// operator-entered name, category, and unit price.
type RequestLine struct {
	ProductID string
	Quantity  int
	Name      string
	Category  string
	Price     decimal.Decimal
}

// PlaceOrderRequest is the normalized input for creating an order or a
// point-of-sale ticket. The handler maps historical field aliases onto these
// canonical names before the request reaches this layer.
type PlaceOrderRequest struct {
	UserID   string
	SaleType SaleType
	Lines    []RequestLine

	CouponCode string
	// DiscountAmount is the operator-entered discount (offline) or the
	// client-claimed discount (online, used only as a reconciliation
	// reference and fallback).
	DiscountAmount decimal.Decimal
	// CouponDiscount is the client-claimed coupon discount. Online orders
	// recompute it server-side; a mismatch is resolved in favor of the
	// server value.
	CouponDiscount  decimal.Decimal
	GiftPrice       decimal.Decimal
	DeliveryCharges decimal.Decimal
	Tax             *decimal.Decimal
	Total           *decimal.Decimal
	// Paid marks an offline ticket whose payment was already taken.
	Paid bool
}

// PlaceOrderResult holds the persisted order and, when assembly succeeded,
// its invoice. InvoicePending is set when the order was created but invoice
// assembly failed and must be retried out-of-band.
type PlaceOrderResult struct {
	Order          *Order
	Invoice        *invoice.Invoice
	InvoicePending bool
}

// Service turns carts and tickets into persisted orders with reconciled
// totals and frozen invoices.
type Service struct {
	products  product.Repository
	coupons   coupon.Repository
	quoter    coupon.Quoter
	orders    Repository
	assembler *invoice.Assembler
	now       func() time.Time
	newID     func() string
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	coupons coupon.Repository,
	quoter coupon.Quoter,
	orders Repository,
	assembler *invoice.Assembler,
) *Service {
	return &Service{
		products:  products,
		coupons:   coupons,
		quoter:    quoter,
		orders:    orders,
		assembler: assembler,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// PlaceOrder validates and prices the lines, recomputes the coupon discount
// server-side, derives channel totals, persists the order, bumps the coupon
// usage counter, and assembles the invoice.
//
// The last two steps are deliberately non-fatal: a failed usage increment is
// logged and swallowed, and a failed invoice assembly returns the persisted
// order with InvoicePending set. An already-placed order is never rolled
// back.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: line.ProductID}
		}
	}

	lines, err := s.priceLines(ctx, req)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Amount)
	}

	couponDiscount := decimal.Zero
	freeShipping := false
	couponCode := ""
	if req.SaleType != SaleOffline && req.CouponCode != "" {
		d, err := s.reconcileCoupon(ctx, req, lines)
		if err != nil {
			return nil, err
		}
		couponDiscount = d.Amount
		freeShipping = d.FreeShipping
		couponCode = coupon.NormalizeCode(req.CouponCode)
	}

	totals := req.SaleType.ComputeTotals(TotalsInput{
		Subtotal:        subtotal,
		DiscountAmount:  req.DiscountAmount,
		CouponDiscount:  couponDiscount,
		GiftPrice:       req.GiftPrice,
		DeliveryCharges: req.DeliveryCharges,
		FreeShipping:    freeShipping,
		SuppliedTax:     req.Tax,
		SuppliedTotal:   req.Total,
	})

	o := &Order{
		ID:              s.newID(),
		UserID:          req.UserID,
		SaleType:        req.SaleType,
		Lines:           lines,
		Subtotal:        totals.Subtotal,
		DiscountAmount:  totals.DiscountAmount,
		CouponDiscount:  totals.CouponDiscount,
		GiftPrice:       totals.GiftPrice,
		DeliveryCharges: totals.DeliveryCharges,
		TaxAmount:       totals.TaxAmount,
		TotalAmount:     totals.TotalAmount,
		CouponCode:      couponCode,
		Status:          initialStatus(req.SaleType),
		CreatedAt:       s.now(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// Usage bookkeeping after the order exists; exactly once per order with
	// a coupon, never fatal.
	if couponCode != "" {
		if err := s.coupons.IncrementUsage(ctx, couponCode); err != nil {
			zctx.From(ctx).Warn("coupon usage increment failed",
				zap.String("coupon_code", couponCode),
				zap.String("order_id", o.ID),
				zap.Error(err),
			)
		}
	}

	result := &PlaceOrderResult{Order: o}
	inv, err := s.assembleInvoice(ctx, o, req.Paid)
	if err != nil {
		zctx.From(ctx).Error("invoice assembly failed, order preserved",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
		result.InvoicePending = true
		return result, nil
	}
	o.InvoiceID = inv.ID
	o.InvoiceNumber = inv.Number
	result.Invoice = inv
	return result, nil
}

// priceLines resolves each request line into a priced snapshot. Online lines
// are priced from the catalog in one batch fetch; client-supplied prices are
// ignored on that channel. Offline lines keep the operator-entered values.
func (s *Service) priceLines(ctx context.Context, req PlaceOrderRequest) ([]Line, error) {
	lines := make([]Line, len(req.Lines))

	if req.SaleType == SaleOffline {
		for i, rl := range req.Lines {
			lines[i] = Line{
				ProductID: rl.ProductID,
				Name:      rl.Name,
				Category:  rl.Category,
				Price:     rl.Price,
				Quantity:  rl.Quantity,
				Amount:    rl.Price.Mul(decimal.NewFromInt(int64(rl.Quantity))),
			}
		}
		return lines, nil
	}

	ids := make([]string, len(req.Lines))
	for i, rl := range req.Lines {
		ids[i] = rl.ProductID
	}
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	for i, rl := range req.Lines {
		p, ok := byID[rl.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: rl.ProductID}
		}
		lines[i] = Line{
			ProductID: p.ID,
			Name:      p.Name,
			Category:  p.Category,
			Price:     p.Price,
			Quantity:  rl.Quantity,
			Amount:    p.Price.Mul(decimal.NewFromInt(int64(rl.Quantity))),
		}
	}
	return lines, nil
}

// reconcileCoupon recomputes the discount server-side. The client-claimed
// figure is never persisted; when it disagrees with the server value the
// mismatch is logged for fraud review and resolved silently in the server's
// favor.
func (s *Service) reconcileCoupon(ctx context.Context, req PlaceOrderRequest, lines []Line) (*coupon.Discount, error) {
	couponLines := make([]coupon.Line, len(lines))
	for i, line := range lines {
		couponLines[i] = coupon.Line{
			ProductID: line.ProductID,
			Category:  line.Category,
			Price:     line.Price,
			Quantity:  line.Quantity,
		}
	}

	d, err := s.quoter.Quote(ctx, req.CouponCode, couponLines)
	if err != nil {
		return nil, fmt.Errorf("validate coupon: %w", err)
	}

	claimed := req.CouponDiscount
	if claimed.IsZero() {
		claimed = req.DiscountAmount
	}
	if !claimed.IsZero() && !claimed.Equal(d.Amount) {
		zctx.From(ctx).Warn("client coupon discount disagrees with server computation",
			zap.String("coupon_code", coupon.NormalizeCode(req.CouponCode)),
			zap.String("client_discount", claimed.String()),
			zap.String("server_discount", d.Amount.String()),
		)
	}
	return d, nil
}

func (s *Service) assembleInvoice(ctx context.Context, o *Order, ticketPaid bool) (*invoice.Invoice, error) {
	items := make([]invoice.Item, len(o.Lines))
	for i, line := range o.Lines {
		items[i] = invoice.Item{
			Name:     line.Name,
			Quantity: line.Quantity,
			Rate:     line.Price,
			Amount:   line.Amount,
		}
	}

	inv, err := s.assembler.Assemble(ctx, invoice.Source{
		OrderID: o.ID,
		UserID:  o.UserID,
		Offline: o.SaleType == SaleOffline,
		// Online orders reach this point only with payment captured.
		Paid:            o.SaleType != SaleOffline || ticketPaid,
		Items:           items,
		Subtotal:        o.Subtotal,
		DiscountAmount:  o.DiscountAmount,
		CouponDiscount:  o.CouponDiscount,
		GiftPrice:       o.GiftPrice,
		DeliveryCharges: o.DeliveryCharges,
		TaxAmount:       o.TaxAmount,
		TotalAmount:     o.TotalAmount,
	})
	if err != nil {
		return nil, err
	}

	if err := s.orders.AttachInvoice(ctx, o.ID, inv.ID, inv.Number); err != nil {
		// The invoice row exists; only the back-reference is missing. Report
		// it as assembly failure so the caller retries the linkage, not the
		// whole invoice.
		return nil, fmt.Errorf("attach invoice %s to order %s: %w", inv.Number, o.ID, err)
	}
	return inv, nil
}

func initialStatus(saleType SaleType) Status {
	if saleType == SaleOffline {
		// Point-of-sale tickets are fulfilled on the spot.
		return StatusDelivered
	}
	return StatusPending
}
