package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storekit/shopbill/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, sale_type, items, subtotal,
		discount_amount, coupon_discount, gift_price, delivery_charges,
		tax_amount, total_amount, coupon_code, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	attachInvoiceSQL = `UPDATE orders SET invoice_id = $2, invoice_number = $3
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The priced line snapshots are serialized to
// JSON for storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, string(o.SaleType), linesJSON,
		o.Subtotal, o.DiscountAmount, o.CouponDiscount, o.GiftPrice,
		o.DeliveryCharges, o.TaxAmount, o.TotalAmount,
		o.CouponCode, string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// AttachInvoice records the invoice back-reference on an existing order.
func (r *OrderRepository) AttachInvoice(ctx context.Context, orderID, invoiceID, invoiceNumber string) error {
	_, err := r.pool.Exec(ctx, attachInvoiceSQL, orderID, invoiceID, invoiceNumber)
	if err != nil {
		return fmt.Errorf("attaching invoice %q to order %q: %w", invoiceNumber, orderID, err)
	}
	return nil
}
