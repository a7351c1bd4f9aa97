package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storekit/shopbill/internal/domain/invoice"
)

const (
	createInvoiceSQL = `INSERT INTO invoices (id, invoice_number, order_id, user_id,
		items, subtotal, discount_amount, coupon_discount, gift_price,
		delivery_charges, tax_amount, total_amount, payment_status, status,
		payment_date, qr_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	// Atomic increment-and-get on a single counter row. The upsert makes the
	// first call create the row; RETURNING hands every caller a distinct
	// value even under concurrency.
	nextInvoiceSeqSQL = `INSERT INTO invoice_counters (id, value) VALUES (1, 1)
		ON CONFLICT (id) DO UPDATE SET value = invoice_counters.value + 1
		RETURNING value`

	latestInvoiceNumberSQL = `SELECT invoice_number FROM invoices
		ORDER BY created_at DESC LIMIT 1`

	seedCounterSQL = `INSERT INTO invoice_counters (id, value) VALUES (1, $1)
		ON CONFLICT (id) DO NOTHING`
)

var _ invoice.Repository = (*InvoiceRepository)(nil)
var _ invoice.NumberSource = (*InvoiceRepository)(nil)

// InvoiceRepository implements invoice.Repository and the sequencer's
// NumberSource backed by PostgreSQL.
type InvoiceRepository struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepository returns an InvoiceRepository that uses the given pool.
func NewInvoiceRepository(pool *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{pool: pool}
}

// Create persists a new invoice. The unique constraint on invoice_number is
// the final guard against a colliding number ever being stored.
func (r *InvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	itemsJSON, err := json.Marshal(inv.Items)
	if err != nil {
		return fmt.Errorf("marshaling invoice items: %w", err)
	}

	_, err = r.pool.Exec(ctx, createInvoiceSQL,
		inv.ID, inv.Number, inv.OrderID, inv.UserID, itemsJSON,
		inv.Subtotal, inv.DiscountAmount, inv.CouponDiscount, inv.GiftPrice,
		inv.DeliveryCharges, inv.TaxAmount, inv.TotalAmount,
		string(inv.PaymentStatus), string(inv.Status),
		inv.PaymentDate, inv.QRPayload, inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating invoice %q: %w", inv.Number, err)
	}
	return nil
}

// Next returns the next invoice sequence value via the atomic counter row.
func (r *InvoiceRepository) Next(ctx context.Context) (int64, error) {
	var value int64
	if err := r.pool.QueryRow(ctx, nextInvoiceSeqSQL).Scan(&value); err != nil {
		return 0, fmt.Errorf("advancing invoice counter: %w", err)
	}
	return value, nil
}

// SeedCounter initializes the counter row from the newest issued invoice,
// bridging installs that numbered invoices with the legacy read-latest
// scheme. A no-op when the counter row already exists or no invoice under
// the prefix is found.
func (r *InvoiceRepository) SeedCounter(ctx context.Context, prefix string) error {
	var latest string
	err := r.pool.QueryRow(ctx, latestInvoiceNumberSQL).Scan(&latest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("reading latest invoice number: %w", err)
	}

	n, err := invoice.ParseNumber(prefix, latest)
	if err != nil {
		// Foreign or timestamp-formatted number: start the counter fresh.
		return nil
	}

	if _, err := r.pool.Exec(ctx, seedCounterSQL, n); err != nil {
		return fmt.Errorf("seeding invoice counter: %w", err)
	}
	return nil
}
