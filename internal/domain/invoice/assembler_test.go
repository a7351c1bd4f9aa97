package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type mockInvoiceRepo struct {
	created   []*Invoice
	createErr error
}

func (m *mockInvoiceRepo) Create(_ context.Context, inv *Invoice) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, inv)
	return nil
}

func newTestAssembler(repo *mockInvoiceRepo, qr QRConfig) *Assembler {
	a := NewAssembler(repo, NewSequencer(&atomicSource{}, "INV"), qr)
	a.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	a.newID = func() string { return "inv-test-id" }
	return a
}

func baseSource() Source {
	return Source{
		OrderID: "ord-1",
		UserID:  "u1",
		Items: []Item{
			{Name: "Widget", Quantity: 2, Rate: d("500"), Amount: d("1000")},
		},
		Subtotal:    d("1000"),
		TaxAmount:   d("50"),
		TotalAmount: d("1050"),
	}
}

func TestAssemble_PaidOrder(t *testing.T) {
	repo := &mockInvoiceRepo{}
	a := newTestAssembler(repo, QRConfig{})

	src := baseSource()
	src.Paid = true

	inv, err := a.Assemble(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, "INV-00001", inv.Number)
	assert.Equal(t, "ord-1", inv.OrderID)
	assert.Equal(t, PaymentPaid, inv.PaymentStatus)
	assert.Equal(t, StatusPaid, inv.Status)
	require.NotNil(t, inv.PaymentDate)
	assert.Empty(t, inv.QRPayload)

	// Exactly one row persisted.
	require.Len(t, repo.created, 1)
	assert.Same(t, inv, repo.created[0])
}

func TestAssemble_UnpaidOfflineTicketGetsQR(t *testing.T) {
	repo := &mockInvoiceRepo{}
	a := newTestAssembler(repo, QRConfig{PayeeVPA: "shop@upi", MerchantName: "Corner Shop"})

	src := baseSource()
	src.Offline = true

	inv, err := a.Assemble(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, PaymentPending, inv.PaymentStatus)
	assert.Equal(t, StatusIssued, inv.Status)
	assert.Nil(t, inv.PaymentDate)

	assert.Contains(t, inv.QRPayload, "upi://pay?")
	assert.Contains(t, inv.QRPayload, "pa=shop%40upi")
	assert.Contains(t, inv.QRPayload, "am=1050.00")
	assert.Contains(t, inv.QRPayload, "tn=INV-00001")
}

func TestAssemble_NoQRWithoutConfiguredPayee(t *testing.T) {
	repo := &mockInvoiceRepo{}
	a := newTestAssembler(repo, QRConfig{})

	src := baseSource()
	src.Offline = true

	inv, err := a.Assemble(context.Background(), src)
	require.NoError(t, err)
	assert.Empty(t, inv.QRPayload)
}

func TestAssemble_SnapshotIsIndependentOfSource(t *testing.T) {
	repo := &mockInvoiceRepo{}
	a := newTestAssembler(repo, QRConfig{})

	src := baseSource()
	inv, err := a.Assemble(context.Background(), src)
	require.NoError(t, err)

	// Mutating the source after assembly must not reach the invoice.
	src.Items[0].Quantity = 99
	assert.Equal(t, 2, inv.Items[0].Quantity)
}

func TestAssemble_RepositoryFailureIsReturned(t *testing.T) {
	repo := &mockInvoiceRepo{createErr: errors.New("storage down")}
	a := newTestAssembler(repo, QRConfig{})

	inv, err := a.Assemble(context.Background(), baseSource())
	require.Error(t, err)
	assert.Nil(t, inv)
	assert.Empty(t, repo.created)
}

func TestAssemble_NumbersAdvancePerInvoice(t *testing.T) {
	repo := &mockInvoiceRepo{}
	a := newTestAssembler(repo, QRConfig{})

	first, err := a.Assemble(context.Background(), baseSource())
	require.NoError(t, err)
	second, err := a.Assemble(context.Background(), baseSource())
	require.NoError(t, err)

	assert.Equal(t, "INV-00001", first.Number)
	assert.Equal(t, "INV-00002", second.Number)
}
