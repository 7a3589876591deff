package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/revenue"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayout() *revenue.Payout {
	p := &revenue.Payout{
		PayoutNumber:           "PO-20240304-0001",
		PartnerID:              "partner-1",
		PeriodStart:            time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		PeriodEnd:              time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC),
		OrderCount:             2,
		TotalOrderAmount:       decimal.RequireFromString("12500.00"),
		TotalPartnerCommission: decimal.RequireFromString("1234.5"),
		TotalFees:              decimal.RequireFromString("10"),
		Deductions:             decimal.Zero,
		TotalNetPayout:         decimal.RequireFromString("1224.5"),
		Status:                 revenue.PayoutStatusPending,
		ScheduledDate:          time.Date(2024, 3, 13, 23, 59, 59, 0, time.UTC),
	}
	p.TenantID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	return p
}

func sampleRecords() []revenue.OrderRevenue {
	return []revenue.OrderRevenue{
		{
			OrderID:           "ord-1",
			PaymentMethod:     "card",
			CommissionType:    revenue.CommissionTypeOrderCompletion,
			OrderAmount:       decimal.RequireFromString("10000"),
			PartnerCommission: decimal.RequireFromString("1000"),
			TotalFees:         decimal.RequireFromString("10"),
			Status:            revenue.RevenueStatusPaidOut,
		},
		{
			OrderID:           "ord-2",
			PaymentMethod:     "cash",
			CommissionType:    revenue.CommissionTypeDelivery,
			OrderAmount:       decimal.RequireFromString("2500"),
			PartnerCommission: decimal.RequireFromString("234.5"),
			TotalFees:         decimal.Zero,
			Status:            revenue.RevenueStatusPaidOut,
		},
	}
}

func readRows(t *testing.T, body []byte) [][]string {
	t.Helper()
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestStatementRenderer_English(t *testing.T) {
	r := NewStatementRenderer("en-US")
	body, err := r.Render(samplePayout(), sampleRecords())
	require.NoError(t, err)

	rows := readRows(t, body)
	assert.Equal(t, []string{"payout", "PO-20240304-0001"}, rows[0])
	assert.Equal(t, []string{"period", "2024-03-04 - 2024-03-10"}, rows[2])
	assert.Equal(t, []string{"status", "Pending"}, rows[3])
	// blank separator lines are skipped by the reader
	assert.Equal(t, "order_id", rows[5][0])
	assert.Equal(t, []string{"ord-1", "card", "Order Completion", "10,000.00", "1,000.00", "10.00", "Paid Out"}, rows[6])
	assert.Equal(t, []string{"ord-2", "cash", "Delivery", "2,500.00", "234.50", "0.00", "Paid Out"}, rows[7])
	assert.Equal(t, []string{"net_payout", "1,224.50"}, rows[len(rows)-1])
}

func TestStatementRenderer_German(t *testing.T) {
	r := NewStatementRenderer("de")
	assert.Equal(t, "1.234,50", r.Amount(decimal.RequireFromString("1234.5")))
	assert.Equal(t, "0,00", r.Amount(decimal.Zero))
}

func TestStatementRenderer_AmountKeepsExactDigits(t *testing.T) {
	r := NewStatementRenderer("en")
	tests := []struct {
		in   string
		want string
	}{
		{"123456789012345678.99", "123,456,789,012,345,678.99"},
		{"100", "100.00"},
		{"999.995", "1,000.00"},
		{"-1234.5", "-1,234.50"},
		{"0.004", "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Amount(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestStatementRenderer_FallbackAndEmpty(t *testing.T) {
	r := NewStatementRenderer("!!")
	assert.Equal(t, "en", r.Locale().String())

	_, err := r.Render(samplePayout(), nil)
	assert.ErrorIs(t, err, ErrNoRecords)
}

type failingWriter struct{}

func (failingWriter) Upload(context.Context, string, []byte, string) error {
	return errors.New("bucket unavailable")
}

func TestStatementExporter_Export(t *testing.T) {
	mem := NewMemoryStorage()
	exp := NewStatementExporter(mem, nil, "statements", nil)

	key, err := exp.Export(context.Background(), samplePayout(), sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, "statements/11111111-1111-1111-1111-111111111111/2024-03-04/PO-20240304-0001.csv", key)
	assert.Equal(t, []string{key}, mem.Keys())

	obj, ok := mem.Get(key)
	require.True(t, ok)
	assert.Equal(t, statementContentType, obj.ContentType)
	assert.Contains(t, string(obj.Data), "ord-2")
}

func TestStatementExporter_Errors(t *testing.T) {
	exp := NewStatementExporter(failingWriter{}, NewStatementRenderer("en"), "", nil)
	_, err := exp.Export(context.Background(), samplePayout(), sampleRecords())
	assert.ErrorContains(t, err, "upload statement")

	_, err = exp.Export(context.Background(), samplePayout(), nil)
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestMemoryStorage(t *testing.T) {
	mem := NewMemoryStorage()
	assert.ErrorIs(t, mem.Upload(context.Background(), "", nil, ""), ErrEmptyKey)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, mem.Upload(ctx, "k", []byte("v"), ""))

	data := []byte("v1")
	require.NoError(t, mem.Upload(context.Background(), "k", data, "text/plain"))
	data[0] = 'x'
	obj, ok := mem.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v1", string(obj.Data))
}
