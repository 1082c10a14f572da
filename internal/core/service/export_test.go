package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maspithik/angkringan/internal/core/domain"
)

func seedExportOrders(f adminFixture, n int) {
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("o%03d", i)
		seedOrder(f.orders, id, "u1", int64(i)*1000)
		order := f.orders.orders[id]
		order.CreatedAt = testNow.Add(time.Duration(i) * time.Second)
		if i%2 == 0 {
			order.PaymentStatus = domain.PaymentStatusPaid
			order.PaymentMethod = "Transfer Bank"
		}
		f.orders.orders[id] = order
	}
}

func TestExport_AllTransactions(t *testing.T) {
	f := newAdminFixture()
	seedExportOrders(f, 450)

	var buf bytes.Buffer
	n, err := f.svc.ExportTransactions(context.Background(), adminIdentity(), "", &buf)
	require.NoError(t, err)
	assert.Equal(t, 450, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 451)
	assert.Equal(t, exportHeader, rows[0])
	assert.Equal(t, "o449", rows[1][0])
}

func TestExport_FilterExpression(t *testing.T) {
	f := newAdminFixture()
	seedExportOrders(f, 10)

	var buf bytes.Buffer
	n, err := f.svc.ExportTransactions(context.Background(), adminIdentity(),
		`payment_status == "paid" && total_amount >= 4000`, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"o008", "u1", "pending", "paid", "Transfer Bank", "8000", "2026-03-01T12:00:08Z"}, rows[1])
}

func TestExport_InvalidFilter(t *testing.T) {
	f := newAdminFixture()

	var buf bytes.Buffer
	_, err := f.svc.ExportTransactions(context.Background(), adminIdentity(), `total_amount + 1`, &buf)
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = CompileExportFilter(`unknown_field == 1`)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestExport_RequiresAdmin(t *testing.T) {
	f := newAdminFixture()
	var buf bytes.Buffer
	_, err := f.svc.ExportTransactions(context.Background(), signedIn("u1"), "", &buf)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Zero(t, buf.Len())
}
