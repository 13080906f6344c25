package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestInvoice(t *testing.T) *Invoice {
	t.Helper()
	creator := uuid.New()
	inv, err := NewInvoice(
		"INV-2026-00001",
		uuid.New(),
		nil,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		decimal.NewFromInt(15),
		decimal.NewFromInt(10),
		&creator,
	)
	require.NoError(t, err)
	return inv
}

func standardItems() []NewLineItemInput {
	return []NewLineItemInput{
		{Description: "Design work", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(20), SortOrder: 1},
		{Description: "Development", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(25), SortOrder: 2},
	}
}

func TestNewInvoice(t *testing.T) {
	t.Run("creates draft invoice with zero totals", func(t *testing.T) {
		inv := createTestInvoice(t)
		assert.Equal(t, InvoiceStatusDraft, inv.Status)
		assert.True(t, inv.Subtotal.IsZero())
		assert.True(t, inv.TaxAmount.IsZero())
		assert.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(-10)))
		assert.Equal(t, 1, inv.GetVersion())
		assert.Len(t, inv.GetDomainEvents(), 1)
	})

	t.Run("rejects empty invoice number", func(t *testing.T) {
		_, err := NewInvoice("", uuid.New(), nil, time.Now(), time.Now().Add(24*time.Hour), decimal.Zero, decimal.Zero, nil)
		assert.Error(t, err)
	})

	t.Run("rejects nil client", func(t *testing.T) {
		_, err := NewInvoice("INV-2026-00002", uuid.Nil, nil, time.Now(), time.Now().Add(24*time.Hour), decimal.Zero, decimal.Zero, nil)
		assert.Error(t, err)
	})

	t.Run("rejects due date before issue date", func(t *testing.T) {
		now := time.Now()
		_, err := NewInvoice("INV-2026-00003", uuid.New(), nil, now, now.Add(-24*time.Hour), decimal.Zero, decimal.Zero, nil)
		assert.Error(t, err)
	})

	t.Run("rejects negative tax rate", func(t *testing.T) {
		now := time.Now()
		_, err := NewInvoice("INV-2026-00004", uuid.New(), nil, now, now.Add(24*time.Hour), decimal.NewFromInt(-1), decimal.Zero, nil)
		assert.Error(t, err)
	})

	t.Run("rejects negative discount", func(t *testing.T) {
		now := time.Now()
		_, err := NewInvoice("INV-2026-00005", uuid.New(), nil, now, now.Add(24*time.Hour), decimal.Zero, decimal.NewFromInt(-5), nil)
		assert.Error(t, err)
	})
}

func TestInvoiceRecalculateTotals(t *testing.T) {
	t.Run("derives subtotal tax and total from items", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.ReplaceLineItems(standardItems()))

		// 10*20 + 2*25 = 250; tax 15% = 37.50; total 250 + 37.50 - 10 = 277.50
		assert.Equal(t, "250.00", inv.Subtotal.StringFixed(2))
		assert.Equal(t, "37.50", inv.TaxAmount.StringFixed(2))
		assert.Equal(t, "277.50", inv.TotalAmount.StringFixed(2))
	})

	t.Run("is idempotent", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.ReplaceLineItems(standardItems()))

		before := inv.TotalAmount
		inv.RecalculateTotals()
		inv.RecalculateTotals()
		assert.True(t, inv.TotalAmount.Equal(before))
	})

	t.Run("rounds tax to two places", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.ReplaceLineItems([]NewLineItemInput{
			{Description: "Consulting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromFloat(33.33), SortOrder: 1},
		}))

		// 33.33 * 15% = 4.9995 -> 5.00
		assert.Equal(t, "5.00", inv.TaxAmount.StringFixed(2))
	})
}

func TestInvoiceReplaceLineItems(t *testing.T) {
	t.Run("replaces full set and recalculates", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.ReplaceLineItems(standardItems()))
		require.Len(t, inv.LineItems, 2)

		require.NoError(t, inv.ReplaceLineItems([]NewLineItemInput{
			{Description: "Retainer", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100), SortOrder: 1},
		}))
		assert.Len(t, inv.LineItems, 1)
		assert.Equal(t, "100.00", inv.Subtotal.StringFixed(2))
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		inv := createTestInvoice(t)
		err := inv.ReplaceLineItems([]NewLineItemInput{
			{Description: "Bad", Quantity: decimal.NewFromInt(-1), UnitPrice: decimal.NewFromInt(10)},
		})
		assert.Error(t, err)
		assert.Empty(t, inv.LineItems)
	})

	t.Run("rejects edits after send", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.Send())
		err := inv.ReplaceLineItems(standardItems())
		assert.Error(t, err)
	})
}

func TestInvoiceSend(t *testing.T) {
	t.Run("sends draft invoice", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.Send())
		assert.Equal(t, InvoiceStatusSent, inv.Status)
		assert.NotNil(t, inv.SentAt)
		assert.Equal(t, 2, inv.GetVersion())
	})

	t.Run("rejects double send", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.Send())
		err := inv.Send()
		assert.Error(t, err)
		assert.Equal(t, InvoiceStatusSent, inv.Status)
	})
}

func TestInvoiceMarkViewed(t *testing.T) {
	t.Run("marks sent invoice viewed", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.Send())
		require.NoError(t, inv.MarkViewed())
		assert.Equal(t, InvoiceStatusViewed, inv.Status)
		assert.NotNil(t, inv.ViewedAt)
	})

	t.Run("rejects viewing a draft", func(t *testing.T) {
		inv := createTestInvoice(t)
		assert.Error(t, inv.MarkViewed())
	})
}

func TestInvoiceMarkPaid(t *testing.T) {
	t.Run("settles sent invoice", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.Send())
		require.NoError(t, inv.MarkPaid(time.Time{}))
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
		assert.NotNil(t, inv.PaidAt)
	})

	t.Run("settles viewed invoice", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.Send())
		require.NoError(t, inv.MarkViewed())
		require.NoError(t, inv.MarkPaid(time.Time{}))
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
	})

	t.Run("rejects paying a draft", func(t *testing.T) {
		inv := createTestInvoice(t)
		assert.Error(t, inv.MarkPaid(time.Time{}))
		assert.Nil(t, inv.PaidAt)
	})

	t.Run("rejects paying twice", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.Send())
		require.NoError(t, inv.MarkPaid(time.Time{}))
		first := *inv.PaidAt
		assert.Error(t, inv.MarkPaid(time.Time{}))
		assert.Equal(t, first, *inv.PaidAt)
	})
}

func TestInvoiceCancel(t *testing.T) {
	actor := uuid.New()

	t.Run("cancels draft", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.Cancel(actor))
		assert.Equal(t, InvoiceStatusCancelled, inv.Status)
		assert.NotNil(t, inv.CancelledAt)
		assert.Equal(t, actor, *inv.CancelledBy)
	})

	t.Run("cancels sent", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.Send())
		require.NoError(t, inv.Cancel(actor))
		assert.Equal(t, InvoiceStatusCancelled, inv.Status)
	})

	t.Run("rejects cancelling paid", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.Send())
		require.NoError(t, inv.MarkPaid(time.Time{}))
		assert.Error(t, inv.Cancel(actor))
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
	})

	t.Run("rejects cancelling twice", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.Cancel(actor))
		assert.Error(t, inv.Cancel(actor))
	})

	t.Run("requires actor", func(t *testing.T) {
		inv := createTestInvoice(t)
		assert.Error(t, inv.Cancel(uuid.Nil))
		assert.Equal(t, InvoiceStatusDraft, inv.Status)
	})
}

func TestInvoiceRevertToSent(t *testing.T) {
	t.Run("reverts paid invoice and clears paid_at", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.Send())
		require.NoError(t, inv.MarkPaid(time.Time{}))
		require.NoError(t, inv.RevertToSent())
		assert.Equal(t, InvoiceStatusSent, inv.Status)
		assert.Nil(t, inv.PaidAt)
	})

	t.Run("rejects reverting unpaid invoice", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.Send())
		assert.Error(t, inv.RevertToSent())
	})
}

func TestInvoiceIsOverdue(t *testing.T) {
	today := time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		dueDate time.Time
		setup   func(inv *Invoice)
		want    bool
	}{
		{
			name:    "sent invoice past due",
			dueDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			setup:   func(inv *Invoice) { _ = inv.Send() },
			want:    true,
		},
		{
			name:    "sent invoice due today",
			dueDate: time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
			setup:   func(inv *Invoice) { _ = inv.Send() },
			want:    false,
		},
		{
			name:    "draft invoice past due",
			dueDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			setup:   func(inv *Invoice) {},
			want:    true,
		},
		{
			name:    "paid invoice past due",
			dueDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			setup: func(inv *Invoice) {
				_ = inv.Send()
				_ = inv.MarkPaid(time.Time{})
			},
			want: false,
		},
		{
			name:    "cancelled invoice past due",
			dueDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			setup:   func(inv *Invoice) { _ = inv.Cancel(uuid.New()) },
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := NewInvoice("INV-2026-00099", uuid.New(), nil,
				time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), tt.dueDate,
				decimal.Zero, decimal.Zero, nil)
			require.NoError(t, err)
			tt.setup(inv)
			assert.Equal(t, tt.want, inv.IsOverdue(today))
		})
	}
}

func TestInvoiceUpdateTerms(t *testing.T) {
	t.Run("updates terms and recalculates", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.ReplaceLineItems(standardItems()))

		issue := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
		due := time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC)
		require.NoError(t, inv.UpdateTerms(issue, due, decimal.NewFromInt(10), decimal.Zero, "net 30"))

		assert.Equal(t, "25.00", inv.TaxAmount.StringFixed(2))
		assert.Equal(t, "275.00", inv.TotalAmount.StringFixed(2))
		assert.Equal(t, "net 30", inv.Notes)
	})

	t.Run("rejects updates after send", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.Send())
		err := inv.UpdateTerms(inv.IssueDate, inv.DueDate, decimal.Zero, decimal.Zero, "")
		assert.Error(t, err)
	})
}
