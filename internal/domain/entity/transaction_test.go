package entity

import (
	"strings"
	"testing"
	"time"

	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaymentTransaction(t *testing.T) {
	fixedTime := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	t.Run("Valid registration payment", func(t *testing.T) {
		tx, err := NewPaymentTransaction("idem-1", "500", "inr", string(ReferenceRegistration), "reg-1", "a@example.com", fixedTime)

		require.NoError(t, err)
		assert.NotEmpty(t, tx.ID)
		assert.Equal(t, "idem-1", tx.IdempotencyKey)
		assert.Equal(t, int64(50000), tx.AmountMinor)
		assert.Equal(t, "INR", tx.Currency)
		assert.Equal(t, StatusPending, tx.Status)
		assert.Equal(t, ReferenceRegistration, tx.ReferenceType)
		assert.Equal(t, fixedTime, tx.InitiatedAt)
		assert.Nil(t, tx.CompletedAt)
		assert.Empty(t, tx.GatewayOrderRef)
		assert.True(t, strings.HasPrefix(tx.TransactionNumber, "TXN-20240309-"))
		assert.Equal(t, "500.00", tx.Amount())
	})

	t.Run("Missing idempotency key falls back to id", func(t *testing.T) {
		tx, err := NewPaymentTransaction("", "10.50", "USD", string(ReferenceDonation), "don-1", "", fixedTime)

		require.NoError(t, err)
		assert.Equal(t, tx.ID, tx.IdempotencyKey)
	})

	t.Run("Invalid reference type", func(t *testing.T) {
		tx, err := NewPaymentTransaction("k", "10", "USD", "MEMBERSHIP", "m-1", "", fixedTime)

		assert.ErrorIs(t, err, errs.ErrInvalidReference)
		assert.Nil(t, tx)
	})

	t.Run("Empty reference id", func(t *testing.T) {
		_, err := NewPaymentTransaction("k", "10", "USD", string(ReferenceDonation), "  ", "", fixedTime)
		assert.ErrorIs(t, err, errs.ErrInvalidReference)
	})

	t.Run("Invalid amount", func(t *testing.T) {
		_, err := NewPaymentTransaction("k", "0", "USD", string(ReferenceDonation), "d", "", fixedTime)
		assert.ErrorIs(t, err, errs.ErrInvalidAmount)
	})

	t.Run("Invalid currency", func(t *testing.T) {
		_, err := NewPaymentTransaction("k", "10", "RUPEE", string(ReferenceDonation), "d", "", fixedTime)
		assert.ErrorIs(t, err, errs.ErrInvalidCurrency)
	})
}

func TestCanTransition(t *testing.T) {
	testCases := []struct {
		from, to TransactionStatus
		allowed  bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusCompleted, StatusRefunded, true},
		{StatusPending, StatusRefunded, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
		{StatusCompleted, StatusPending, false},
		{StatusRefunded, StatusCompleted, false},
		{StatusCompleted, StatusCompleted, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to))
		})
	}
}

func TestPaymentTransactionMatches(t *testing.T) {
	tx := &PaymentTransaction{AmountMinor: 50000, Currency: "INR"}

	assert.True(t, tx.Matches(50000, "INR"))
	assert.True(t, tx.Matches(50000, "inr"))
	assert.False(t, tx.Matches(45000, "INR"))
	assert.False(t, tx.Matches(50000, "USD"))
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())
}
