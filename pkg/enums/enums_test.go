package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	assert.True(t, OrderStatusPaid.IsValid())
	assert.False(t, OrderStatus("paid").IsValid(), "values are case sensitive")
	assert.True(t, PaymentProviderMercadoPago.IsValid())
	assert.False(t, PaymentProvider("paypal").IsValid())
	assert.True(t, WithdrawalStatusFailed.IsValid())
	assert.False(t, WithdrawalStatus("").IsValid())
	assert.True(t, UserRoleAdmin.IsValid())
	assert.True(t, OutboxDLQReasonPermanent.IsValid())
	assert.False(t, OutboxDLQErrorReason("non_retryable").IsValid())
	assert.True(t, NotificationTypeSale.IsValid())
	assert.True(t, EventSaleRecorded.IsValid())
	assert.False(t, OutboxAggregateType("Order").IsValid())
}

func TestWithdrawalStatusIsTerminal(t *testing.T) {
	terminal := map[WithdrawalStatus]bool{
		WithdrawalStatusPending:   false,
		WithdrawalStatusFailed:    false,
		WithdrawalStatusProcessed: true,
		WithdrawalStatusCancelled: true,
	}
	for status, want := range terminal {
		assert.Equal(t, want, status.IsTerminal(), status)
	}
}
