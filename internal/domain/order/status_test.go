package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDriverStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from DriverStatus
		to   DriverStatus
		want bool
	}{
		{DriverPending, DriverAccepted, true},
		{DriverPending, DriverDelivered, false},
		{DriverPending, DriverReady, false},
		{DriverAccepted, DriverReady, true},
		{DriverReady, DriverOnTheWay, true},
		{DriverOnTheWay, DriverDelivered, true},
		{DriverOnTheWay, DriverCancelled, true},
		{DriverDelivered, DriverCancelled, false},
		{DriverCancelled, DriverPending, false},
		{DriverAccepted, DriverPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestProviderStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, ProviderPending.CanTransitionTo(ProviderReceived))
	assert.True(t, ProviderReceived.CanTransitionTo(ProviderPreparing))
	assert.True(t, ProviderPreparing.CanTransitionTo(ProviderReady))
	assert.False(t, ProviderPending.CanTransitionTo(ProviderReady))
	assert.False(t, ProviderReady.CanTransitionTo(ProviderPending))
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, DriverOnTheWay.Valid())
	assert.False(t, DriverStatus("on_the_way").Valid())
	assert.True(t, ProviderPreparing.Valid())
	assert.False(t, ProviderStatus("cooking").Valid())
}

func TestPaymentMethod_Valid(t *testing.T) {
	assert.True(t, PaymentCash.Valid())
	assert.True(t, PaymentPaypal.Valid())
	assert.True(t, PaymentStripe.Valid())
	assert.False(t, PaymentMethod("bitcoin").Valid())
}
