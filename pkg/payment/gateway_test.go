package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockOrderAndSignature(t *testing.T) {
	m := NewMock("test-secret")

	order, err := m.CreateOrder(context.Background(), "2500.00", "INR", "RCPT-1")
	require.NoError(t, err)
	require.NotEmpty(t, order.ID)
	require.Equal(t, "created", order.Status)

	sig := m.Sign(order.ID, "pay_123")
	require.True(t, m.VerifySignature(order.ID, "pay_123", sig))
	require.False(t, m.VerifySignature(order.ID, "pay_123", "deadbeef"))
	require.False(t, m.VerifySignature(order.ID, "pay_999", sig))
}
