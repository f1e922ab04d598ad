package payment

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Mock is an in-process gateway used in development and tests. Orders are
// issued locally and signatures follow the same HMAC scheme as the real
// provider so the verification path is identical.
type Mock struct {
	secret string
	seq    atomic.Int64
}

func NewMock(secret string) *Mock {
	if secret == "" {
		secret = "mock-secret"
	}
	return &Mock{secret: secret}
}

func (m *Mock) CreateOrder(ctx context.Context, amount, currency, receipt string) (*Order, error) {
	return &Order{
		ID:       fmt.Sprintf("order_mock_%d", m.seq.Add(1)),
		Amount:   amount,
		Currency: currency,
		Status:   "created",
	}, nil
}

func (m *Mock) VerifySignature(orderID, paymentID, signature string) bool {
	return verifyHMAC(m.secret, orderID, paymentID, signature)
}

// Sign issues a valid callback signature for an order; test helper.
func (m *Mock) Sign(orderID, paymentID string) string {
	return Sign(m.secret, orderID, paymentID)
}
