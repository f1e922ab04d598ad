package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"gigbridge-platform/pkg/config"
	"gigbridge-platform/pkg/errutil"
)

var Module = fx.Module("payment", fx.Provide(ProvideGateway))

// Order is the provider-side order a client pays against.
type Order struct {
	ID       string `json:"id"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// Gateway is the external payment collaborator: create an order before funds
// move, verify the provider callback signature afterwards.
type Gateway interface {
	CreateOrder(ctx context.Context, amount string, currency string, receipt string) (*Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

type GatewayParams struct {
	fx.In
	Config *config.Config
}

func ProvideGateway(p GatewayParams) Gateway {
	if p.Config.Payment.Provider == "mock" || p.Config.Payment.BaseURL == "" {
		zap.L().Info("[Payment] using mock gateway")
		return NewMock(p.Config.Payment.KeySecret)
	}

	timeout := p.Config.Payment.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &httpGateway{
		baseURL:   p.Config.Payment.BaseURL,
		keyID:     p.Config.Payment.KeyID,
		keySecret: p.Config.Payment.KeySecret,
		client:    &http.Client{Timeout: timeout},
	}
}

type httpGateway struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

func (g *httpGateway) CreateOrder(ctx context.Context, amount, currency, receipt string) (*Order, error) {
	body, err := json.Marshal(map[string]string{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errutil.Timeout("payment gateway timed out", errutil.WithErr(err))
		}
		return nil, errutil.BadGateway("payment gateway unreachable", errutil.WithErr(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, errutil.BadGateway(fmt.Sprintf("payment gateway returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, errutil.UnprocessableEntity(fmt.Sprintf("payment order rejected (%d)", resp.StatusCode))
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, errutil.BadGateway("payment gateway returned malformed order", errutil.WithErr(err))
	}
	return &order, nil
}

// VerifySignature checks the provider callback: HMAC-SHA256 over
// "<orderID>|<paymentID>" keyed with the gateway secret.
func (g *httpGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return verifyHMAC(g.keySecret, orderID, paymentID, signature)
}

func verifyHMAC(secret, orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%s", orderID, paymentID)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign produces the callback signature; exported for the mock gateway and tests.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%s", orderID, paymentID)
	return hex.EncodeToString(mac.Sum(nil))
}
