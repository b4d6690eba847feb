// Package payment creates payment orders and verifies checkout callbacks.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"hirelocal_backend/platform/config"

	"github.com/google/uuid"
)

// Order is what the client needs to open the provider checkout.
type Order struct {
	ID       string `json:"orderId"`
	KeyID    string `json:"keyId"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// Gateway is the payment provider port.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int, currency, receipt string) (Order, error)
	// VerifySignature checks the signature the provider hands the client
	// after a captured payment.
	VerifySignature(orderID, paymentID, signature string) bool
}

// HMACGateway issues order ids locally and verifies callbacks signed as
// hex(HMAC-SHA256(orderId|paymentId, keySecret)).
type HMACGateway struct {
	keyID  string
	secret string
}

func NewHMACGateway(cfg config.PaymentConfig) *HMACGateway {
	return &HMACGateway{keyID: cfg.GetPaymentKeyID(), secret: cfg.GetPaymentKeySecret()}
}

func (g *HMACGateway) CreateOrder(_ context.Context, amount int, currency, receipt string) (Order, error) {
	return Order{
		ID:       "order_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		KeyID:    g.keyID,
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	}, nil
}

// Sign computes the expected callback signature.
func (g *HMACGateway) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(g.secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *HMACGateway) VerifySignature(orderID, paymentID, signature string) bool {
	if g.secret == "" || orderID == "" || paymentID == "" {
		return false
	}
	got, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(signature)))
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(g.Sign(orderID, paymentID))
	return hmac.Equal(got, want)
}
