package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preapproval"
)

var ErrGatewayNotConfigured = errors.New("payment gateway not configured")

// PixCheckout is a PIX payment awaiting confirmation: the customer
// scans the QR code, the gateway confirms via webhook.
type PixCheckout struct {
	PaymentID    string `json:"payment_id"`
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64,omitempty"`
	TicketURL    string `json:"ticket_url,omitempty"`
}

type SubscriptionCheckout struct {
	PreferenceID string `json:"preference_id"`
	InitPoint    string `json:"init_point"`
}

// Gateway is the payment gateway surface this module consumes. Webhook
// processing never calls it; only checkout creation does.
type Gateway interface {
	CreatePixPayment(ctx context.Context, amountCents int64, description, externalReference, payerEmail string) (*PixCheckout, error)
	CreateSubscriptionCheckout(ctx context.Context, reason string, amountCents int64, externalReference, payerEmail, backURL string) (*SubscriptionCheckout, error)
}

type unconfiguredGateway struct{}

// NewUnconfiguredGateway serves deployments without gateway credentials.
// Checkout creation fails loudly; webhook reconciliation is unaffected.
func NewUnconfiguredGateway() Gateway {
	return unconfiguredGateway{}
}

func (unconfiguredGateway) CreatePixPayment(context.Context, int64, string, string, string) (*PixCheckout, error) {
	return nil, ErrGatewayNotConfigured
}

func (unconfiguredGateway) CreateSubscriptionCheckout(context.Context, string, int64, string, string, string) (*SubscriptionCheckout, error) {
	return nil, ErrGatewayNotConfigured
}

type mercadoPagoGateway struct {
	payments     payment.Client
	preapprovals preapproval.Client
}

func NewMercadoPagoGateway(accessToken string) (Gateway, error) {
	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to configure mercadopago client: %w", err)
	}

	return &mercadoPagoGateway{
		payments:     payment.NewClient(cfg),
		preapprovals: preapproval.NewClient(cfg),
	}, nil
}

func (g *mercadoPagoGateway) CreatePixPayment(ctx context.Context, amountCents int64, description, externalReference, payerEmail string) (*PixCheckout, error) {
	resp, err := g.payments.Create(ctx, payment.Request{
		TransactionAmount: float64(amountCents) / 100,
		Description:       description,
		PaymentMethodID:   "pix",
		ExternalReference: externalReference,
		Payer: &payment.PayerRequest{
			Email: payerEmail,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pix payment: %w", err)
	}

	return &PixCheckout{
		PaymentID:    strconv.Itoa(resp.ID),
		QRCode:       resp.PointOfInteraction.TransactionData.QRCode,
		QRCodeBase64: resp.PointOfInteraction.TransactionData.QRCodeBase64,
		TicketURL:    resp.PointOfInteraction.TransactionData.TicketURL,
	}, nil
}

func (g *mercadoPagoGateway) CreateSubscriptionCheckout(ctx context.Context, reason string, amountCents int64, externalReference, payerEmail, backURL string) (*SubscriptionCheckout, error) {
	resp, err := g.preapprovals.Create(ctx, preapproval.Request{
		Reason:            reason,
		ExternalReference: externalReference,
		PayerEmail:        payerEmail,
		BackURL:           backURL,
		AutoRecurring: &preapproval.AutoRecurringRequest{
			Frequency:         1,
			FrequencyType:     "months",
			TransactionAmount: float64(amountCents) / 100,
			CurrencyID:        "BRL",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription checkout: %w", err)
	}

	return &SubscriptionCheckout{
		PreferenceID: resp.ID,
		InitPoint:    resp.InitPoint,
	}, nil
}
