package billing

import "time"

const (
	SubStatusPending    = "pending"
	SubStatusTrialing   = "trialing"
	SubStatusActive     = "active"
	SubStatusDelinquent = "delinquent"
	SubStatusCanceled   = "cancelled"

	CheckoutStatusPending  = "pending"
	CheckoutStatusConsumed = "consumed"

	EventTypeSubscriptionCharge = "subscription_charge"
	EventTypeWalletTopup        = "wallet_topup"

	PaymentStatusApproved  = "approved"
	PaymentStatusRejected  = "rejected"
	PaymentStatusCancelled = "cancelled"
)

// Subscription correlates a tenant's plan with the payment gateway.
// A new row is created on every checkout initiation; the correlation
// keys may match several historical rows, most recent wins.
type Subscription struct {
	ID                    int        `db:"id" json:"id"`
	TenantID              int        `db:"tenant_id" json:"tenant_id"`
	PlanCode              string     `db:"plan_code" json:"plan_code"`
	Status                string     `db:"status" json:"status"`
	BillingCycle          string     `db:"billing_cycle" json:"billing_cycle"`
	CurrentPeriodEnd      *time.Time `db:"current_period_end" json:"current_period_end,omitempty"`
	GatewaySubscriptionID *string    `db:"gateway_subscription_id" json:"gateway_subscription_id,omitempty"`
	GatewayPreferenceID   *string    `db:"gateway_preference_id" json:"gateway_preference_id,omitempty"`
	ExternalReference     *string    `db:"external_reference" json:"external_reference,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// SubscriptionEvent is the audit trail of webhooks applied to a
// subscription. Dedup by gateway_event_id is best effort; the wallet
// transaction dedup keys are the correctness mechanism.
type SubscriptionEvent struct {
	ID             int64     `db:"id" json:"id"`
	TenantID       int       `db:"tenant_id" json:"tenant_id"`
	SubscriptionID *int      `db:"subscription_id" json:"subscription_id,omitempty"`
	GatewayEventID *string   `db:"gateway_event_id" json:"gateway_event_id,omitempty"`
	EventType      string    `db:"event_type" json:"event_type"`
	Status         string    `db:"status" json:"status"`
	Payload        *string   `db:"payload" json:"payload,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// TopupCheckout is a pending wallet top-up purchase awaiting gateway
// confirmation, keyed by the gateway payment id.
type TopupCheckout struct {
	ID         int        `db:"id" json:"id"`
	TenantID   int        `db:"tenant_id" json:"tenant_id"`
	PackCode   string     `db:"pack_code" json:"pack_code"`
	PaymentID  string     `db:"payment_id" json:"payment_id"`
	QRCode     string     `db:"qr_code" json:"qr_code"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
}

// PaymentEvent is the webhook payload shape delivered by the gateway.
// Deliveries are at-least-once, unordered, arbitrarily delayed.
type PaymentEvent struct {
	Type              string `json:"type"`
	EventID           string `json:"event_id"`
	PaymentID         string `json:"payment_id"`
	PreferenceID      string `json:"preference_id,omitempty"`
	ExternalReference string `json:"external_reference,omitempty"`
	Status            string `json:"status"`
	AmountCents       int64  `json:"amount"`
}

type ReconcileResult struct {
	OK      bool `json:"ok"`
	Applied bool `json:"applied,omitempty"`
}
