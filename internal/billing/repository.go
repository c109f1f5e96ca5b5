package billing

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/plan"
)

const subscriptionColumns = `id, tenant_id, plan_code, status, billing_cycle, current_period_end, gateway_subscription_id, gateway_preference_id, external_reference, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreatePending(ctx context.Context, tenantID int, planCode, billingCycle string, preferenceID, externalReference *string) (*Subscription, error) {
	sub := &Subscription{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO subscriptions (tenant_id, plan_code, status, billing_cycle, gateway_preference_id, external_reference)
		VALUES ($1, $2, 'pending', $3, $4, $5)
		RETURNING `+subscriptionColumns+`
	`, tenantID, planCode, billingCycle, preferenceID, externalReference).StructScan(sub)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// FindByPreferenceID returns the most recent subscription carrying the
// preference id. Historical rows may share correlation keys; highest id
// wins.
func (r *repository) FindByPreferenceID(ctx context.Context, preferenceID string) (*Subscription, error) {
	return r.findOne(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE gateway_preference_id = $1
		ORDER BY id DESC
		LIMIT 1
	`, preferenceID)
}

func (r *repository) FindByExternalReference(ctx context.Context, externalReference string) (*Subscription, error) {
	return r.findOne(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE external_reference = $1
		ORDER BY id DESC
		LIMIT 1
	`, externalReference)
}

func (r *repository) findOne(ctx context.Context, query string, args ...interface{}) (*Subscription, error) {
	sub := &Subscription{}
	err := r.db.GetContext(ctx, sub, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

// CurrentSubscription selects the active/trialing subscription with the
// latest current_period_end, ties broken by highest id.
func (r *repository) CurrentSubscription(ctx context.Context, tenantID int) (*plan.SubscriptionInfo, error) {
	sub, err := r.findOne(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE tenant_id = $1
		  AND status IN ('active', 'trialing')
		  AND current_period_end IS NOT NULL
		ORDER BY current_period_end DESC, id DESC
		LIMIT 1
	`, tenantID)
	if err != nil || sub == nil {
		return nil, err
	}

	info := &plan.SubscriptionInfo{
		PlanCode: sub.PlanCode,
		Status:   sub.Status,
	}
	if sub.CurrentPeriodEnd != nil {
		info.CurrentPeriodEnd = *sub.CurrentPeriodEnd
	}
	return info, nil
}

func (r *repository) UpdateStatus(ctx context.Context, subscriptionID int, status string, currentPeriodEnd *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = $1, current_period_end = COALESCE($2, current_period_end), updated_at = NOW()
		WHERE id = $3
	`, status, currentPeriodEnd, subscriptionID)
	return err
}

// InsertEvent appends to the audit trail. Replayed gateway event ids
// are silently dropped; rows without an event id are always written.
func (r *repository) InsertEvent(ctx context.Context, ev *SubscriptionEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscription_events (tenant_id, subscription_id, gateway_event_id, event_type, status, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (gateway_event_id) WHERE gateway_event_id IS NOT NULL DO NOTHING
	`, ev.TenantID, ev.SubscriptionID, ev.GatewayEventID, ev.EventType, ev.Status, ev.Payload)
	return err
}

func (r *repository) CreateTopupCheckout(ctx context.Context, tenantID int, packCode, paymentID, qrCode string) (*TopupCheckout, error) {
	checkout := &TopupCheckout{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO topup_checkouts (tenant_id, pack_code, payment_id, qr_code, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING id, tenant_id, pack_code, payment_id, qr_code, status, created_at, consumed_at
	`, tenantID, packCode, paymentID, qrCode).StructScan(checkout)
	if err != nil {
		return nil, err
	}
	return checkout, nil
}

func (r *repository) FindTopupByPaymentID(ctx context.Context, paymentID string) (*TopupCheckout, error) {
	checkout := &TopupCheckout{}
	err := r.db.GetContext(ctx, checkout, `
		SELECT id, tenant_id, pack_code, payment_id, qr_code, status, created_at, consumed_at
		FROM topup_checkouts
		WHERE payment_id = $1
	`, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return checkout, nil
}

func (r *repository) MarkTopupConsumed(ctx context.Context, checkoutID int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE topup_checkouts
		SET status = 'consumed', consumed_at = COALESCE(consumed_at, NOW())
		WHERE id = $1
	`, checkoutID)
	return err
}
