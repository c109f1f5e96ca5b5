package plan

import (
	"context"
	"math"
	"time"
)

// Entitlement is the effective plan for a tenant at a point in time.
type Entitlement struct {
	PlanCode         string `json:"plan_code"`
	Status           string `json:"status"`
	IncludedLimit    int    `json:"included_limit"`
	MaxProfessionals int    `json:"max_professionals"`
	IsDelinquent     bool   `json:"is_delinquent"`
	TrialDaysLeft    int    `json:"trial_days_left"`
}

// TenantInfo is the subset of the tenant row the resolver needs: the
// cached plan columns written by the gateway reconciler.
type TenantInfo struct {
	ID              int
	PlanCode        string
	PlanStatus      string
	TrialEndsAt     *time.Time
	PlanActiveUntil *time.Time
}

type TenantSource interface {
	PlanInfo(ctx context.Context, tenantID int) (*TenantInfo, error)
}

// SubscriptionInfo is the subset of a subscription row the resolver
// needs. The source must return the active/trialing subscription with
// the latest current_period_end, ties broken by highest id, or nil.
type SubscriptionInfo struct {
	PlanCode         string
	Status           string
	CurrentPeriodEnd time.Time
}

type SubscriptionSource interface {
	CurrentSubscription(ctx context.Context, tenantID int) (*SubscriptionInfo, error)
}

type Resolver struct {
	tenants TenantSource
	subs    SubscriptionSource
	now     func() time.Time
}

func NewResolver(tenants TenantSource, subs SubscriptionSource) *Resolver {
	return &Resolver{tenants: tenants, subs: subs, now: time.Now}
}

// Resolve computes the effective entitlement for a tenant. Missing data
// degrades to a starter-equivalent entitlement; only store failures are
// returned as errors.
func (r *Resolver) Resolve(ctx context.Context, tenantID int) (Entitlement, error) {
	now := r.now()

	info, err := r.tenants.PlanInfo(ctx, tenantID)
	if err != nil {
		return Entitlement{}, err
	}
	if info == nil {
		p := ByCode(CodeStarter)
		return Entitlement{
			PlanCode:         p.Code,
			Status:           StatusActive,
			IncludedLimit:    p.IncludedWAMessages,
			MaxProfessionals: p.MaxProfessionals,
		}, nil
	}

	// A current active/trialing subscription is authoritative over the
	// tenant's cached plan columns.
	sub, err := r.subs.CurrentSubscription(ctx, tenantID)
	if err != nil {
		return Entitlement{}, err
	}
	if sub != nil && sub.CurrentPeriodEnd.After(now) {
		p := ByCode(sub.PlanCode)
		ent := Entitlement{
			PlanCode:         p.Code,
			Status:           sub.Status,
			IncludedLimit:    p.IncludedWAMessages,
			MaxProfessionals: p.MaxProfessionals,
		}
		if sub.Status == StatusTrialing {
			ent.TrialDaysLeft = daysLeft(info.TrialEndsAt, now)
		}
		return ent, nil
	}

	status := info.PlanStatus
	if status == "" {
		status = StatusActive
	}

	switch status {
	case StatusTrialing:
		left := daysLeft(info.TrialEndsAt, now)
		if left == 0 {
			// Trial over with no confirmed payment.
			status = StatusDelinquent
		}
		p := ByCode(info.PlanCode)
		return Entitlement{
			PlanCode:         p.Code,
			Status:           status,
			IncludedLimit:    p.IncludedWAMessages,
			MaxProfessionals: p.MaxProfessionals,
			IsDelinquent:     status == StatusDelinquent,
			TrialDaysLeft:    left,
		}, nil
	case StatusActive:
		if info.PlanActiveUntil != nil && !info.PlanActiveUntil.After(now) {
			// Paid window elapsed without a renewing subscription:
			// keep the last confirmed plan but flag delinquency.
			status = StatusDelinquent
		}
	}

	p := ByCode(info.PlanCode)
	return Entitlement{
		PlanCode:         p.Code,
		Status:           status,
		IncludedLimit:    p.IncludedWAMessages,
		MaxProfessionals: p.MaxProfessionals,
		IsDelinquent:     status == StatusDelinquent,
	}, nil
}

func daysLeft(until *time.Time, now time.Time) int {
	if until == nil {
		return 0
	}
	d := until.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}
