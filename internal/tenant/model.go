package tenant

import "time"

// Tenant is the establishment owning a wallet and subscription. The
// plan_* columns are a cache maintained by the gateway reconciler; the
// entitlement resolver treats a current subscription as authoritative.
type Tenant struct {
	ID              int        `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	PlanCode        string     `db:"plan_code" json:"plan_code"`
	PlanStatus      string     `db:"plan_status" json:"plan_status"`
	TrialEndsAt     *time.Time `db:"trial_ends_at" json:"trial_ends_at,omitempty"`
	PlanActiveUntil *time.Time `db:"plan_active_until" json:"plan_active_until,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
