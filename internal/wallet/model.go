package wallet

import "time"

// Wallet holds the per-tenant message credit state for the current
// billing cycle. included_balance resets each cycle; extra_balance is
// paid top-up credit and carries over.
type Wallet struct {
	ID              int       `db:"id" json:"id"`
	TenantID        int       `db:"tenant_id" json:"tenant_id"`
	CycleStart      time.Time `db:"cycle_start" json:"cycle_start"`
	CycleEnd        time.Time `db:"cycle_end" json:"cycle_end"`
	IncludedLimit   int       `db:"included_limit" json:"included_limit"`
	IncludedBalance int       `db:"included_balance" json:"included_balance"`
	ExtraBalance    int       `db:"extra_balance" json:"extra_balance"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

const (
	KindCycleReset  = "cycle_reset"
	KindTopupCredit = "topup_credit"
	KindDebit       = "debit"
	KindBlocked     = "blocked"

	BucketIncluded = "included"
	BucketExtra    = "extra"

	ReasonInsufficientBalance = "insufficient_balance"
	ReasonPerAppointmentLimit = "per_appointment_limit"
)

// Transaction is an append-only ledger row. The dedup key depends on
// the kind: provider_message_id for debits, payment_id for top-up
// credits, (tenant_id, cycle_start) for cycle resets. Blocked rows are
// informational and carry no dedup key.
type Transaction struct {
	ID                int64      `db:"id" json:"id"`
	TenantID          int        `db:"tenant_id" json:"tenant_id"`
	Kind              string     `db:"kind" json:"kind"`
	Delta             int        `db:"delta" json:"delta"`
	IncludedDelta     int        `db:"included_delta" json:"included_delta"`
	ExtraDelta        int        `db:"extra_delta" json:"extra_delta"`
	ProviderMessageID *string    `db:"provider_message_id" json:"provider_message_id,omitempty"`
	PaymentID         *string    `db:"payment_id" json:"payment_id,omitempty"`
	CycleStart        *time.Time `db:"cycle_start" json:"cycle_start,omitempty"`
	AppointmentID     *int       `db:"appointment_id" json:"appointment_id,omitempty"`
	Reason            *string    `db:"reason" json:"reason,omitempty"`
	Metadata          *string    `db:"metadata" json:"metadata,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

type Snapshot struct {
	CycleStart      time.Time `json:"cycle_start"`
	CycleEnd        time.Time `json:"cycle_end"`
	IncludedLimit   int       `json:"included_limit"`
	IncludedBalance int       `json:"included_balance"`
	ExtraBalance    int       `json:"extra_balance"`
	TotalBalance    int       `json:"total_balance"`
}

type DebitResult struct {
	OK         bool   `json:"ok"`
	Idempotent bool   `json:"idempotent,omitempty"`
	Bucket     string `json:"bucket,omitempty"`
	Reason     string `json:"reason,omitempty"`
}
