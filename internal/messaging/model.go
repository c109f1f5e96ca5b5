package messaging

import "time"

// MaxMessagesPerAppointment caps how many messages one appointment may
// consume, regardless of wallet balance. Counted from committed debit
// rows in the transaction log, not a separate counter.
const MaxMessagesPerAppointment = 5

const ReasonPlanDelinquent = "plan_delinquent"

// MessageJob is one outbound WhatsApp delivery, queued after a
// successful debit. The credit is consumed on attempt: a delivery
// failure does not refund it.
type MessageJob struct {
	TenantID          int       `json:"tenant_id"`
	AppointmentID     *int      `json:"appointment_id,omitempty"`
	Phone             string    `json:"phone"`
	Body              string    `json:"body"`
	ProviderMessageID string    `json:"provider_message_id"`
	Tries             int       `json:"tries"`
	Created           time.Time `json:"created"`
}

type SendResult struct {
	OK         bool   `json:"ok"`
	Sent       bool   `json:"sent,omitempty"`
	Blocked    bool   `json:"blocked,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Bucket     string `json:"bucket,omitempty"`
	Idempotent bool   `json:"idempotent,omitempty"`
}
