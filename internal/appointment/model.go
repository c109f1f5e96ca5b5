package appointment

import "time"

const (
	StatusScheduled = "scheduled"
	StatusCancelled = "cancelled"
)

type Appointment struct {
	ID             int       `db:"id" json:"id"`
	TenantID       int       `db:"tenant_id" json:"tenant_id"`
	ProfessionalID int       `db:"professional_id" json:"professional_id"`
	ServiceID      int       `db:"service_id" json:"service_id"`
	CustomerName   string    `db:"customer_name" json:"customer_name"`
	CustomerPhone  string    `db:"customer_phone" json:"customer_phone"`
	StartsAt       time.Time `db:"starts_at" json:"starts_at"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type CreateAppointmentRequest struct {
	ProfessionalID int    `json:"professional_id" binding:"required"`
	ServiceID      int    `json:"service_id" binding:"required"`
	CustomerName   string `json:"customer_name" binding:"required"`
	CustomerPhone  string `json:"customer_phone" binding:"required"`
	StartsAt       string `json:"starts_at" binding:"required"`
}

type NotifyRequest struct {
	Body              string `json:"body" binding:"required"`
	ProviderMessageID string `json:"provider_message_id"`
}
