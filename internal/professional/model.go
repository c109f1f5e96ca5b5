package professional

import "time"

type Professional struct {
	ID        int       `db:"id" json:"id"`
	TenantID  int       `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Service struct {
	ID          int       `db:"id" json:"id"`
	TenantID    int       `db:"tenant_id" json:"tenant_id"`
	Name        string    `db:"name" json:"name"`
	DurationMin int       `db:"duration_min" json:"duration_min"`
	PriceCents  int64     `db:"price_cents" json:"price_cents"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type CreateProfessionalRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

type CreateServiceRequest struct {
	Name        string `json:"name" binding:"required"`
	DurationMin int    `json:"duration_min" binding:"required,min=5"`
	PriceCents  int64  `json:"price_cents" binding:"required,min=0"`
}
