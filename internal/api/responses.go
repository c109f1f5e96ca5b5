package api

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

// PlanErrorResponse is returned when the plan guard rejects an action.
// Code is machine-readable: plan_delinquent, professional_limit_reached.
type PlanErrorResponse struct {
	Error string `json:"error" example:"subscription payment is overdue"`
	Code  string `json:"code" example:"plan_delinquent"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
