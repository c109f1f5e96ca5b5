package messaging

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/logger"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/plan"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/wallet"
)

// Guard is the slice of the plan guard this pipeline needs.
type Guard interface {
	CheckSendMessage(ctx context.Context, tenantID int) error
}

type Service interface {
	Send(ctx context.Context, tenantID int, appointmentID *int, phone, body, providerMessageID string) (*SendResult, error)
}

type service struct {
	ledger    wallet.Ledger
	guard     Guard
	transport Transport
}

func NewService(ledger wallet.Ledger, guard Guard, transport Transport) Service {
	return &service{
		ledger:    ledger,
		guard:     guard,
		transport: transport,
	}
}

// Send runs the full pipeline: plan guard, per-appointment cap, wallet
// debit, then queue for delivery. The provider message id is the debit
// dedup key: retrying a send with the same id never consumes a second
// credit.
func (s *service) Send(ctx context.Context, tenantID int, appointmentID *int, phone, body, providerMessageID string) (*SendResult, error) {
	if providerMessageID == "" {
		providerMessageID = uuid.NewString()
	}

	if err := s.guard.CheckSendMessage(ctx, tenantID); err != nil {
		if errors.Is(err, plan.ErrPlanDelinquent) {
			return &SendResult{OK: false, Blocked: true, Reason: ReasonPlanDelinquent}, nil
		}
		return nil, err
	}

	if appointmentID != nil {
		count, err := s.ledger.CountDebitsForAppointment(ctx, tenantID, *appointmentID)
		if err != nil {
			return nil, err
		}
		if count >= MaxMessagesPerAppointment {
			if err := s.ledger.RecordBlocked(ctx, tenantID, appointmentID, wallet.ReasonPerAppointmentLimit, nil); err != nil {
				return nil, err
			}
			return &SendResult{OK: false, Blocked: true, Reason: wallet.ReasonPerAppointmentLimit}, nil
		}
	}

	debit, err := s.ledger.Debit(ctx, tenantID, appointmentID, providerMessageID)
	if err != nil {
		return nil, err
	}
	if !debit.OK {
		return &SendResult{OK: false, Blocked: true, Reason: debit.Reason}, nil
	}

	if debit.Idempotent {
		// Replayed message id: the first attempt already queued it.
		return &SendResult{OK: true, Sent: true, Idempotent: true}, nil
	}

	job := MessageJob{
		TenantID:          tenantID,
		AppointmentID:     appointmentID,
		Phone:             phone,
		Body:              body,
		ProviderMessageID: providerMessageID,
	}
	if err := s.transport.Enqueue(ctx, job); err != nil {
		// The credit is consumed on attempt; delivery failure does not
		// roll the debit back.
		logger.Errorf("Failed to enqueue message %s: %v", providerMessageID, err)
		return &SendResult{OK: true, Sent: false, Bucket: debit.Bucket}, nil
	}

	return &SendResult{OK: true, Sent: true, Bucket: debit.Bucket}, nil
}
