package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/metrics"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/plan"
)

// ErrWalletUnavailable means no wallet exists and one could not be
// provisioned. Fatal to the caller's request; safe to retry.
var ErrWalletUnavailable = errors.New("wallet unavailable")

type Ledger interface {
	EnsureCycle(ctx context.Context, tenantID int) (*Wallet, error)
	Snapshot(ctx context.Context, tenantID int) (*Snapshot, error)
	Debit(ctx context.Context, tenantID int, appointmentID *int, providerMessageID string) (*DebitResult, error)
	CreditTopup(ctx context.Context, tenantID int, paymentID string, pack plan.TopupPack) (bool, error)
	RecordBlocked(ctx context.Context, tenantID int, appointmentID *int, reason string, metadata *string) error
	CountDebitsForAppointment(ctx context.Context, tenantID, appointmentID int) (int, error)
	ListTransactions(ctx context.Context, tenantID, limit, offset int) ([]Transaction, error)
	TopupHistory(ctx context.Context, tenantID, limit int) ([]Transaction, error)
}

type ledger struct {
	repo         Repository
	entitlements plan.EntitlementSource
	now          func() time.Time
}

func NewLedger(repo Repository, entitlements plan.EntitlementSource) Ledger {
	return &ledger{
		repo:         repo,
		entitlements: entitlements,
		now:          time.Now,
	}
}

// EnsureCycle provisions the wallet on first use and rolls the billing
// cycle forward when the current window has elapsed. Idempotent:
// concurrent callers collapse via the store's uniqueness constraints.
func (s *ledger) EnsureCycle(ctx context.Context, tenantID int) (*Wallet, error) {
	ent, err := s.entitlements.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	w, err := s.repo.GetWallet(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if w == nil {
		w, err = s.repo.CreateIfAbsent(ctx, tenantID, ent.IncludedLimit, now, now.AddDate(0, 1, 0))
		if err != nil {
			if errors.Is(err, ErrWalletNotFound) {
				return nil, ErrWalletUnavailable
			}
			return nil, err
		}
		return w, nil
	}

	if now.Before(w.CycleEnd) {
		return w, nil
	}

	// Roll monthly windows forward until the current instant falls
	// inside one. included_balance refills from the current plan;
	// extra_balance carries over.
	start := w.CycleEnd
	end := start.AddDate(0, 1, 0)
	for !now.Before(end) {
		start = end
		end = start.AddDate(0, 1, 0)
	}

	applied, err := s.repo.ApplyCycleReset(ctx, tenantID, ent.IncludedLimit, start, end)
	if err != nil {
		return nil, err
	}
	if applied {
		metrics.RecordCycleReset()
	}

	w, err = s.repo.GetWallet(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrWalletUnavailable
	}
	return w, nil
}

func (s *ledger) Snapshot(ctx context.Context, tenantID int) (*Snapshot, error) {
	w, err := s.EnsureCycle(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		CycleStart:      w.CycleStart,
		CycleEnd:        w.CycleEnd,
		IncludedLimit:   w.IncludedLimit,
		IncludedBalance: w.IncludedBalance,
		ExtraBalance:    w.ExtraBalance,
		TotalBalance:    w.IncludedBalance + w.ExtraBalance,
	}, nil
}

// Debit consumes one credit for a provider message id, preferring the
// included bucket. A replayed message id succeeds without touching the
// balance. Insufficient balance is a business outcome, not an error: a
// blocked row is written and the result says why.
func (s *ledger) Debit(ctx context.Context, tenantID int, appointmentID *int, providerMessageID string) (*DebitResult, error) {
	if _, err := s.EnsureCycle(ctx, tenantID); err != nil {
		return nil, err
	}

	bucket, idempotent, err := s.repo.Debit(ctx, tenantID, appointmentID, providerMessageID)
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			if blockErr := s.RecordBlocked(ctx, tenantID, appointmentID, ReasonInsufficientBalance, nil); blockErr != nil {
				return nil, blockErr
			}
			return &DebitResult{OK: false, Reason: ReasonInsufficientBalance}, nil
		}
		if errors.Is(err, ErrWalletNotFound) {
			return nil, ErrWalletUnavailable
		}
		return nil, err
	}

	if idempotent {
		metrics.RecordDebit("replay", true)
		return &DebitResult{OK: true, Idempotent: true}, nil
	}

	metrics.RecordDebit(bucket, false)
	return &DebitResult{OK: true, Bucket: bucket}, nil
}

func (s *ledger) CreditTopup(ctx context.Context, tenantID int, paymentID string, pack plan.TopupPack) (bool, error) {
	if _, err := s.EnsureCycle(ctx, tenantID); err != nil {
		return false, err
	}

	metadata := `{"pack_code":"` + pack.Code + `"}`
	applied, err := s.repo.CreditTopup(ctx, tenantID, paymentID, pack.WAMessages, &metadata)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return false, ErrWalletUnavailable
		}
		return false, err
	}
	if applied {
		metrics.RecordTopUp()
	}
	return applied, nil
}

func (s *ledger) RecordBlocked(ctx context.Context, tenantID int, appointmentID *int, reason string, metadata *string) error {
	metrics.RecordBlocked(reason)
	return s.repo.InsertBlocked(ctx, tenantID, appointmentID, reason, metadata)
}

func (s *ledger) CountDebitsForAppointment(ctx context.Context, tenantID, appointmentID int) (int, error) {
	return s.repo.CountDebitsForAppointment(ctx, tenantID, appointmentID)
}

func (s *ledger) ListTransactions(ctx context.Context, tenantID, limit, offset int) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, tenantID, limit, offset)
}

func (s *ledger) TopupHistory(ctx context.Context, tenantID, limit int) ([]Transaction, error) {
	return s.repo.ListTopups(ctx, tenantID, limit)
}
