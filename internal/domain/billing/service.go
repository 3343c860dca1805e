package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/healup/healup/internal/domain/scheduling"
	"github.com/healup/healup/internal/platform/auth"
	"github.com/healup/healup/internal/platform/db"
	"github.com/healup/healup/pkg/apperr"
)

// Appointments is the slice of the booking engine the ledger drives.
type Appointments interface {
	// Lookup returns an apperr not-found error for unknown ids.
	Lookup(ctx context.Context, id string) (*scheduling.Appointment, error)
	Confirm(ctx context.Context, id, paymentID string) error
}

var (
	errMissingOrder   = apperr.Validation("Missing appointmentId or amount")
	errInvalidConfirm = apperr.Validation("Invalid orderId or status")
	errPaymentMissing = apperr.NotFound("Payment not found")
)

type Service struct {
	payments     PaymentRepository
	appointments Appointments
	tx           db.Transactor
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(payments PaymentRepository, appointments Appointments, tx db.Transactor, logger zerolog.Logger) *Service {
	return &Service{
		payments:     payments,
		appointments: appointments,
		tx:           tx,
		logger:       logger,
		now:          db.Now,
	}
}

// OpenOrder records a pending payment against an appointment the caller may
// pay for.
func (s *Service) OpenOrder(ctx context.Context, p *auth.Principal, in OrderInput) (*Order, error) {
	if err := auth.Check(p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.AppointmentID) == "" || in.Amount <= 0 {
		return nil, errMissingOrder
	}

	appt, err := s.appointments.Lookup(ctx, in.AppointmentID)
	if err != nil {
		return nil, err
	}
	if p.Is(auth.RolePatient) && !p.Owns(appt.PatientID) {
		return nil, apperr.Forbidden("")
	}

	pay := &Payment{
		AppointmentID: appt.ID,
		UserID:        p.UserID,
		Amount:        in.Amount,
		Status:        StatusPending,
		CreatedAt:     s.now(),
	}
	if err := s.payments.Create(ctx, pay); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	s.logger.Info().Str("payment_id", pay.ID).Str("appointment_id", appt.ID).Msg("payment order opened")
	return &Order{OrderID: pay.ID, Amount: pay.Amount}, nil
}

// Confirm records the outcome of a payment. A successful payment confirms its
// appointment in the same transaction. Any authenticated caller may confirm.
func (s *Service) Confirm(ctx context.Context, p *auth.Principal, in ConfirmInput) (*Payment, error) {
	if err := auth.Check(p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.OrderID) == "" || !in.Status.Settled() {
		return nil, errInvalidConfirm
	}

	var pay *Payment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		pay, err = s.payments.GetByID(ctx, in.OrderID)
		if errors.Is(err, db.ErrNotFound) {
			return errPaymentMissing
		}
		if err != nil {
			return fmt.Errorf("load payment: %w", err)
		}

		at := s.now()
		if err := s.payments.SetStatus(ctx, pay.ID, in.Status, at); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		pay.Status = in.Status
		pay.UpdatedAt = &at

		if in.Status != StatusSuccess {
			return nil
		}
		err = s.appointments.Confirm(ctx, pay.AppointmentID, pay.ID)
		if errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn().Str("payment_id", pay.ID).Str("appointment_id", pay.AppointmentID).
				Msg("paid appointment no longer exists")
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("payment_id", pay.ID).Str("status", string(pay.Status)).Msg("payment confirmed")
	return pay, nil
}

// Get lets the payer, the appointment's patient, or any doctor or admin read
// a payment.
func (s *Service) Get(ctx context.Context, p *auth.Principal, id string) (*Payment, error) {
	if err := auth.Check(p); err != nil {
		return nil, err
	}
	pay, err := s.payments.GetByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errPaymentMissing
	}
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if !p.Is(auth.RolePatient) || p.Owns(pay.UserID) {
		return pay, nil
	}

	appt, err := s.appointments.Lookup(ctx, pay.AppointmentID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return nil, apperr.Forbidden("")
	case err != nil:
		return nil, err
	case !p.Owns(appt.PatientID):
		return nil, apperr.Forbidden("")
	}
	return pay, nil
}
