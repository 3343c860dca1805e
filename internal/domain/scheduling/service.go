package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/healup/healup/internal/platform/auth"
	"github.com/healup/healup/internal/platform/db"
	"github.com/healup/healup/pkg/apperr"
)

// Directory looks up the profiles a booking snapshots from.
type Directory interface {
	// Doctor returns nil, nil when no doctor profile has this id.
	Doctor(ctx context.Context, id string) (*DoctorCard, error)
	// DoctorForUser returns nil, nil when the account has no doctor profile.
	DoctorForUser(ctx context.Context, userID string) (*DoctorCard, error)
	// PatientName returns "" when id names neither an account nor a profile.
	PatientName(ctx context.Context, id string) (string, error)
}

// SlotCache memoizes slot lookups.
type SlotCache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, v interface{}) error
	DeletePattern(ctx context.Context, pattern string) error
}

var (
	errApptNotFound = apperr.NotFound("Appointment not found")
	errSlotTaken    = apperr.Conflict("Slot already booked")
)

type Service struct {
	appointments AppointmentRepository
	availability AvailabilityRepository
	directory    Directory
	cache        SlotCache
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(appt AppointmentRepository, avail AvailabilityRepository, dir Directory,
	cache SlotCache, logger zerolog.Logger) *Service {
	return &Service{
		appointments: appt,
		availability: avail,
		directory:    dir,
		cache:        cache,
		logger:       logger,
		now:          db.Now,
	}
}

// -- Appointments --

func (s *Service) ListAll(ctx context.Context, p *auth.Principal) ([]*Appointment, error) {
	if err := auth.Check(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return s.appointments.List(ctx, AppointmentFilter{})
}

func (s *Service) Get(ctx context.Context, p *auth.Principal, id string) (*Appointment, error) {
	if err := auth.Check(p); err != nil {
		return nil, err
	}
	a, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := appointmentPolicy.Authorize(p, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Lookup fetches an appointment without any access check.
func (s *Service) Lookup(ctx context.Context, id string) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errApptNotFound
	}
	return a, err
}

func (s *Service) ListByPatient(ctx context.Context, p *auth.Principal, patientID string) ([]*Appointment, error) {
	if err := auth.Check(p); err != nil {
		return nil, err
	}
	if p.Is(auth.RolePatient) && !p.Owns(patientID) {
		return nil, apperr.Forbidden("")
	}
	return s.appointments.List(ctx, AppointmentFilter{PatientID: patientID})
}

func (s *Service) ListByDoctor(ctx context.Context, p *auth.Principal, doctorID string) ([]*Appointment, error) {
	if err := auth.Check(p); err != nil {
		return nil, err
	}
	if p.Is(auth.RoleDoctor) && !p.Owns(doctorID) {
		return nil, apperr.Forbidden("")
	}
	return s.appointments.List(ctx, AppointmentFilter{DoctorID: doctorID})
}

// ListMine scopes by the caller's role: a patient's own bookings, a doctor's
// schedule (empty without a profile), or everything for an admin.
func (s *Service) ListMine(ctx context.Context, p *auth.Principal) ([]*Appointment, error) {
	if err := auth.Check(p); err != nil {
		return nil, err
	}
	switch p.Role {
	case auth.RolePatient:
		return s.appointments.List(ctx, AppointmentFilter{PatientID: p.UserID})
	case auth.RoleDoctor:
		if p.ProfileID == "" {
			return []*Appointment{}, nil
		}
		return s.appointments.List(ctx, AppointmentFilter{DoctorID: p.ProfileID})
	case auth.RoleAdmin:
		return s.appointments.List(ctx, AppointmentFilter{})
	default:
		return nil, apperr.Forbidden("Forbidden for this role")
	}
}

// Book creates a pending appointment. The pre-check gives the common case a
// clean 409; the store's active-slot index catches the race between two
// concurrent bookings.
func (s *Service) Book(ctx context.Context, p *auth.Principal, in BookInput) (*Appointment, error) {
	if blank(in.PatientID, in.DoctorID, in.Date, in.Time, in.Type) {
		return nil, apperr.Validation("Missing fields")
	}
	if err := auth.Check(p); err != nil {
		return nil, err
	}
	// Patients book under their account id, the key ListMine reads by.
	// Unlike the read paths this does not accept the patient profile id.
	if p.Is(auth.RolePatient) && in.PatientID != p.UserID {
		return nil, apperr.Forbidden("Cannot book for another patient")
	}

	if _, err := s.appointments.FindActive(ctx, in.DoctorID, in.Date, in.Time); err == nil {
		return nil, errSlotTaken
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("check slot: %w", err)
	}

	a := &Appointment{
		PatientID:   in.PatientID,
		PatientName: UnknownPatient,
		DoctorID:    in.DoctorID,
		DoctorName:  UnknownDoctor,
		Date:        in.Date,
		Time:        in.Time,
		Type:        in.Type,
		Notes:       in.Notes,
		Status:      StatusPending,
		CreatedAt:   s.now(),
	}
	s.snapshot(ctx, a)

	if err := s.appointments.Create(ctx, a); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return nil, errSlotTaken
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return a, nil
}

// snapshot copies display names onto a. Lookup failures keep the
// placeholders; a booking never fails for a missing profile.
func (s *Service) snapshot(ctx context.Context, a *Appointment) {
	if d, err := s.directory.Doctor(ctx, a.DoctorID); err != nil {
		s.logger.Warn().Err(err).Str("doctor_id", a.DoctorID).Msg("doctor snapshot lookup failed")
	} else if d != nil {
		a.DoctorName = d.Name
		a.Specialty = d.Specialty
	}

	if name, err := s.directory.PatientName(ctx, a.PatientID); err != nil {
		s.logger.Warn().Err(err).Str("patient_id", a.PatientID).Msg("patient snapshot lookup failed")
	} else if name != "" {
		a.PatientName = name
	}
}

// Cancel has no status precondition: confirmed and completed appointments
// can be cancelled too.
func (s *Service) Cancel(ctx context.Context, p *auth.Principal, id string) error {
	if err := auth.Check(p); err != nil {
		return err
	}
	a, err := s.Lookup(ctx, id)
	if err != nil {
		return err
	}
	if err := cancelPolicy.Authorize(p, a); err != nil {
		return err
	}
	return s.setStatus(ctx, id, StatusCancelled)
}

// Complete is open to any doctor or admin, not only the appointment's own
// doctor.
func (s *Service) Complete(ctx context.Context, p *auth.Principal, id string) error {
	if err := auth.Check(p, auth.RoleDoctor, auth.RoleAdmin); err != nil {
		return err
	}
	return s.setStatus(ctx, id, StatusCompleted)
}

func (s *Service) setStatus(ctx context.Context, id string, st Status) error {
	err := s.appointments.SetStatus(ctx, id, st)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return errApptNotFound
	case errors.Is(err, ErrSlotTaken):
		return errSlotTaken
	case err != nil:
		return fmt.Errorf("set appointment status: %w", err)
	}
	return nil
}

// Confirm is the payment ledger's hook; it is the only path to confirmed.
// It joins the caller's transaction when ctx carries one.
func (s *Service) Confirm(ctx context.Context, id, paymentID string) error {
	err := s.appointments.Confirm(ctx, id, paymentID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return errApptNotFound
	case errors.Is(err, ErrSlotTaken):
		return errSlotTaken
	case err != nil:
		return fmt.Errorf("confirm appointment: %w", err)
	}
	return nil
}

// -- Availability --

func (s *Service) GetAvailability(ctx context.Context, doctorID string) ([]*Availability, error) {
	return s.availability.ListByDoctor(ctx, doctorID)
}

func (s *Service) SetAvailability(ctx context.Context, p *auth.Principal, doctorID, date string, slots []string) (*Availability, error) {
	if err := auth.Check(p, auth.RoleDoctor); err != nil {
		return nil, err
	}
	d, err := s.directory.Doctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("lookup doctor: %w", err)
	}
	if d == nil || d.UserID != p.UserID {
		return nil, apperr.Forbidden("")
	}
	if strings.TrimSpace(date) == "" {
		return nil, apperr.Validation("Missing date")
	}
	if slots == nil {
		slots = []string{}
	}

	a := &Availability{DoctorID: doctorID, Date: date, Slots: slots}
	if err := s.availability.Upsert(ctx, a); err != nil {
		return nil, fmt.Errorf("upsert availability: %w", err)
	}
	if err := s.cache.DeletePattern(ctx, slotKey(doctorID, "")+"*"); err != nil {
		s.logger.Warn().Err(err).Str("doctor_id", doctorID).Msg("slot cache invalidation failed")
	}
	return a, nil
}

// Slots returns the date-specific slot list when one is recorded, else the
// doctor's default slots, else an empty list.
func (s *Service) Slots(ctx context.Context, doctorID, date string) ([]string, error) {
	key := slotKey(doctorID, date)
	var cached []string
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("slot cache read failed")
	} else if hit {
		return cached, nil
	}

	slots, err := s.lookupSlots(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, slots); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("slot cache write failed")
	}
	return slots, nil
}

func (s *Service) lookupSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	if date != "" {
		a, err := s.availability.Get(ctx, doctorID, date)
		if err == nil {
			return nonNil(a.Slots), nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("lookup availability: %w", err)
		}
	}
	d, err := s.directory.Doctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("lookup doctor: %w", err)
	}
	if d == nil {
		return []string{}, nil
	}
	return nonNil(d.AvailableSlots), nil
}

func slotKey(doctorID, date string) string {
	return "slots:" + doctorID + ":" + date
}

func blank(fields ...string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
