package scheduling

import (
	"context"
	"errors"
)

// ErrSlotTaken is returned by AppointmentRepository.Create when another
// active appointment already holds (doctor, date, time).
var ErrSlotTaken = errors.New("slot already booked")

// Repositories return db.ErrNotFound when no row matches.

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context, f AppointmentFilter) ([]*Appointment, error)
	// FindActive returns the non-cancelled appointment holding a slot.
	FindActive(ctx context.Context, doctorID, date, time string) (*Appointment, error)
	SetStatus(ctx context.Context, id string, status Status) error
	// Confirm marks the appointment confirmed and records the payment.
	Confirm(ctx context.Context, id, paymentID string) error
}

type AvailabilityRepository interface {
	ListByDoctor(ctx context.Context, doctorID string) ([]*Availability, error)
	Get(ctx context.Context, doctorID, date string) (*Availability, error)
	// Upsert replaces the slots for (doctor, date), keeping the record id.
	Upsert(ctx context.Context, a *Availability) error
}
