package scheduling

import (
	"encoding/json"
	"time"

	"github.com/healup/healup/internal/platform/auth"
	"github.com/healup/healup/pkg/document"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Active reports whether the appointment still holds its slot.
func (s Status) Active() bool { return s != StatusCancelled }

// Appointment books one doctor slot for one patient. PatientName, DoctorName
// and Specialty are copied at booking time and never refreshed.
type Appointment struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patientId"`
	PatientName string    `json:"patientName"`
	DoctorID    string    `json:"doctorId"`
	DoctorName  string    `json:"doctorName"`
	Specialty   string    `json:"specialty"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Type        string    `json:"type"`
	Notes       *string   `json:"notes"`
	Status      Status    `json:"status"`
	PaymentID   *string   `json:"paymentId,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a Appointment) MarshalJSON() ([]byte, error) {
	type plain Appointment
	return document.MarshalWithAlias(plain(a), a.ID)
}

// Availability is a doctor's slot list for one date.
type Availability struct {
	ID       string   `json:"id"`
	DoctorID string   `json:"doctorId"`
	Date     string   `json:"date"`
	Slots    []string `json:"slots"`
}

func (a Availability) MarshalJSON() ([]byte, error) {
	type plain Availability
	if a.Slots == nil {
		a.Slots = []string{}
	}
	return document.MarshalWithAlias(plain(a), a.ID)
}

// DoctorCard is the slice of a doctor profile scheduling needs.
type DoctorCard struct {
	ID             string
	UserID         string
	Name           string
	Specialty      string
	AvailableSlots []string
}

// Placeholders used when a booking names a profile that does not exist.
const (
	UnknownDoctor  = "Unknown Doctor"
	UnknownPatient = "Unknown Patient"
)

// AppointmentFilter selects appointments by owner. Empty fields match all.
type AppointmentFilter struct {
	PatientID string
	DoctorID  string
}

type BookInput struct {
	PatientID string  `json:"patientId" validate:"required"`
	DoctorID  string  `json:"doctorId" validate:"required"`
	Date      string  `json:"date" validate:"required"`
	Time      string  `json:"time" validate:"required"`
	Type      string  `json:"type" validate:"required"`
	Notes     *string `json:"notes"`
}

// appointmentPolicy gates reads: the patient, the appointment's own doctor,
// or an admin.
var appointmentPolicy = auth.Policy[*Appointment]{
	Owners: func(a *Appointment) auth.Owners {
		return auth.Owners{Patient: a.PatientID, Doctor: a.DoctorID}
	},
	DoctorMustOwn: true,
}

// cancelPolicy lets the patient cancel their own booking and any doctor or
// admin cancel any booking.
var cancelPolicy = auth.Policy[*Appointment]{
	Owners: func(a *Appointment) auth.Owners {
		return auth.Owners{Patient: a.PatientID}
	},
}

var _ json.Marshaler = Appointment{}
