package clinical

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/healup/healup/internal/platform/auth"
	"github.com/healup/healup/pkg/document"
)

// Medicine is one prescribed item. Clients send either a bare name or a
// structured object; a bare name is written back the same way.
type Medicine struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Instructions string `json:"instructions,omitempty"`

	bare bool
}

// BareMedicine returns a medicine that serializes as its name alone.
func BareMedicine(name string) Medicine { return Medicine{Name: name, bare: true} }

func (m *Medicine) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*m = BareMedicine(name)
		return nil
	}
	type plain Medicine
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.New("medicine must be a string or an object")
	}
	*m = Medicine(p)
	return nil
}

func (m Medicine) MarshalJSON() ([]byte, error) {
	if m.bare {
		return json.Marshal(m.Name)
	}
	type plain Medicine
	return json.Marshal(plain(m))
}

type Prescription struct {
	ID        string     `json:"id"`
	PatientID string     `json:"patientId"`
	DoctorID  string     `json:"doctorId"`
	Diagnosis string     `json:"diagnosis"`
	Date      string     `json:"date"`
	Medicines []Medicine `json:"medicines"`
	FileURL   *string    `json:"fileUrl"`
	Notes     *string    `json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
}

func (p Prescription) MarshalJSON() ([]byte, error) {
	type plain Prescription
	if p.Medicines == nil {
		p.Medicines = []Medicine{}
	}
	return document.MarshalWithAlias(plain(p), p.ID)
}

type Report struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patientId"`
	DoctorID  string    `json:"doctorId"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Date      string    `json:"date"`
	FileURL   *string   `json:"fileUrl"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	return document.MarshalWithAlias(plain(r), r.ID)
}

type PrescriptionInput struct {
	PatientID string     `json:"patientId" validate:"required"`
	Diagnosis string     `json:"diagnosis" validate:"required"`
	Medicines []Medicine `json:"medicines" validate:"required"`
	Date      string     `json:"date"`
	FileURL   *string    `json:"fileUrl"`
	Notes     *string    `json:"notes"`
}

type ReportInput struct {
	PatientID string  `json:"patientId" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	Type      string  `json:"type" validate:"required"`
	Date      string  `json:"date"`
	FileURL   *string `json:"fileUrl"`
	Notes     *string `json:"notes"`
}

// Records belong to their patient; any doctor or admin may read them.
var (
	prescriptionPolicy = auth.Policy[*Prescription]{
		Owners: func(p *Prescription) auth.Owners { return auth.Owners{Patient: p.PatientID} },
	}
	reportPolicy = auth.Policy[*Report]{
		Owners: func(r *Report) auth.Owners { return auth.Owners{Patient: r.PatientID} },
	}
)
