package identity

import (
	"encoding/json"
	"time"

	"github.com/healup/healup/internal/platform/auth"
	"github.com/healup/healup/pkg/document"
)

// User is an account in the identity store. PasswordHash never leaves the
// service.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserSummary is the public shape of a User.
type UserSummary struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  auth.Role `json:"role"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func (s UserSummary) MarshalJSON() ([]byte, error) {
	type plain UserSummary
	return document.MarshalWithAlias(plain(s), s.ID)
}

type DoctorProfile struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Name            string    `json:"name"`
	Specialty       string    `json:"specialty"`
	Experience      int       `json:"experience"`
	Rating          float64   `json:"rating"`
	Reviews         int       `json:"reviews"`
	Image           string    `json:"image"`
	Bio             string    `json:"bio"`
	Education       string    `json:"education"`
	AvailableSlots  []string  `json:"availableSlots"`
	ConsultationFee float64   `json:"consultationFee"`
	CreatedAt       time.Time `json:"created_at"`
}

func (d DoctorProfile) MarshalJSON() ([]byte, error) {
	type plain DoctorProfile
	if d.AvailableSlots == nil {
		d.AvailableSlots = []string{}
	}
	return document.MarshalWithAlias(plain(d), d.ID)
}

// Defaults applied to a doctor profile created at signup.
const (
	DefaultSpecialty       = "General Physician"
	DefaultDoctorImage     = "https://images.unsplash.com/photo-1535916707207-35f97e715e1b?w=400"
	DefaultDoctorBio       = "Dedicated to providing comprehensive healthcare."
	DefaultEducation       = "MBBS"
	DefaultRating          = 5.0
	DefaultConsultationFee = 500
)

// DefaultSlots returns a fresh copy of the weekday slot template.
func DefaultSlots() []string {
	return []string{"09:00", "10:00", "11:00", "14:00", "15:00"}
}

func newDoctorProfile(u *User, now time.Time) *DoctorProfile {
	return &DoctorProfile{
		UserID:          u.ID,
		Name:            u.Name,
		Specialty:       DefaultSpecialty,
		Rating:          DefaultRating,
		Image:           DefaultDoctorImage,
		Bio:             DefaultDoctorBio,
		Education:       DefaultEducation,
		AvailableSlots:  DefaultSlots(),
		ConsultationFee: DefaultConsultationFee,
		CreatedAt:       now,
	}
}

// DoctorUpdate is the allow-listed set of fields a doctor may change on
// their own profile. Nil fields are left alone.
type DoctorUpdate struct {
	Name            *string  `json:"name"`
	Specialty       *string  `json:"specialty"`
	Experience      *int     `json:"experience"`
	ConsultationFee *float64 `json:"consultationFee"`
	Image           *string  `json:"image"`
	Bio             *string  `json:"bio"`
	Education       *string  `json:"education"`
}

func (u DoctorUpdate) Empty() bool {
	return u.Name == nil && u.Specialty == nil && u.Experience == nil &&
		u.ConsultationFee == nil && u.Image == nil && u.Bio == nil && u.Education == nil
}

func (u DoctorUpdate) Apply(d *DoctorProfile) {
	if u.Name != nil {
		d.Name = *u.Name
	}
	if u.Specialty != nil {
		d.Specialty = *u.Specialty
	}
	if u.Experience != nil {
		d.Experience = *u.Experience
	}
	if u.ConsultationFee != nil {
		d.ConsultationFee = *u.ConsultationFee
	}
	if u.Image != nil {
		d.Image = *u.Image
	}
	if u.Bio != nil {
		d.Bio = *u.Bio
	}
	if u.Education != nil {
		d.Education = *u.Education
	}
}

type PatientProfile struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Age              *int      `json:"age"`
	Gender           string    `json:"gender"`
	BloodGroup       string    `json:"bloodGroup"`
	Address          string    `json:"address"`
	MedicalHistory   string    `json:"medicalHistory"`
	EmergencyContact string    `json:"emergencyContact"`
	CreatedAt        time.Time `json:"created_at"`
}

func (p PatientProfile) MarshalJSON() ([]byte, error) {
	type plain PatientProfile
	return document.MarshalWithAlias(plain(p), p.ID)
}

func newPatientProfile(u *User, now time.Time) *PatientProfile {
	return &PatientProfile{
		UserID:    u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: now,
	}
}

// PatientUpdate is the allow-listed set of patient profile fields.
type PatientUpdate struct {
	Name             *string `json:"name"`
	Email            *string `json:"email"`
	Phone            *string `json:"phone"`
	Age              *int    `json:"age"`
	Gender           *string `json:"gender"`
	BloodGroup       *string `json:"bloodGroup"`
	Address          *string `json:"address"`
	MedicalHistory   *string `json:"medicalHistory"`
	EmergencyContact *string `json:"emergencyContact"`
}

func (u PatientUpdate) Apply(p *PatientProfile) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.Name, u.Name)
	set(&p.Email, u.Email)
	set(&p.Phone, u.Phone)
	set(&p.Gender, u.Gender)
	set(&p.BloodGroup, u.BloodGroup)
	set(&p.Address, u.Address)
	set(&p.MedicalHistory, u.MedicalHistory)
	set(&p.EmergencyContact, u.EmergencyContact)
	if u.Age != nil {
		age := *u.Age
		p.Age = &age
	}
}

// DoctorFilter narrows the doctor directory. Specialty is an exact match;
// Query is a case-insensitive substring of name or specialty.
type DoctorFilter struct {
	Specialty string
	Query     string
}

// Session is what signup and login hand back to the client.
type Session struct {
	User  UserSummary
	Token string
}

// Me is the caller's account with whichever profiles exist.
type Me struct {
	User           UserSummary
	DoctorProfile  *DoctorProfile
	PatientProfile *PatientProfile
}

var _ json.Marshaler = DoctorProfile{}
