package identity

import "context"

// Repositories return db.ErrNotFound when no row matches.

type UserRepository interface {
	// Create fails with ErrEmailTaken when the email is registered,
	// compared case-insensitively.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

type DoctorRepository interface {
	Create(ctx context.Context, d *DoctorProfile) error
	GetByID(ctx context.Context, id string) (*DoctorProfile, error)
	GetByUserID(ctx context.Context, userID string) (*DoctorProfile, error)
	List(ctx context.Context, f DoctorFilter) ([]*DoctorProfile, error)
	Update(ctx context.Context, d *DoctorProfile) error
}

type PatientRepository interface {
	Create(ctx context.Context, p *PatientProfile) error
	GetByID(ctx context.Context, id string) (*PatientProfile, error)
	GetByUserID(ctx context.Context, userID string) (*PatientProfile, error)
	List(ctx context.Context) ([]*PatientProfile, error)
	Update(ctx context.Context, p *PatientProfile) error
}
