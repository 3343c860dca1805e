package identity

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

type Service struct {
	users    UserRepository
	doctors  DoctorRepository
	patients PatientRepository
	tokens   *auth.TokenManager
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(users UserRepository, doctors DoctorRepository, patients PatientRepository,
	tokens *auth.TokenManager, logger zerolog.Logger) *Service {
	return &Service{
		users:    users,
		doctors:  doctors,
		patients: patients,
		tokens:   tokens,
		logger:   logger,
		now:      db.Now,
	}
}

// -- Accounts --

type SignupInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, apperr.Validation("Missing fields")
	}
	role := auth.RolePatient
	if in.Role != "" {
		r, err := auth.ParseRole(in.Role)
		if err != nil {
			return nil, apperr.Validation("Invalid role")
		}
		role = r
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperr.Validation("Email already registered")
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, apperr.Validation("Email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.createProfile(ctx, u)

	return s.session(u)
}

// createProfile is best-effort: a failure is logged and signup still
// succeeds, leaving an account without a profile.
func (s *Service) createProfile(ctx context.Context, u *User) {
	var (
		profileID string
		err       error
	)
	switch u.Role {
	case auth.RoleDoctor:
		d := newDoctorProfile(u, u.CreatedAt)
		err = s.doctors.Create(ctx, d)
		profileID = d.ID
	case auth.RolePatient:
		p := newPatientProfile(u, u.CreatedAt)
		err = s.patients.Create(ctx, p)
		profileID = p.ID
	case auth.RoleAdmin:
		return
	}

	if err != nil {
		s.logger.Warn().Err(err).
			Str("user_id", u.ID).
			Str("role", u.Role.String()).
			Bool("profile_created", false).
			Msg("signup profile creation failed")
		return
	}
	s.logger.Info().
		Str("user_id", u.ID).
		Str("role", u.Role.String()).
		Str("profile_id", profileID).
		Bool("profile_created", true).
		Msg("signup profile created")
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("Missing email or password")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, &apperr.Error{Kind: apperr.KindAuthentication, Message: "Invalid credentials"}
		}
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, &apperr.Error{Kind: apperr.KindAuthentication, Message: "Invalid credentials"}
	}
	return s.session(u)
}

func (s *Service) session(u *User) (*Session, error) {
	tok, err := s.tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	return &Session{User: u.Summary(), Token: tok}, nil
}

func (s *Service) Me(ctx context.Context, p *auth.Principal) (*Me, error) {
	if err := auth.Check(p); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.Unauthenticated()
		}
		return nil, err
	}
	me := &Me{User: u.Summary()}

	if d, err := s.doctors.GetByUserID(ctx, u.ID); err == nil {
		me.DoctorProfile = d
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	if pp, err := s.patients.GetByUserID(ctx, u.ID); err == nil {
		me.PatientProfile = pp
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	return me, nil
}

// LoadPrincipal resolves a token subject to the current account. A deleted
// account is an error, which leaves the request unauthenticated.
func (s *Service) LoadPrincipal(ctx context.Context, userID string) (*auth.Principal, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := &auth.Principal{UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}

	switch u.Role {
	case auth.RoleDoctor:
		if d, err := s.doctors.GetByUserID(ctx, u.ID); err == nil {
			p.ProfileID = d.ID
		} else if !errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
	case auth.RolePatient:
		if pp, err := s.patients.GetByUserID(ctx, u.ID); err == nil {
			p.ProfileID = pp.ID
		} else if !errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
	case auth.RoleAdmin:
	}
	return p, nil
}

var _ auth.PrincipalLookup = (*Service)(nil)

// -- Doctors --

func (s *Service) ListDoctors(ctx context.Context, f DoctorFilter) ([]*DoctorProfile, error) {
	if strings.EqualFold(f.Specialty, "all") {
		f.Specialty = ""
	}
	f.Query = strings.TrimSpace(f.Query)
	return s.doctors.List(ctx, f)
}

func (s *Service) GetDoctor(ctx context.Context, id string) (*DoctorProfile, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("Doctor not found")
	}
	return d, err
}

// DoctorForUser returns the doctor profile owned by userID.
func (s *Service) DoctorForUser(ctx context.Context, userID string) (*DoctorProfile, error) {
	d, err := s.doctors.GetByUserID(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("Doctor profile not found")
	}
	return d, err
}

func (s *Service) MyDoctorProfile(ctx context.Context, p *auth.Principal) (*DoctorProfile, error) {
	if err := auth.Check(p, auth.RoleDoctor); err != nil {
		return nil, err
	}
	return s.DoctorForUser(ctx, p.UserID)
}

func (s *Service) UpdateMyDoctorProfile(ctx context.Context, p *auth.Principal, upd DoctorUpdate) (*DoctorProfile, error) {
	if err := auth.Check(p, auth.RoleDoctor); err != nil {
		return nil, err
	}
	if upd.Empty() {
		return nil, apperr.Validation("No valid fields to update")
	}
	d, err := s.DoctorForUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	upd.Apply(d)
	if err := s.doctors.Update(ctx, d); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.NotFound("Doctor profile not found")
		}
		return nil, fmt.Errorf("update doctor: %w", err)
	}
	return d, nil
}

// -- Patients --

var patientPolicy = auth.Policy[*PatientProfile]{
	Owners: func(p *PatientProfile) auth.Owners {
		return auth.Owners{Patient: p.UserID}
	},
}

func (s *Service) ListPatients(ctx context.Context, p *auth.Principal) ([]*PatientProfile, error) {
	if err := auth.Check(p, auth.RoleDoctor, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return s.patients.List(ctx)
}

func (s *Service) GetPatient(ctx context.Context, p *auth.Principal, id string) (*PatientProfile, error) {
	if err := auth.Check(p); err != nil {
		return nil, err
	}
	pp, err := s.patients.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.NotFound("Patient not found")
		}
		return nil, err
	}
	if err := patientPolicy.Authorize(p, pp); err != nil {
		return nil, err
	}
	return pp, nil
}

func (s *Service) UpdatePatient(ctx context.Context, p *auth.Principal, id string, upd PatientUpdate) (*PatientProfile, error) {
	pp, err := s.GetPatient(ctx, p, id)
	if err != nil {
		return nil, err
	}
	upd.Apply(pp)
	if err := s.patients.Update(ctx, pp); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.NotFound("Patient not found")
		}
		return nil, fmt.Errorf("update patient: %w", err)
	}
	return pp, nil
}

// PatientName returns the display name for a patient id, which may be
// either an account id or a patient profile id. Empty when neither exists.
func (s *Service) PatientName(ctx context.Context, id string) (string, error) {
	u, err := s.users.GetByID(ctx, id)
	if err == nil {
		return u.Name, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return "", err
	}
	pp, err := s.patients.GetByID(ctx, id)
	if err == nil {
		return pp.Name, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return "", err
	}
	return "", nil
}
