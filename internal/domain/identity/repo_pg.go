package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healup/healup/internal/platform/auth"
	"github.com/healup/healup/internal/platform/db"
)

// ErrEmailTaken is returned by UserRepository.Create on a duplicate email.
var ErrEmailTaken = errors.New("email already registered")

// =========== User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const userCols = `id, name, email, password_hash, role, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		return nil, db.NotFound(err)
	}
	parsed, err := auth.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	u.Role = parsed
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role.String(), u.CreatedAt)
	if db.IsUniqueViolation(err, "users_email_key") {
		return ErrEmailTaken
	}
	return err
}

func (r *userRepoPG) GetByID(ctx context.Context, id string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE lower(email) = lower($1)`, email))
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const doctorCols = `id, user_id, name, specialty, experience, rating, reviews, image,
	bio, education, available_slots, consultation_fee, created_at`

func scanDoctor(row pgx.Row) (*DoctorProfile, error) {
	var d DoctorProfile
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Specialty, &d.Experience, &d.Rating,
		&d.Reviews, &d.Image, &d.Bio, &d.Education, &d.AvailableSlots, &d.ConsultationFee, &d.CreatedAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *DoctorProfile) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctors (id, user_id, name, specialty, experience, rating, reviews, image,
			bio, education, available_slots, consultation_fee, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		d.ID, d.UserID, d.Name, d.Specialty, d.Experience, d.Rating, d.Reviews, d.Image,
		d.Bio, d.Education, nonNil(d.AvailableSlots), d.ConsultationFee, d.CreatedAt)
	return err
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id string) (*DoctorProfile, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
}

func (r *doctorRepoPG) GetByUserID(ctx context.Context, userID string) (*DoctorProfile, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE user_id = $1`, userID))
}

func (r *doctorRepoPG) List(ctx context.Context, f DoctorFilter) ([]*DoctorProfile, error) {
	query := `SELECT ` + doctorCols + ` FROM doctors WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Specialty != "" {
		query += fmt.Sprintf(` AND specialty = $%d`, idx)
		args = append(args, f.Specialty)
		idx++
	}
	if f.Query != "" {
		query += fmt.Sprintf(` AND (name ILIKE $%d OR specialty ILIKE $%d)`, idx, idx)
		args = append(args, containsPattern(f.Query))
		idx++
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*DoctorProfile{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *doctorRepoPG) Update(ctx context.Context, d *DoctorProfile) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET name=$2, specialty=$3, experience=$4, consultation_fee=$5,
			image=$6, bio=$7, education=$8
		WHERE id = $1`,
		d.ID, d.Name, d.Specialty, d.Experience, d.ConsultationFee, d.Image, d.Bio, d.Education)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const patientCols = `id, user_id, name, email, phone, age, gender, blood_group, address,
	medical_history, emergency_contact, created_at`

func scanPatient(row pgx.Row) (*PatientProfile, error) {
	var p PatientProfile
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.Phone, &p.Age, &p.Gender,
		&p.BloodGroup, &p.Address, &p.MedicalHistory, &p.EmergencyContact, &p.CreatedAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *PatientProfile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, user_id, name, email, phone, age, gender, blood_group,
			address, medical_history, emergency_contact, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.UserID, p.Name, p.Email, p.Phone, p.Age, p.Gender, p.BloodGroup,
		p.Address, p.MedicalHistory, p.EmergencyContact, p.CreatedAt)
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id string) (*PatientProfile, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByUserID(ctx context.Context, userID string) (*PatientProfile, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE user_id = $1`, userID))
}

func (r *patientRepoPG) List(ctx context.Context) ([]*PatientProfile, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patients ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*PatientProfile{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *patientRepoPG) Update(ctx context.Context, p *PatientProfile) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET name=$2, email=$3, phone=$4, age=$5, gender=$6, blood_group=$7,
			address=$8, medical_history=$9, emergency_contact=$10
		WHERE id = $1`,
		p.ID, p.Name, p.Email, p.Phone, p.Age, p.Gender, p.BloodGroup,
		p.Address, p.MedicalHistory, p.EmergencyContact)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// containsPattern builds an ILIKE pattern matching q literally anywhere.
func containsPattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}
