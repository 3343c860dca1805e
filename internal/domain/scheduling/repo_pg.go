package scheduling

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healup/healup/internal/platform/db"
)

// activeSlotIndex is the partial unique index that keeps one live booking
// per (doctor_id, date, time).
const activeSlotIndex = "appointments_active_slot_idx"

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const apptCols = `id, patient_id, patient_name, doctor_id, doctor_name, specialty,
	date, time, type, notes, status, payment_id, created_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.DoctorID, &a.DoctorName, &a.Specialty,
		&a.Date, &a.Time, &a.Type, &a.Notes, &status, &a.PaymentID, &a.CreatedAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	a.Status = Status(status)
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, patient_id, patient_name, doctor_id, doctor_name, specialty,
			date, time, type, notes, status, payment_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		a.ID, a.PatientID, a.PatientName, a.DoctorID, a.DoctorName, a.Specialty,
		a.Date, a.Time, a.Type, a.Notes, string(a.Status), a.PaymentID, a.CreatedAt)
	if db.IsUniqueViolation(err, activeSlotIndex) {
		return ErrSlotTaken
	}
	return err
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id string) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *appointmentRepoPG) List(ctx context.Context, f AppointmentFilter) ([]*Appointment, error) {
	query := `SELECT ` + apptCols + ` FROM appointments
		WHERE ($1::text = '' OR patient_id = $1) AND ($2::text = '' OR doctor_id = $2)
		ORDER BY date, time, created_at`
	rows, err := r.conn(ctx).Query(ctx, query, f.PatientID, f.DoctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) FindActive(ctx context.Context, doctorID, date, time string) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `
		SELECT `+apptCols+` FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND time = $3 AND status <> 'cancelled'
		LIMIT 1`, doctorID, date, time))
}

func (r *appointmentRepoPG) SetStatus(ctx context.Context, id string, status Status) error {
	return r.update(ctx, `UPDATE appointments SET status = $2 WHERE id = $1`, id, string(status))
}

func (r *appointmentRepoPG) Confirm(ctx context.Context, id, paymentID string) error {
	return r.update(ctx, `UPDATE appointments SET status = 'confirmed', payment_id = $2 WHERE id = $1`, id, paymentID)
}

// update runs a single-row UPDATE. Reviving a cancelled appointment whose
// slot has since been rebooked trips the active-slot index.
func (r *appointmentRepoPG) update(ctx context.Context, sql string, args ...interface{}) error {
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if db.IsUniqueViolation(err, activeSlotIndex) {
		return ErrSlotTaken
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// =========== Availability Repository ===========

type availabilityRepoPG struct{ pool *pgxpool.Pool }

func NewAvailabilityRepoPG(pool *pgxpool.Pool) AvailabilityRepository {
	return &availabilityRepoPG{pool: pool}
}

func (r *availabilityRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const availCols = `id, doctor_id, date, slots`

func scanAvailability(row pgx.Row) (*Availability, error) {
	var a Availability
	if err := row.Scan(&a.ID, &a.DoctorID, &a.Date, &a.Slots); err != nil {
		return nil, db.NotFound(err)
	}
	return &a, nil
}

func (r *availabilityRepoPG) ListByDoctor(ctx context.Context, doctorID string) ([]*Availability, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+availCols+` FROM availability WHERE doctor_id = $1 ORDER BY date`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Availability{}
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *availabilityRepoPG) Get(ctx context.Context, doctorID, date string) (*Availability, error) {
	return scanAvailability(r.conn(ctx).QueryRow(ctx,
		`SELECT `+availCols+` FROM availability WHERE doctor_id = $1 AND date = $2`, doctorID, date))
}

func (r *availabilityRepoPG) Upsert(ctx context.Context, a *Availability) error {
	slots := a.Slots
	if slots == nil {
		slots = []string{}
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO availability (id, doctor_id, date, slots)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (doctor_id, date) DO UPDATE SET slots = EXCLUDED.slots
		RETURNING id`,
		uuid.New().String(), a.DoctorID, a.Date, slots).Scan(&a.ID)
}
