package clinical

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healup/healup/internal/platform/db"
)

// =========== Prescription Repository ===========

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

func (r *prescriptionRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const rxCols = `id, patient_id, doctor_id, diagnosis, date, medicines, file_url, notes, created_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	var meds []byte
	if err := row.Scan(&p.ID, &p.PatientID, &p.DoctorID, &p.Diagnosis, &p.Date, &meds,
		&p.FileURL, &p.Notes, &p.CreatedAt); err != nil {
		return nil, db.NotFound(err)
	}
	if err := json.Unmarshal(meds, &p.Medicines); err != nil {
		return nil, fmt.Errorf("decode medicines: %w", err)
	}
	return &p, nil
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Medicines == nil {
		p.Medicines = []Medicine{}
	}
	meds, err := json.Marshal(p.Medicines)
	if err != nil {
		return fmt.Errorf("encode medicines: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO prescriptions (id, patient_id, doctor_id, diagnosis, date, medicines, file_url, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.PatientID, p.DoctorID, p.Diagnosis, p.Date, meds, p.FileURL, p.Notes, p.CreatedAt)
	return err
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id string) (*Prescription, error) {
	return scanPrescription(r.conn(ctx).QueryRow(ctx, `SELECT `+rxCols+` FROM prescriptions WHERE id = $1`, id))
}

func (r *prescriptionRepoPG) ListByPatient(ctx context.Context, patientID string) ([]*Prescription, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+rxCols+` FROM prescriptions WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Prescription{}
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// =========== Report Repository ===========

type reportRepoPG struct{ pool *pgxpool.Pool }

func NewReportRepoPG(pool *pgxpool.Pool) ReportRepository {
	return &reportRepoPG{pool: pool}
}

func (r *reportRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const reportCols = `id, patient_id, doctor_id, name, type, date, file_url, notes, created_at`

func scanReport(row pgx.Row) (*Report, error) {
	var rp Report
	if err := row.Scan(&rp.ID, &rp.PatientID, &rp.DoctorID, &rp.Name, &rp.Type, &rp.Date,
		&rp.FileURL, &rp.Notes, &rp.CreatedAt); err != nil {
		return nil, db.NotFound(err)
	}
	return &rp, nil
}

func (r *reportRepoPG) Create(ctx context.Context, rp *Report) error {
	if rp.ID == "" {
		rp.ID = uuid.New().String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO reports (id, patient_id, doctor_id, name, type, date, file_url, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rp.ID, rp.PatientID, rp.DoctorID, rp.Name, rp.Type, rp.Date, rp.FileURL, rp.Notes, rp.CreatedAt)
	return err
}

func (r *reportRepoPG) GetByID(ctx context.Context, id string) (*Report, error) {
	return scanReport(r.conn(ctx).QueryRow(ctx, `SELECT `+reportCols+` FROM reports WHERE id = $1`, id))
}

func (r *reportRepoPG) ListByPatient(ctx context.Context, patientID string) ([]*Report, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+reportCols+` FROM reports WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Report{}
	for rows.Next() {
		rp, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rp)
	}
	return items, rows.Err()
}
