package clinical

import "context"

// Repositories return db.ErrNotFound for unknown ids. List methods return
// newest first.
type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id string) (*Prescription, error)
	ListByPatient(ctx context.Context, patientID string) ([]*Prescription, error)
}

type ReportRepository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id string) (*Report, error)
	ListByPatient(ctx context.Context, patientID string) ([]*Report, error)
}
