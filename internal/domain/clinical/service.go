package clinical

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

const dateLayout = "2006-01-02"

var (
	errMissingFields = apperr.Validation("Missing fields")
	errRxNotFound    = apperr.NotFound("Prescription not found")
	errReportMissing = apperr.NotFound("Report not found")
	errNoFile        = apperr.NotFound("No file available")
)

type Service struct {
	prescriptions PrescriptionRepository
	reports       ReportRepository
	logger        zerolog.Logger
	now           func() time.Time
}

func NewService(rx PrescriptionRepository, reports ReportRepository, logger zerolog.Logger) *Service {
	return &Service{
		prescriptions: rx,
		reports:       reports,
		logger:        logger,
		now:           db.Now,
	}
}

// -- Prescriptions --

// CreatePrescription records a prescription written by the calling doctor.
func (s *Service) CreatePrescription(ctx context.Context, p *auth.Principal, in PrescriptionInput) (*Prescription, error) {
	if err := auth.Check(p, auth.RoleDoctor); err != nil {
		return nil, err
	}
	if blank(in.PatientID, in.Diagnosis) || in.Medicines == nil {
		return nil, errMissingFields
	}

	now := s.now()
	rx := &Prescription{
		PatientID: in.PatientID,
		DoctorID:  p.UserID,
		Diagnosis: in.Diagnosis,
		Date:      dateOr(in.Date, now),
		Medicines: in.Medicines,
		FileURL:   in.FileURL,
		Notes:     in.Notes,
		CreatedAt: now,
	}
	if err := s.prescriptions.Create(ctx, rx); err != nil {
		return nil, fmt.Errorf("create prescription: %w", err)
	}
	s.logger.Info().Str("prescription_id", rx.ID).Str("patient_id", rx.PatientID).Msg("prescription created")
	return rx, nil
}

func (s *Service) GetPrescription(ctx context.Context, p *auth.Principal, id string) (*Prescription, error) {
	if err := auth.Check(p); err != nil {
		return nil, err
	}
	rx, err := s.prescriptions.GetByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errRxNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load prescription: %w", err)
	}
	if err := prescriptionPolicy.Authorize(p, rx); err != nil {
		return nil, err
	}
	return rx, nil
}

// PrescriptionFile returns the download URL of an accessible prescription.
func (s *Service) PrescriptionFile(ctx context.Context, p *auth.Principal, id string) (string, error) {
	rx, err := s.GetPrescription(ctx, p, id)
	if err != nil {
		return "", err
	}
	return fileURL(rx.FileURL)
}

func (s *Service) ListPrescriptions(ctx context.Context, p *auth.Principal, patientID string) ([]*Prescription, error) {
	if err := checkPatientScope(p, patientID); err != nil {
		return nil, err
	}
	return s.prescriptions.ListByPatient(ctx, patientID)
}

// -- Reports --

func (s *Service) CreateReport(ctx context.Context, p *auth.Principal, in ReportInput) (*Report, error) {
	if err := auth.Check(p, auth.RoleDoctor, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if blank(in.PatientID, in.Name, in.Type) {
		return nil, errMissingFields
	}

	now := s.now()
	r := &Report{
		PatientID: in.PatientID,
		DoctorID:  p.UserID,
		Name:      in.Name,
		Type:      in.Type,
		Date:      dateOr(in.Date, now),
		FileURL:   in.FileURL,
		Notes:     in.Notes,
		CreatedAt: now,
	}
	if err := s.reports.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	s.logger.Info().Str("report_id", r.ID).Str("patient_id", r.PatientID).Msg("report created")
	return r, nil
}

func (s *Service) GetReport(ctx context.Context, p *auth.Principal, id string) (*Report, error) {
	if err := auth.Check(p); err != nil {
		return nil, err
	}
	r, err := s.reports.GetByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errReportMissing
	}
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	if err := reportPolicy.Authorize(p, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) ReportFile(ctx context.Context, p *auth.Principal, id string) (string, error) {
	r, err := s.GetReport(ctx, p, id)
	if err != nil {
		return "", err
	}
	return fileURL(r.FileURL)
}

func (s *Service) ListReports(ctx context.Context, p *auth.Principal, patientID string) ([]*Report, error) {
	if err := checkPatientScope(p, patientID); err != nil {
		return nil, err
	}
	return s.reports.ListByPatient(ctx, patientID)
}

// checkPatientScope confines patients to their own records.
func checkPatientScope(p *auth.Principal, patientID string) error {
	if err := auth.Check(p); err != nil {
		return err
	}
	if p.Is(auth.RolePatient) && !p.Owns(patientID) {
		return apperr.Forbidden("")
	}
	return nil
}

func dateOr(date string, now time.Time) string {
	if strings.TrimSpace(date) == "" {
		return now.Format(dateLayout)
	}
	return date
}

func fileURL(u *string) (string, error) {
	if u == nil || *u == "" {
		return "", errNoFile
	}
	return *u, nil
}

func blank(fields ...string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return true
		}
	}
	return false
}
