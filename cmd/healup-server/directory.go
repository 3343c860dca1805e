package main

import (
	"context"
	"errors"

	"github.com/healup/healup/internal/domain/identity"
	"github.com/healup/healup/internal/domain/scheduling"
	"github.com/healup/healup/pkg/apperr"
)

// doctorSource is the part of identity.Service the directory reads.
type doctorSource interface {
	GetDoctor(ctx context.Context, id string) (*identity.DoctorProfile, error)
	DoctorForUser(ctx context.Context, userID string) (*identity.DoctorProfile, error)
	PatientName(ctx context.Context, id string) (string, error)
}

// directory adapts the identity service to scheduling.Directory, avoiding an
// import from scheduling into identity.
type directory struct {
	src doctorSource
}

func newDirectory(src doctorSource) *directory { return &directory{src: src} }

func (d *directory) Doctor(ctx context.Context, id string) (*scheduling.DoctorCard, error) {
	return card(d.src.GetDoctor(ctx, id))
}

func (d *directory) DoctorForUser(ctx context.Context, userID string) (*scheduling.DoctorCard, error) {
	return card(d.src.DoctorForUser(ctx, userID))
}

func (d *directory) PatientName(ctx context.Context, id string) (string, error) {
	return d.src.PatientName(ctx, id)
}

func card(p *identity.DoctorProfile, err error) (*scheduling.DoctorCard, error) {
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &scheduling.DoctorCard{
		ID:             p.ID,
		UserID:         p.UserID,
		Name:           p.Name,
		Specialty:      p.Specialty,
		AvailableSlots: p.AvailableSlots,
	}, nil
}

var _ scheduling.Directory = (*directory)(nil)
