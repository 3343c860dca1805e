package billing

import (
	"context"
	"time"
)

// PaymentRepository returns db.ErrNotFound for unknown ids.
type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	SetStatus(ctx context.Context, id string, st Status, at time.Time) error
}
