package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healup/healup/internal/platform/db"
)

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepoPG{pool: pool}
}

func (r *paymentRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const paymentCols = `id, appointment_id, user_id, amount, status, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	var status string
	if err := row.Scan(&p.ID, &p.AppointmentID, &p.UserID, &p.Amount, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, db.NotFound(err)
	}
	p.Status = Status(status)
	return &p, nil
}

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payments (id, appointment_id, user_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.AppointmentID, p.UserID, p.Amount, string(p.Status), p.CreatedAt)
	return err
}

func (r *paymentRepoPG) GetByID(ctx context.Context, id string) (*Payment, error) {
	return scanPayment(r.conn(ctx).QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE id = $1`, id))
}

func (r *paymentRepoPG) SetStatus(ctx context.Context, id string, st Status, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE payments SET status = $2, updated_at = $3 WHERE id = $1`, id, string(st), at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}
