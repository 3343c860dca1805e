package billing

import (
	"time"

	"github.com/healup/healup/pkg/document"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Settled reports whether s is an outcome a confirmation may record.
func (s Status) Settled() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Payment records a patient's intent to pay for one appointment. No gateway
// is involved; confirmation is reported back by the client.
type Payment struct {
	ID            string     `json:"id"`
	AppointmentID string     `json:"appointmentId"`
	UserID        string     `json:"userId"`
	Amount        float64    `json:"amount"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

func (p Payment) MarshalJSON() ([]byte, error) {
	type plain Payment
	return document.MarshalWithAlias(plain(p), p.ID)
}

type OrderInput struct {
	AppointmentID string  `json:"appointmentId" validate:"required"`
	Amount        float64 `json:"amount" validate:"required"`
}

type ConfirmInput struct {
	OrderID string `json:"orderId" validate:"required"`
	Status  Status `json:"status" validate:"required"`
}

// Order is the answer to an opened payment order.
type Order struct {
	OrderID string  `json:"orderId"`
	Amount  float64 `json:"amount"`
}
