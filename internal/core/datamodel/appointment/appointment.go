package appointment

import (
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/money"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending             PaymentStatus = "pending"
	PaymentInitiated           PaymentStatus = "initiated"
	PaymentCompleted           PaymentStatus = "completed"
	PaymentFailed              PaymentStatus = "failed"
	PaymentCancelled           PaymentStatus = "cancelled"
	PaymentPendingVerification PaymentStatus = "pending_verification"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentInitiated, PaymentCompleted, PaymentFailed, PaymentCancelled, PaymentPendingVerification:
		return true
	}
	return false
}

// Terminal reports whether polling for this status can stop.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed || s == PaymentCancelled
}

type Appointment struct {
	ID                 int64         `json:"id"`
	User               *int64        `json:"user,omitempty"`
	CustomerName       string        `json:"customer_name"`
	CustomerEmail      string        `json:"customer_email"`
	CustomerPhone      string        `json:"customer_phone"`
	Service            int64         `json:"service"`
	ServiceName        string        `json:"service_name,omitempty"`
	ServicePrice       money.Amount  `json:"service_price,omitempty"`
	AppointmentDate    string        `json:"appointment_date"`
	AppointmentTime    string        `json:"appointment_time"`
	Notes              string        `json:"notes,omitempty"`
	Status             Status        `json:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	PaymentPhone       string        `json:"payment_phone,omitempty"`
	MpesaTransactionID string        `json:"mpesa_transaction_id,omitempty"`
	AmountPaid         money.Amount  `json:"amount_paid"`
	PaymentDate        *string       `json:"payment_date,omitempty"`
	CreatedAt          string        `json:"created_at,omitempty"`
}

// ScheduledAt returns a sortable "date time" key.
func (a Appointment) ScheduledAt() string {
	return a.AppointmentDate + " " + a.AppointmentTime
}

type CreateRequest struct {
	CustomerName    string `json:"customer_name" validate:"required"`
	CustomerEmail   string `json:"customer_email" validate:"required,email"`
	CustomerPhone   string `json:"customer_phone" validate:"required"`
	Service         int64  `json:"service" validate:"required,gt=0"`
	AppointmentDate string `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	AppointmentTime string `json:"appointment_time" validate:"required"`
	Notes           string `json:"notes,omitempty"`
}

// PaymentReview is the admin decision on a manually submitted receipt.
type PaymentReview struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
	Reason string `json:"reason,omitempty"`
}
