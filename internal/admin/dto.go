package admin

import (
	"strings"

	"github.com/frahmantamala/salon-portal/internal/core/datamodel/appointment"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/transaction"
)

// AppointmentFilter narrows the appointment list. Empty fields match everything.
type AppointmentFilter struct {
	Status        appointment.Status
	PaymentStatus appointment.PaymentStatus
	Search        string
}

func (f AppointmentFilter) Match(a appointment.Appointment) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.PaymentStatus != "" && a.PaymentStatus != f.PaymentStatus {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		return strings.Contains(strings.ToLower(a.CustomerName), term) ||
			strings.Contains(strings.ToLower(a.CustomerEmail), term) ||
			strings.Contains(strings.ToLower(a.ServiceName), term)
	}
	return true
}

type StatusUpdate struct {
	Status string `json:"status" validate:"required"`
}

type appointmentPatch struct {
	Status        appointment.Status        `json:"status"`
	PaymentStatus appointment.PaymentStatus `json:"payment_status,omitempty"`
}

type transactionPatch struct {
	Status      transaction.Status `json:"status"`
	CompletedAt string             `json:"completed_at,omitempty"`
}

// TransactionList is the transactions screen: filtered rows and stats over all rows.
type TransactionList struct {
	Items []transaction.Transaction `json:"items"`
	Stats transaction.Stats         `json:"stats"`
}

// PaymentReviewResult is the API's answer to an approve/reject decision.
type PaymentReviewResult struct {
	Success       bool                      `json:"success"`
	Message       string                    `json:"message,omitempty"`
	Error         string                    `json:"error,omitempty"`
	PaymentStatus appointment.PaymentStatus `json:"payment_status,omitempty"`
}
