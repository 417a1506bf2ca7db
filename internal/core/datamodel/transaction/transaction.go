package transaction

import (
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/money"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusInitiated Status = "initiated"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInitiated, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

type Transaction struct {
	ID                     int64        `json:"id"`
	User                   *int64       `json:"user,omitempty"`
	Username               string       `json:"username,omitempty"`
	Appointment            *int64       `json:"appointment,omitempty"`
	AppointmentID          *int64       `json:"appointment_id,omitempty"`
	MpesaTransactionID     string       `json:"mpesa_transaction_id,omitempty"`
	MpesaCheckoutRequestID string       `json:"mpesa_checkout_request_id,omitempty"`
	PhoneNumber            string       `json:"phone_number"`
	Amount                 money.Amount `json:"amount"`
	Status                 Status       `json:"status"`
	ResultCode             string       `json:"result_code,omitempty"`
	ResultDescription      string       `json:"result_description,omitempty"`
	InitiatedAt            string       `json:"initiated_at,omitempty"`
	CompletedAt            *string      `json:"completed_at,omitempty"`
	AccountReference       string       `json:"account_reference,omitempty"`
	TransactionDescription string       `json:"transaction_description,omitempty"`
}

type Stats struct {
	Total       int          `json:"total"`
	Completed   int          `json:"completed"`
	Pending     int          `json:"pending"`
	Failed      int          `json:"failed"`
	TotalAmount money.Amount `json:"total_amount"`
}

// Summarize counts initiated as pending and cancelled as failed; only completed amounts sum.
func Summarize(txs []Transaction) Stats {
	stats := Stats{Total: len(txs)}
	for _, tx := range txs {
		switch tx.Status {
		case StatusCompleted:
			stats.Completed++
			stats.TotalAmount += tx.Amount
		case StatusPending, StatusInitiated:
			stats.Pending++
		case StatusFailed, StatusCancelled:
			stats.Failed++
		}
	}
	return stats
}
