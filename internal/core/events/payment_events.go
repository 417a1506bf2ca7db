package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentStateChanged = "payment.session.state_changed"
	EventTypeDashboardRefreshed  = "dashboard.refreshed"
)

type PaymentStateChangedEvent struct {
	BaseEvent
	SessionID     string `json:"session_id"`
	AppointmentID int64  `json:"appointment_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	Attempts      int    `json:"attempts"`
	Message       string `json:"message,omitempty"`
	Version       uint64 `json:"version"`
}

func NewPaymentStateChangedEvent(sessionID string, appointmentID int64, from, to string, attempts int, message string, version uint64) *PaymentStateChangedEvent {
	return &PaymentStateChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentStateChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"session_id":     sessionID,
				"appointment_id": appointmentID,
				"from":           from,
				"to":             to,
				"attempts":       attempts,
				"message":        message,
				"version":        version,
			},
		},
		SessionID:     sessionID,
		AppointmentID: appointmentID,
		From:          from,
		To:            to,
		Attempts:      attempts,
		Message:       message,
		Version:       version,
	}
}

type DashboardRefreshedEvent struct {
	BaseEvent
	Sequence  uint64 `json:"sequence"`
	Duration  string `json:"duration"`
	Succeeded bool   `json:"succeeded"`
}

func NewDashboardRefreshedEvent(sequence uint64, took time.Duration, succeeded bool) *DashboardRefreshedEvent {
	return &DashboardRefreshedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeDashboardRefreshed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"sequence":  sequence,
				"duration":  took.String(),
				"succeeded": succeeded,
			},
		},
		Sequence:  sequence,
		Duration:  took.String(),
		Succeeded: succeeded,
	}
}
