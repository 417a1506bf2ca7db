package cmd

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/salon-portal/internal/core/events"
)

// subscribeEventLog writes payment transitions and dashboard refreshes to the log. The
// returned func removes both subscriptions.
func subscribeEventLog(bus *events.EventBus, lg *slog.Logger) func() {
	offPayment := bus.Subscribe(events.EventTypePaymentStateChanged, func(ctx context.Context, event events.Event) error {
		e, ok := event.(*events.PaymentStateChangedEvent)
		if !ok {
			return nil
		}
		lg.Info("payment state changed",
			"event_id", e.EventID(),
			"session_id", e.SessionID,
			"appointment_id", e.AppointmentID,
			"from", e.From,
			"to", e.To,
			"attempts", e.Attempts)
		return nil
	})

	offDashboard := bus.Subscribe(events.EventTypeDashboardRefreshed, func(ctx context.Context, event events.Event) error {
		e, ok := event.(*events.DashboardRefreshedEvent)
		if !ok {
			return nil
		}
		lg.Debug("dashboard refreshed",
			"sequence", e.Sequence,
			"duration", e.Duration,
			"succeeded", e.Succeeded)
		return nil
	})

	return func() {
		offPayment()
		offDashboard()
	}
}
