package dashboard

import (
	"fmt"
	"sort"

	"github.com/frahmantamala/salon-portal/internal/core/datamodel/appointment"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/catalog"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/gallery"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/money"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/transaction"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/user"
)

const RecentActivityLimit = 5

type Activity struct {
	AppointmentID int64              `json:"appointment_id"`
	Description   string             `json:"description"`
	Date          string             `json:"date"`
	Time          string             `json:"time"`
	Status        appointment.Status `json:"status"`
}

type Stats struct {
	TotalAppointments   int          `json:"total_appointments"`
	PendingAppointments int          `json:"pending_appointments"`
	TotalRevenue        money.Amount `json:"total_revenue"`
	TotalUsers          int          `json:"total_users"`
	TotalServices       int          `json:"total_services"`
	TotalGalleryItems   int          `json:"total_gallery_items"`
	RecentActivity      []Activity   `json:"recent_activity"`
}

// Aggregate derives the dashboard figures. Revenue is the amount paid on completed
// appointments plus the amount of completed transactions.
func Aggregate(
	appointments []appointment.Appointment,
	users []user.User,
	services []catalog.Service,
	galleryItems []gallery.Item,
	transactions []transaction.Transaction,
) Stats {
	stats := Stats{
		TotalAppointments: len(appointments),
		TotalUsers:        len(users),
		TotalServices:     len(services),
		TotalGalleryItems: len(galleryItems),
	}

	for _, a := range appointments {
		if a.Status == appointment.StatusPending {
			stats.PendingAppointments++
		}
		if a.Status == appointment.StatusCompleted {
			stats.TotalRevenue += a.AmountPaid
		}
	}
	for _, tx := range transactions {
		if tx.Status == transaction.StatusCompleted {
			stats.TotalRevenue += tx.Amount
		}
	}

	stats.RecentActivity = recentActivity(appointments, RecentActivityLimit)
	return stats
}

func recentActivity(appointments []appointment.Appointment, limit int) []Activity {
	sorted := make([]appointment.Appointment, len(appointments))
	copy(sorted, appointments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AppointmentDate > sorted[j].AppointmentDate
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	activity := make([]Activity, 0, len(sorted))
	for _, a := range sorted {
		activity = append(activity, Activity{
			AppointmentID: a.ID,
			Description:   describe(a),
			Date:          a.AppointmentDate,
			Time:          a.AppointmentTime,
			Status:        a.Status,
		})
	}
	return activity
}

func describe(a appointment.Appointment) string {
	service := a.ServiceName
	if service == "" {
		service = "Service"
	}
	customer := a.CustomerName
	if customer == "" {
		customer = "Customer"
	}
	return fmt.Sprintf("Appointment: %s - %s (%s)", service, customer, a.Status)
}
