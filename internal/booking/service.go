package booking

import (
	"context"
	"log/slog"
	"net/http"
	"sort"

	"github.com/frahmantamala/salon-portal/internal/apiclient"
	"github.com/frahmantamala/salon-portal/internal/core/common/validation"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/appointment"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/catalog"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/contact"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/gallery"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/notification"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/review"
)

type ServiceAPI interface {
	Services(ctx context.Context) ([]catalog.Service, error)
	FeaturedServices(ctx context.Context) ([]catalog.Service, error)
	Service(ctx context.Context, id int64) (*catalog.Service, error)
	Categories(ctx context.Context) ([]catalog.Category, error)
	Gallery(ctx context.Context, featuredOnly bool) ([]gallery.Item, error)
	Appointments(ctx context.Context) ([]appointment.Appointment, error)
	BookAppointment(ctx context.Context, req appointment.CreateRequest) (*appointment.Appointment, error)
	Reviews(ctx context.Context) ([]review.Review, error)
	SubmitReview(ctx context.Context, req review.CreateRequest) (*review.Review, error)
	SendMessage(ctx context.Context, req contact.SendRequest) (*contact.Message, error)
	Notifications(ctx context.Context) (*NotificationList, error)
	MarkNotificationRead(ctx context.Context, id int64) (*notification.Notification, error)
	MarkAllNotificationsRead(ctx context.Context) error
}

// Service is the customer side of the portal. Every call is forwarded to the salon API
// with whatever credentials the context or the bound client carries.
type Service struct {
	services      *apiclient.Resource[catalog.Service]
	categories    *apiclient.Resource[catalog.Category]
	gallery       *apiclient.Resource[gallery.Item]
	appointments  *apiclient.Resource[appointment.Appointment]
	reviews       *apiclient.Resource[review.Review]
	contact       *apiclient.Resource[contact.Message]
	notifications *apiclient.Resource[notification.Notification]
	logger        *slog.Logger
}

func NewService(client *apiclient.Client, logger *slog.Logger) *Service {
	return &Service{
		services:      apiclient.NewResource[catalog.Service](client, "services"),
		categories:    apiclient.NewResource[catalog.Category](client, "service-categories"),
		gallery:       apiclient.NewResource[gallery.Item](client, "gallery"),
		appointments:  apiclient.NewResource[appointment.Appointment](client, "appointments"),
		reviews:       apiclient.NewResource[review.Review](client, "reviews"),
		contact:       apiclient.NewResource[contact.Message](client, "contact"),
		notifications: apiclient.NewResource[notification.Notification](client, "notifications"),
		logger:        logger,
	}
}

func (s *Service) Services(ctx context.Context) ([]catalog.Service, error) {
	return s.services.List(ctx, nil)
}

func (s *Service) FeaturedServices(ctx context.Context) ([]catalog.Service, error) {
	return s.services.ListAction(ctx, "featured", nil)
}

func (s *Service) Service(ctx context.Context, id int64) (*catalog.Service, error) {
	return s.services.Get(ctx, id)
}

// Categories returns the categories with their nested services, in display order.
func (s *Service) Categories(ctx context.Context) ([]catalog.Category, error) {
	items, err := s.categories.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DisplayOrder < items[j].DisplayOrder
	})
	return items, nil
}

func (s *Service) Gallery(ctx context.Context, featuredOnly bool) ([]gallery.Item, error) {
	if featuredOnly {
		return s.gallery.ListAction(ctx, "featured", nil)
	}
	return s.gallery.List(ctx, nil)
}

// Appointments lists the caller's appointments, earliest first.
func (s *Service) Appointments(ctx context.Context) ([]appointment.Appointment, error) {
	items, err := s.appointments.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ScheduledAt() < items[j].ScheduledAt()
	})
	return items, nil
}

func (s *Service) BookAppointment(ctx context.Context, req appointment.CreateRequest) (*appointment.Appointment, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	created, err := s.appointments.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment booked",
		"appointment_id", created.ID,
		"service_id", created.Service,
		"date", created.AppointmentDate)
	return created, nil
}

// Reviews returns approved reviews only; the API already filters, this guards older deployments.
func (s *Service) Reviews(ctx context.Context) ([]review.Review, error) {
	items, err := s.reviews.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	approved := items[:0]
	for _, r := range items {
		if r.IsApproved {
			approved = append(approved, r)
		}
	}
	return approved, nil
}

func (s *Service) SubmitReview(ctx context.Context, req review.CreateRequest) (*review.Review, error) {
	if err := validation.ValidateRating(req.Rating); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.reviews.Create(ctx, req)
}

func (s *Service) SendMessage(ctx context.Context, req contact.SendRequest) (*contact.Message, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.contact.Create(ctx, req)
}

// NotificationList is the notification panel: items plus the unread badge count.
type NotificationList struct {
	Items  []notification.Notification `json:"items"`
	Unread int                         `json:"unread"`
}

func (s *Service) Notifications(ctx context.Context) (*NotificationList, error) {
	items, err := s.notifications.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &NotificationList{Items: items, Unread: notification.UnreadCount(items)}, nil
}

func (s *Service) MarkNotificationRead(ctx context.Context, id int64) (*notification.Notification, error) {
	return s.notifications.Update(ctx, id, map[string]bool{"is_read": true})
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context) error {
	return s.notifications.CollectionAction(ctx, http.MethodPost, "mark_all_read", struct{}{}, nil)
}
