package dashboard

import (
	"context"

	"github.com/frahmantamala/salon-portal/internal/apiclient"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/appointment"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/catalog"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/gallery"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/transaction"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/user"
)

// Source provides the five collections the dashboard aggregates.
type Source interface {
	Appointments(ctx context.Context) ([]appointment.Appointment, error)
	Users(ctx context.Context) ([]user.User, error)
	Services(ctx context.Context) ([]catalog.Service, error)
	Gallery(ctx context.Context) ([]gallery.Item, error)
	Transactions(ctx context.Context) ([]transaction.Transaction, error)
}

type APISource struct {
	client   *apiclient.Client
	pageSize int
}

func NewAPISource(client *apiclient.Client, pageSize int) *APISource {
	return &APISource{client: client, pageSize: pageSize}
}

func (s *APISource) Appointments(ctx context.Context) ([]appointment.Appointment, error) {
	return apiclient.List[appointment.Appointment](ctx, s.client, "/appointments/", apiclient.PageSize(s.pageSize))
}

func (s *APISource) Users(ctx context.Context) ([]user.User, error) {
	return apiclient.List[user.User](ctx, s.client, "/users/", apiclient.PageSize(s.pageSize))
}

func (s *APISource) Services(ctx context.Context) ([]catalog.Service, error) {
	return apiclient.List[catalog.Service](ctx, s.client, "/services/", apiclient.PageSize(s.pageSize))
}

func (s *APISource) Gallery(ctx context.Context) ([]gallery.Item, error) {
	return apiclient.List[gallery.Item](ctx, s.client, "/gallery/", apiclient.PageSize(s.pageSize))
}

func (s *APISource) Transactions(ctx context.Context) ([]transaction.Transaction, error) {
	return apiclient.List[transaction.Transaction](ctx, s.client, "/transactions/", apiclient.PageSize(s.pageSize))
}
