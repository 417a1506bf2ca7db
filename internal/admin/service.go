package admin

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/apiclient"
	"github.com/frahmantamala/salon-portal/internal/core/common/validation"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/appointment"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/catalog"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/contact"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/gallery"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/review"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/transaction"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/user"
)

// Console backs the admin screens. Each collection has its own Store; every mutation is
// an API call followed by a refresh of the affected store.
type Console struct {
	client *apiclient.Client
	logger *slog.Logger
	now    func() time.Time

	appointmentsAPI *apiclient.Resource[appointment.Appointment]
	transactionsAPI *apiclient.Resource[transaction.Transaction]
	servicesAPI     *apiclient.Resource[catalog.Service]
	categoriesAPI   *apiclient.Resource[catalog.Category]
	galleryAPI      *apiclient.Resource[gallery.Item]
	usersAPI        *apiclient.Resource[user.User]
	reviewsAPI      *apiclient.Resource[review.Review]
	contactsAPI     *apiclient.Resource[contact.Message]

	Appointments *Store[appointment.Appointment]
	Transactions *Store[transaction.Transaction]
	Services     *Store[catalog.Service]
	Categories   *Store[catalog.Category]
	Gallery      *Store[gallery.Item]
	Users        *Store[user.User]
	Reviews      *Store[review.Review]
	Contacts     *Store[contact.Message]
}

func NewConsole(client *apiclient.Client, pageSize int, logger *slog.Logger) *Console {
	c := &Console{
		client:          client,
		logger:          logger,
		now:             time.Now,
		appointmentsAPI: apiclient.NewResource[appointment.Appointment](client, "appointments"),
		transactionsAPI: apiclient.NewResource[transaction.Transaction](client, "transactions"),
		servicesAPI:     apiclient.NewResource[catalog.Service](client, "services"),
		categoriesAPI:   apiclient.NewResource[catalog.Category](client, "service-categories"),
		galleryAPI:      apiclient.NewResource[gallery.Item](client, "gallery"),
		usersAPI:        apiclient.NewResource[user.User](client, "users"),
		reviewsAPI:      apiclient.NewResource[review.Review](client, "reviews"),
		contactsAPI:     apiclient.NewResource[contact.Message](client, "contact"),
	}
	page := apiclient.PageSize(pageSize)

	c.Appointments = NewStore(func(ctx context.Context) ([]appointment.Appointment, error) {
		return c.appointmentsAPI.List(ctx, page)
	}, func(a appointment.Appointment) int64 { return a.ID })
	c.Transactions = NewStore(func(ctx context.Context) ([]transaction.Transaction, error) {
		return c.transactionsAPI.List(ctx, page)
	}, func(t transaction.Transaction) int64 { return t.ID })
	c.Services = NewStore(func(ctx context.Context) ([]catalog.Service, error) {
		return c.servicesAPI.List(ctx, nil)
	}, func(s catalog.Service) int64 { return s.ID })
	c.Categories = NewStore(func(ctx context.Context) ([]catalog.Category, error) {
		return c.categoriesAPI.List(ctx, nil)
	}, func(cat catalog.Category) int64 { return cat.ID })
	c.Gallery = NewStore(func(ctx context.Context) ([]gallery.Item, error) {
		return c.galleryAPI.List(ctx, nil)
	}, func(g gallery.Item) int64 { return g.ID })
	c.Users = NewStore(func(ctx context.Context) ([]user.User, error) {
		return c.usersAPI.List(ctx, page)
	}, func(u user.User) int64 { return u.ID })
	c.Reviews = NewStore(func(ctx context.Context) ([]review.Review, error) {
		return c.reviewsAPI.List(ctx, nil)
	}, func(r review.Review) int64 { return r.ID })
	c.Contacts = NewStore(func(ctx context.Context) ([]contact.Message, error) {
		return c.contactsAPI.List(ctx, nil)
	}, func(m contact.Message) int64 { return m.ID })

	return c
}

func requireConfirm(confirm bool) error {
	if !confirm {
		return internal.ErrConfirmRequired
	}
	return nil
}

// ListAppointments refreshes and returns the appointments matching f.
func (c *Console) ListAppointments(ctx context.Context, f AppointmentFilter) ([]appointment.Appointment, error) {
	items, err := c.Appointments.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]appointment.Appointment, 0, len(items))
	for _, a := range items {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

// UpdateAppointmentStatus sets the status; completing an appointment also completes its payment.
func (c *Console) UpdateAppointmentStatus(ctx context.Context, id int64, status appointment.Status) ([]appointment.Appointment, error) {
	if !status.Valid() {
		return nil, internal.NewValidationFieldError("status", fmt.Sprintf("unknown appointment status %q", status), internal.ErrCodeInvalidStatus)
	}
	patch := appointmentPatch{Status: status}
	if status == appointment.StatusCompleted {
		patch.PaymentStatus = appointment.PaymentCompleted
	}
	return c.Appointments.Mutate(ctx, func(ctx context.Context) error {
		_, err := c.appointmentsAPI.Update(ctx, id, patch)
		if err == nil {
			c.logger.Info("appointment status updated", "appointment_id", id, "status", status)
		}
		return err
	})
}

func (c *Console) DeleteAppointment(ctx context.Context, id int64, confirm bool) ([]appointment.Appointment, error) {
	if err := requireConfirm(confirm); err != nil {
		return nil, err
	}
	return c.Appointments.Mutate(ctx, func(ctx context.Context) error {
		return c.appointmentsAPI.Delete(ctx, id)
	})
}

// ReviewPayment approves or rejects a manually submitted receipt.
func (c *Console) ReviewPayment(ctx context.Context, id int64, decision appointment.PaymentReview) (*PaymentReviewResult, error) {
	if err := validation.Struct(decision); err != nil {
		return nil, err
	}
	var out PaymentReviewResult
	_, err := c.Appointments.Mutate(ctx, func(ctx context.Context) error {
		return c.client.Do(ctx, http.MethodPost, "/mpesa/approve/"+strconv.FormatInt(id, 10)+"/", nil, decision, &out)
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("manual payment reviewed", "appointment_id", id, "action", decision.Action)
	return &out, nil
}

// ListTransactions refreshes the transactions; stats cover every row, items only those
// matching status (empty matches all).
func (c *Console) ListTransactions(ctx context.Context, status transaction.Status) (*TransactionList, error) {
	items, err := c.Transactions.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	list := &TransactionList{Items: make([]transaction.Transaction, 0, len(items)), Stats: transaction.Summarize(items)}
	for _, tx := range items {
		if status == "" || tx.Status == status {
			list.Items = append(list.Items, tx)
		}
	}
	return list, nil
}

// UpdateTransactionStatus sets the status; completing stamps completed_at.
func (c *Console) UpdateTransactionStatus(ctx context.Context, id int64, status transaction.Status) ([]transaction.Transaction, error) {
	if !status.Valid() {
		return nil, internal.NewValidationFieldError("status", fmt.Sprintf("unknown transaction status %q", status), internal.ErrCodeInvalidStatus)
	}
	patch := transactionPatch{Status: status}
	if status == transaction.StatusCompleted {
		patch.CompletedAt = c.now().UTC().Format(time.RFC3339)
	}
	return c.Transactions.Mutate(ctx, func(ctx context.Context) error {
		_, err := c.transactionsAPI.Update(ctx, id, patch)
		return err
	})
}

func (c *Console) SaveService(ctx context.Context, id int64, in catalog.ServiceInput) ([]catalog.Service, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return c.Services.Mutate(ctx, func(ctx context.Context) error {
		if id == 0 {
			_, err := c.servicesAPI.Create(ctx, in)
			return err
		}
		_, err := c.servicesAPI.Replace(ctx, id, in)
		return err
	})
}

func (c *Console) DeleteService(ctx context.Context, id int64, confirm bool) ([]catalog.Service, error) {
	if err := requireConfirm(confirm); err != nil {
		return nil, err
	}
	return c.Services.Mutate(ctx, func(ctx context.Context) error {
		return c.servicesAPI.Delete(ctx, id)
	})
}

func (c *Console) SaveCategory(ctx context.Context, id int64, in catalog.CategoryInput) ([]catalog.Category, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return c.Categories.Mutate(ctx, func(ctx context.Context) error {
		if id == 0 {
			_, err := c.categoriesAPI.Create(ctx, in)
			return err
		}
		_, err := c.categoriesAPI.Replace(ctx, id, in)
		return err
	})
}

func (c *Console) DeleteCategory(ctx context.Context, id int64, confirm bool) ([]catalog.Category, error) {
	if err := requireConfirm(confirm); err != nil {
		return nil, err
	}
	return c.Categories.Mutate(ctx, func(ctx context.Context) error {
		return c.categoriesAPI.Delete(ctx, id)
	})
}

// SaveGalleryItem uploads a new image (id 0) or replaces an item's metadata and, when
// image is non-nil, its file.
func (c *Console) SaveGalleryItem(ctx context.Context, id int64, meta gallery.Metadata, image *apiclient.FilePart) ([]gallery.Item, error) {
	if err := validation.Struct(meta); err != nil {
		return nil, err
	}
	if id == 0 && image == nil {
		return nil, internal.NewValidationFieldError("image", "image is required", internal.ErrCodeValidationFailed)
	}
	fields := map[string]string{
		"title":       meta.Title,
		"description": meta.Description,
		"is_featured": strconv.FormatBool(meta.IsFeatured),
	}
	if meta.Service != nil {
		fields["service"] = strconv.FormatInt(*meta.Service, 10)
	}
	if image != nil && image.Field == "" {
		image.Field = "image"
	}

	return c.Gallery.Mutate(ctx, func(ctx context.Context) error {
		if id == 0 {
			return c.client.Upload(ctx, http.MethodPost, c.galleryAPI.Path(), fields, image, nil)
		}
		return c.client.Upload(ctx, http.MethodPut, fmt.Sprintf("%s%d/", c.galleryAPI.Path(), id), fields, image, nil)
	})
}

func (c *Console) DeleteGalleryItem(ctx context.Context, id int64, confirm bool) ([]gallery.Item, error) {
	if err := requireConfirm(confirm); err != nil {
		return nil, err
	}
	return c.Gallery.Mutate(ctx, func(ctx context.Context) error {
		return c.galleryAPI.Delete(ctx, id)
	})
}

// ToggleUserActive flips is_active based on the user as the API has it right now.
func (c *Console) ToggleUserActive(ctx context.Context, id int64) ([]user.User, error) {
	current, ok, err := c.Users.FindFresh(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, internal.ErrResourceNotFound
	}
	return c.Users.Mutate(ctx, func(ctx context.Context) error {
		_, err := c.usersAPI.Update(ctx, id, map[string]bool{"is_active": !current.IsActive})
		return err
	})
}

func (c *Console) DeleteUser(ctx context.Context, id int64, confirm bool) ([]user.User, error) {
	if err := requireConfirm(confirm); err != nil {
		return nil, err
	}
	return c.Users.Mutate(ctx, func(ctx context.Context) error {
		return c.usersAPI.Delete(ctx, id)
	})
}

func (c *Console) ToggleReviewApproved(ctx context.Context, id int64) ([]review.Review, error) {
	current, ok, err := c.Reviews.FindFresh(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, internal.ErrResourceNotFound
	}
	return c.Reviews.Mutate(ctx, func(ctx context.Context) error {
		_, err := c.reviewsAPI.Update(ctx, id, map[string]bool{"is_approved": !current.IsApproved})
		return err
	})
}

func (c *Console) DeleteReview(ctx context.Context, id int64, confirm bool) ([]review.Review, error) {
	if err := requireConfirm(confirm); err != nil {
		return nil, err
	}
	return c.Reviews.Mutate(ctx, func(ctx context.Context) error {
		return c.reviewsAPI.Delete(ctx, id)
	})
}

func (c *Console) SetContactRead(ctx context.Context, id int64, read bool) ([]contact.Message, error) {
	return c.Contacts.Mutate(ctx, func(ctx context.Context) error {
		_, err := c.contactsAPI.Update(ctx, id, map[string]bool{"is_read": read})
		return err
	})
}

func (c *Console) ReplyContact(ctx context.Context, id int64, reply contact.Reply) ([]contact.Message, error) {
	if err := validation.Struct(reply); err != nil {
		return nil, err
	}
	return c.Contacts.Mutate(ctx, func(ctx context.Context) error {
		return c.contactsAPI.Action(ctx, id, "reply", reply, nil)
	})
}

func (c *Console) DeleteContact(ctx context.Context, id int64, confirm bool) ([]contact.Message, error) {
	if err := requireConfirm(confirm); err != nil {
		return nil, err
	}
	return c.Contacts.Mutate(ctx, func(ctx context.Context) error {
		return c.contactsAPI.Delete(ctx, id)
	})
}
