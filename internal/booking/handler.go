package booking

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/apiclient"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/appointment"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/contact"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/review"
	"github.com/frahmantamala/salon-portal/internal/payment"
	"github.com/frahmantamala/salon-portal/internal/transport"
	"github.com/frahmantamala/salon-portal/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service  ServiceAPI
	Payments *payment.Registry
	Client   *apiclient.Client
}

func NewHandler(svc ServiceAPI, payments *payment.Registry, client *apiclient.Client, lg *slog.Logger) *Handler {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		Payments:    payments,
		Client:      client,
	}
}

// BookingResponse is a created appointment plus the payment session opened for it.
type BookingResponse struct {
	Appointment *appointment.Appointment `json:"appointment"`
	Payment     *payment.SessionResponse `json:"payment,omitempty"`
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.Services(r.Context())
	h.respond(w, r, items, err)
}

func (h *Handler) FeaturedServices(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.FeaturedServices(r.Context())
	h.respond(w, r, items, err)
}

func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	item, err := h.Service.Service(r.Context(), id)
	h.respond(w, r, item, err)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.Categories(r.Context())
	h.respond(w, r, items, err)
}

func (h *Handler) ListGallery(w http.ResponseWriter, r *http.Request) {
	featured := r.URL.Query().Get("featured") == "true"
	items, err := h.Service.Gallery(r.Context(), featured)
	h.respond(w, r, items, err)
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	if internal.TokenFromContext(r.Context()) == "" {
		h.WriteAppError(w, r, internal.ErrNotAuthenticated)
		return
	}
	items, err := h.Service.Appointments(r.Context())
	h.respond(w, r, items, err)
}

// BookAppointment creates the appointment and opens its payment session right away, the
// way the booking form hands over to the payment view.
func (h *Handler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointment.CreateRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	created, err := h.Service.BookAppointment(r.Context(), req)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	resp := BookingResponse{Appointment: created}
	if h.Payments != nil {
		token := internal.TokenFromContext(r.Context())
		sess := h.Payments.OpenWith(payment.OwnerKey(token), created.ID, payment.GatewayFor(h.Client, token))
		snap := payment.NewSessionResponse(sess.Snapshot())
		resp.Payment = &snap
	}
	h.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.Reviews(r.Context())
	h.respond(w, r, items, err)
}

func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var req review.CreateRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	created, err := h.Service.SubmitReview(r.Context(), req)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req contact.SendRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	sent, err := h.Service.SendMessage(r.Context(), req)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, sent)
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	if internal.TokenFromContext(r.Context()) == "" {
		h.WriteAppError(w, r, internal.ErrNotAuthenticated)
		return
	}
	list, err := h.Service.Notifications(r.Context())
	h.respond(w, r, list, err)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	item, err := h.Service.MarkNotificationRead(r.Context(), id)
	h.respond(w, r, item, err)
}

func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.MarkAllNotificationsRead(r.Context()); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, body interface{}, err error) {
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, body)
}
