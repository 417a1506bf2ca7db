package admin

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/apiclient"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/appointment"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/catalog"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/contact"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/gallery"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/transaction"
	"github.com/frahmantamala/salon-portal/internal/dashboard"
	"github.com/frahmantamala/salon-portal/internal/transport"
	"github.com/frahmantamala/salon-portal/pkg/logger"
)

const maxUploadBytes = 10 << 20

type Handler struct {
	*transport.BaseHandler
	Console   *Console
	Dashboard *dashboard.Service
}

func NewHandler(console *Console, dash *dashboard.Service, lg *slog.Logger) *Handler {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Console:     console,
		Dashboard:   dash,
	}
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, h.Dashboard.Current())
}

// RefreshDashboard runs a refresh with the caller's credentials. A failed refresh still
// answers with the current view, flagged stale.
func (h *Handler) RefreshDashboard(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Dashboard.Refresh(r.Context()); err != nil {
		logger.From(r.Context()).Warn("dashboard refresh failed", "error", err)
	}
	h.WriteJSON(w, http.StatusOK, h.Dashboard.Current())
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := AppointmentFilter{
		Status:        appointment.Status(q.Get("status")),
		PaymentStatus: appointment.PaymentStatus(q.Get("payment_status")),
		Search:        q.Get("search"),
	}
	items, err := h.Console.ListAppointments(r.Context(), filter)
	h.respond(w, r, items, err)
}

func (h *Handler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	var req StatusUpdate
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	items, err := h.Console.UpdateAppointmentStatus(r.Context(), id, appointment.Status(req.Status))
	h.respond(w, r, items, err)
}

func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	items, err := h.Console.DeleteAppointment(r.Context(), id, confirmed(r))
	h.respond(w, r, items, err)
}

func (h *Handler) ReviewPayment(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	var req appointment.PaymentReview
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	result, err := h.Console.ReviewPayment(r.Context(), id, req)
	h.respond(w, r, result, err)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	list, err := h.Console.ListTransactions(r.Context(), transaction.Status(r.URL.Query().Get("status")))
	h.respond(w, r, list, err)
}

func (h *Handler) UpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	var req StatusUpdate
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	items, err := h.Console.UpdateTransactionStatus(r.Context(), id, transaction.Status(req.Status))
	h.respond(w, r, items, err)
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	items, err := h.Console.Services.Refresh(r.Context())
	h.respond(w, r, items, err)
}

// SaveService creates when no id is routed and replaces otherwise.
func (h *Handler) SaveService(w http.ResponseWriter, r *http.Request) {
	id, err := h.optionalID(r)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	var in catalog.ServiceInput
	if err := h.DecodeJSON(r, &in); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	items, err := h.Console.SaveService(r.Context(), id, in)
	h.respond(w, r, items, err)
}

func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	items, err := h.Console.DeleteService(r.Context(), id, confirmed(r))
	h.respond(w, r, items, err)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	items, err := h.Console.Categories.Refresh(r.Context())
	h.respond(w, r, items, err)
}

func (h *Handler) SaveCategory(w http.ResponseWriter, r *http.Request) {
	id, err := h.optionalID(r)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	var in catalog.CategoryInput
	if err := h.DecodeJSON(r, &in); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	items, err := h.Console.SaveCategory(r.Context(), id, in)
	h.respond(w, r, items, err)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	items, err := h.Console.DeleteCategory(r.Context(), id, confirmed(r))
	h.respond(w, r, items, err)
}

func (h *Handler) ListGallery(w http.ResponseWriter, r *http.Request) {
	items, err := h.Console.Gallery.Refresh(r.Context())
	h.respond(w, r, items, err)
}

// SaveGalleryItem accepts multipart/form-data with title, description, service,
// is_featured and an optional image file.
func (h *Handler) SaveGalleryItem(w http.ResponseWriter, r *http.Request) {
	id, err := h.optionalID(r)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.WriteAppError(w, r, internal.NewValidationError("invalid multipart form", internal.ErrCodeValidationFailed))
		return
	}

	meta := gallery.Metadata{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		IsFeatured:  r.FormValue("is_featured") == "true",
	}
	if raw := r.FormValue("service"); raw != "" {
		svc, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.WriteAppError(w, r, internal.NewValidationFieldError("service", "service must be a number", internal.ErrCodeValidationFailed))
			return
		}
		meta.Service = &svc
	}

	var image *apiclient.FilePart
	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		image = &apiclient.FilePart{Field: "image", FileName: header.Filename, Content: file}
	}

	items, err := h.Console.SaveGalleryItem(r.Context(), id, meta, image)
	h.respond(w, r, items, err)
}

func (h *Handler) DeleteGalleryItem(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	items, err := h.Console.DeleteGalleryItem(r.Context(), id, confirmed(r))
	h.respond(w, r, items, err)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	items, err := h.Console.Users.Refresh(r.Context())
	h.respond(w, r, items, err)
}

func (h *Handler) ToggleUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	items, err := h.Console.ToggleUserActive(r.Context(), id)
	h.respond(w, r, items, err)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	items, err := h.Console.DeleteUser(r.Context(), id, confirmed(r))
	h.respond(w, r, items, err)
}

func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	items, err := h.Console.Reviews.Refresh(r.Context())
	h.respond(w, r, items, err)
}

func (h *Handler) ToggleReviewApproved(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	items, err := h.Console.ToggleReviewApproved(r.Context(), id)
	h.respond(w, r, items, err)
}

func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	items, err := h.Console.DeleteReview(r.Context(), id, confirmed(r))
	h.respond(w, r, items, err)
}

func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	items, err := h.Console.Contacts.Refresh(r.Context())
	h.respond(w, r, items, err)
}

func (h *Handler) SetContactRead(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	var req struct {
		IsRead bool `json:"is_read"`
	}
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	items, err := h.Console.SetContactRead(r.Context(), id, req.IsRead)
	h.respond(w, r, items, err)
}

func (h *Handler) ReplyContact(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	var req contact.Reply
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	items, err := h.Console.ReplyContact(r.Context(), id, req)
	h.respond(w, r, items, err)
}

func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	items, err := h.Console.DeleteContact(r.Context(), id, confirmed(r))
	h.respond(w, r, items, err)
}

func (h *Handler) optionalID(r *http.Request) (int64, error) {
	if chi.URLParam(r, "id") == "" {
		return 0, nil
	}
	return h.PathID(r, "id")
}

// confirmed reads the explicit ?confirm=true destructive actions require.
func confirmed(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return ok
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, body interface{}, err error) {
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, body)
}
