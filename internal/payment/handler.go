package payment

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/apiclient"
	"github.com/frahmantamala/salon-portal/internal/core/common/validation"
	"github.com/frahmantamala/salon-portal/internal/core/events"
	"github.com/frahmantamala/salon-portal/internal/transport"
	"github.com/frahmantamala/salon-portal/pkg/logger"
)

// Handler serves payment sessions over HTTP. Sessions live in the registry; each one is
// bound to the token of the caller that opened it and is invisible to everyone else.
type Handler struct {
	*transport.BaseHandler
	Registry *Registry
	Client   *apiclient.Client
	Bus      *events.EventBus
	// CheckOrigin guards the websocket upgrade; nil accepts same-origin requests only.
	CheckOrigin func(r *http.Request) bool
}

func NewHandler(registry *Registry, client *apiclient.Client, bus *events.EventBus, lg *slog.Logger) *Handler {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Registry:    registry,
		Client:      client,
		Bus:         bus,
	}
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	token := internal.TokenFromContext(r.Context())
	sess := h.Registry.OpenWith(OwnerKey(token), req.AppointmentID, GatewayFor(h.Client, token))
	h.WriteJSON(w, http.StatusCreated, NewSessionResponse(sess.Snapshot()))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, NewSessionResponse(sess.Snapshot()))
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	var req SubmitRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	snap, err := sess.Submit(r.Context(), req.PhoneNumber)
	h.writeOutcome(w, r, snap, err)
}

func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	snap, err := sess.Retry()
	h.writeOutcome(w, r, snap, err)
}

func (h *Handler) Manual(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	snap, err := sess.ChooseManual()
	h.writeOutcome(w, r, snap, err)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	var req VerifyRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	snap, err := sess.Verify(r.Context(), req.Receipt)
	h.writeOutcome(w, r, snap, err)
}

// Close is the teardown of a payment view: polling stops and the session is forgotten.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.Registry.CloseFor(chi.URLParam(r, "sessionID"), callerKey(r)); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// session looks up the path's session on behalf of the calling token.
func (h *Handler) session(r *http.Request) (*Session, error) {
	return h.Registry.GetFor(chi.URLParam(r, "sessionID"), callerKey(r))
}

func callerKey(r *http.Request) string {
	return OwnerKey(internal.TokenFromContext(r.Context()))
}

// writeOutcome answers with the snapshot. Rejected input and disallowed transitions still
// carry the snapshot so clients can render the session's message.
func (h *Handler) writeOutcome(w http.ResponseWriter, r *http.Request, snap Snapshot, err error) {
	if err == nil {
		h.WriteJSON(w, http.StatusOK, NewSessionResponse(snap))
		return
	}

	appErr, ok := internal.IsAppError(err)
	if !ok || errors.Is(err, internal.ErrSessionClosed) || snap.ID == "" {
		h.WriteAppError(w, r, err)
		return
	}

	status, _ := appErr.ToHTTPResponse()
	logger.From(r.Context()).Warn("payment action rejected",
		"session_id", snap.ID,
		"state", snap.State,
		"code", appErr.Code)
	h.WriteJSON(w, status, struct {
		Error   *internal.AppError `json:"error"`
		Session SessionResponse    `json:"session"`
	}{Error: appErr, Session: NewSessionResponse(snap)})
}
