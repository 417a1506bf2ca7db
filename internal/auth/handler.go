package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/user"
	"github.com/frahmantamala/salon-portal/internal/transport"
	"github.com/frahmantamala/salon-portal/pkg/logger"
)

// Handler exposes the auth endpoints of the portal. Requests carry the caller's token,
// which the token middleware has already placed on the request context.
type Handler struct {
	*transport.BaseHandler
	Service  ServiceAPI
	Verifier *Verifier
}

func NewHandler(svc ServiceAPI, verifier *Verifier) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		Verifier:    verifier,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	resp, err := h.Service.Login(r.Context(), req)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	resp, err := h.Service.Register(r.Context(), req)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, resp)
}

// Logout revokes the token upstream. A failed revocation is logged and still answers 204,
// since the caller drops its token either way.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := internal.TokenFromContext(r.Context())
	if err := requireToken(token); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if err := h.Service.Logout(r.Context()); err != nil {
		logger.From(r.Context()).Warn("upstream logout failed", "error", err)
	}
	if h.Verifier != nil {
		h.Verifier.Forget(token)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	if err := requireToken(internal.TokenFromContext(r.Context())); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	profile, err := h.Service.Profile(r.Context())
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	token := internal.TokenFromContext(r.Context())
	if err := requireToken(token); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	var update user.ProfileUpdate
	if err := h.DecodeJSON(r, &update); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	updated, err := h.Service.UpdateProfile(r.Context(), update)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	if h.Verifier != nil {
		h.Verifier.Forget(token)
	}
	h.WriteJSON(w, http.StatusOK, updated)
}
