package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/apiclient"
	"github.com/frahmantamala/salon-portal/internal/core/common/validation"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/user"
)

type ServiceAPI interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*user.User, error)
	UpdateProfile(ctx context.Context, update user.ProfileUpdate) (*user.User, error)
}

// Service calls the salon API's auth endpoints. It keeps no state; the token travels with
// the client's credentials or the request context.
type Service struct {
	client *apiclient.Client
	logger *slog.Logger
}

func NewService(client *apiclient.Client, logger *slog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var out AuthResponse
	if err := s.client.Do(ctx, http.MethodPost, "/auth/login/", nil, req, &out); err != nil {
		s.logger.Warn("login failed", "username", req.Username, "error", err)
		return nil, err
	}
	s.logger.Info("user logged in", "user_id", out.User.ID, "is_staff", out.User.IsStaff)
	return &out, nil
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var out AuthResponse
	if err := s.client.Do(ctx, http.MethodPost, "/auth/register/", nil, req, &out); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", out.User.ID)
	return &out, nil
}

func (s *Service) Logout(ctx context.Context) error {
	return s.client.Do(ctx, http.MethodPost, "/auth/logout/", nil, struct{}{}, nil)
}

func (s *Service) Profile(ctx context.Context) (*user.User, error) {
	var out user.User
	if err := s.client.Do(ctx, http.MethodGet, "/auth/profile/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) UpdateProfile(ctx context.Context, update user.ProfileUpdate) (*user.User, error) {
	if err := validation.Struct(update); err != nil {
		return nil, err
	}
	var out user.User
	if err := s.client.Do(ctx, http.MethodPatch, "/auth/profile/update/", nil, update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// requireToken is the explicit per-call credential check.
func requireToken(token string) error {
	if token == "" {
		return internal.ErrNotAuthenticated
	}
	return nil
}
