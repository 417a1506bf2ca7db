package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goccy/go-json"

	"github.com/frahmantamala/salon-portal/internal/apiclient"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/user"
)

// Session is the explicit holder of a client's auth state. It implements
// apiclient.Credentials, so a client bound to it sends the current token on every call.
//
// Lifecycle: Login/Register populate, Logout clears, Restore reloads from the Store.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *user.User

	store   Store
	client  *apiclient.Client
	service *Service
	logger  *slog.Logger
}

func NewSession(client *apiclient.Client, store Store, logger *slog.Logger) *Session {
	s := &Session{store: store, logger: logger}
	s.client = client.WithCredentials(s)
	s.service = NewService(s.client, logger)
	return s
}

// Client returns the API client bound to this session.
func (s *Session) Client() *apiclient.Client {
	return s.client
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the cached user, or nil when logged out.
func (s *Session) User() *user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

func (s *Session) Login(ctx context.Context, username, password string) (*user.User, error) {
	resp, err := s.service.Login(ctx, LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, resp.Token, resp.User); err != nil {
		return nil, err
	}
	return s.User(), nil
}

func (s *Session) Register(ctx context.Context, req RegisterRequest) (*user.User, error) {
	resp, err := s.service.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, resp.Token, resp.User); err != nil {
		return nil, err
	}
	return s.User(), nil
}

// Logout revokes the token server side on a best-effort basis; local state is always cleared.
func (s *Session) Logout(ctx context.Context) error {
	if s.IsAuthenticated() {
		if err := s.service.Logout(ctx); err != nil {
			s.logger.Warn("server logout failed, clearing local session anyway", "error", err)
		}
	}

	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if err := s.store.Delete(ctx, KeyToken, KeyUser); err != nil {
		return fmt.Errorf("clear session store: %w", err)
	}
	return nil
}

func (s *Session) UpdateProfile(ctx context.Context, update user.ProfileUpdate) (*user.User, error) {
	if err := requireToken(s.Token()); err != nil {
		return nil, err
	}
	updated, err := s.service.UpdateProfile(ctx, update)
	if err != nil {
		return nil, err
	}
	if err := s.UpdateUser(ctx, *updated); err != nil {
		return nil, err
	}
	return s.User(), nil
}

// RefreshProfile reloads the cached user from the API.
func (s *Session) RefreshProfile(ctx context.Context) (*user.User, error) {
	if err := requireToken(s.Token()); err != nil {
		return nil, err
	}
	profile, err := s.service.Profile(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.UpdateUser(ctx, *profile); err != nil {
		return nil, err
	}
	return s.User(), nil
}

// UpdateUser replaces the cached user and persists it.
func (s *Session) UpdateUser(ctx context.Context, u user.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()

	if err := s.store.Set(ctx, KeyUser, string(raw)); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	return nil
}

// Restore loads a previously persisted session. A missing token leaves the session logged out;
// an unreadable user entry is dropped.
func (s *Session) Restore(ctx context.Context) error {
	token, ok, err := s.store.Get(ctx, KeyToken)
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	if !ok || token == "" {
		return nil
	}

	var restored *user.User
	if raw, ok, err := s.store.Get(ctx, KeyUser); err != nil {
		return fmt.Errorf("load user: %w", err)
	} else if ok && raw != "" {
		var u user.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			s.logger.Warn("discarding unreadable cached user", "error", err)
		} else {
			restored = &u
		}
	}

	s.mu.Lock()
	s.token = token
	s.user = restored
	s.mu.Unlock()
	return nil
}

func (s *Session) populate(ctx context.Context, token string, u user.User) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if err := s.store.Set(ctx, KeyToken, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	return s.UpdateUser(ctx, u)
}
