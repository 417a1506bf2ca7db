package payment

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/salon-portal/internal"
)

// Registry owns the live payment sessions of a portal process. A session lives until it is
// closed explicitly or swept after sitting idle.
type Registry struct {
	gateway Gateway
	opts    Options
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(gateway Gateway, opts Options) *Registry {
	opts = opts.withDefaults()
	return &Registry{
		gateway:  gateway,
		opts:     opts,
		logger:   opts.Logger,
		sessions: make(map[string]*Session),
	}
}

// OwnerKey identifies the caller that opened a session without keeping its token around.
func OwnerKey(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Open creates an unowned session for appointmentID using the registry's gateway.
func (r *Registry) Open(appointmentID int64) *Session {
	return r.OpenWith("", appointmentID, r.gateway)
}

// OpenWith creates a session owned by owner (see OwnerKey) and bound to a specific
// gateway, e.g. one carrying that owner's token.
func (r *Registry) OpenWith(owner string, appointmentID int64, gateway Gateway) *Session {
	s := NewSession(uuid.New().String(), appointmentID, gateway, r.opts)
	s.owner = owner

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	r.logger.Info("payment session opened", "session_id", s.ID(), "appointment_id", appointmentID)
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, internal.ErrSessionNotFound
	}
	return s, nil
}

// GetFor returns the session only when owner opened it. Other callers get the same
// not-found answer as for an unknown id.
func (r *Registry) GetFor(id, owner string) (*Session, error) {
	s, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if s.owner != owner {
		return nil, internal.ErrSessionNotFound
	}
	return s, nil
}

// Close tears down and forgets the session.
func (r *Registry) Close(id string) error {
	return r.close(id, func(*Session) bool { return true })
}

// CloseFor is Close restricted to the session's owner.
func (r *Registry) CloseFor(id, owner string) error {
	return r.close(id, func(s *Session) bool { return s.owner == owner })
}

func (r *Registry) close(id string, allowed func(*Session) bool) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok && !allowed(s) {
		ok = false
	}
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return internal.ErrSessionNotFound
	}
	s.Close()
	r.logger.Info("payment session closed", "session_id", id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes sessions that are not polling and have not changed for maxIdle.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	now := r.opts.Clock.Now()

	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		snap := s.Snapshot()
		if snap.State == StateChecking || snap.State == StateProcessing {
			continue
		}
		if now.Sub(snap.UpdatedAt) >= maxIdle {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	if len(stale) > 0 {
		r.logger.Info("swept idle payment sessions", "count", len(stale))
	}
	return len(stale)
}

// CloseAll tears down every session, used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
