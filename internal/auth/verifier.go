package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/user"
)

type ProfileFetcher interface {
	Profile(ctx context.Context) (*user.User, error)
}

type cachedProfile struct {
	user      user.User
	expiresAt time.Time
}

// Verifier resolves a request token to its user through GET /auth/profile/, caching
// answers for ttl. Cache keys are token digests. Expired entries are dropped when read and
// swept on insert at most once per ttl, so the cache only holds recently seen tokens.
type Verifier struct {
	fetcher ProfileFetcher
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	cache   map[string]cachedProfile
	sweptAt time.Time
}

func NewVerifier(fetcher ProfileFetcher, ttl time.Duration) *Verifier {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Verifier{
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
		cache:   make(map[string]cachedProfile),
	}
}

// Resolve returns the user owning the token carried by ctx.
func (v *Verifier) Resolve(ctx context.Context) (*user.User, error) {
	token := internal.TokenFromContext(ctx)
	if err := requireToken(token); err != nil {
		return nil, err
	}
	key := digest(token)

	v.mu.Lock()
	entry, ok := v.cache[key]
	if ok && !v.now().Before(entry.expiresAt) {
		delete(v.cache, key)
		ok = false
	}
	v.mu.Unlock()
	if ok {
		u := entry.user
		return &u, nil
	}

	profile, err := v.fetcher.Profile(ctx)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.StatusCode == 401 {
			return nil, internal.ErrNotAuthenticated
		}
		return nil, err
	}

	v.mu.Lock()
	now := v.now()
	if now.Sub(v.sweptAt) >= v.ttl {
		for k, e := range v.cache {
			if !now.Before(e.expiresAt) {
				delete(v.cache, k)
			}
		}
		v.sweptAt = now
	}
	v.cache[key] = cachedProfile{user: *profile, expiresAt: now.Add(v.ttl)}
	v.mu.Unlock()
	return profile, nil
}

// Cached reports how many profiles are held.
func (v *Verifier) Cached() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.cache)
}

// Forget drops the cached profile for token, used after logout.
func (v *Verifier) Forget(token string) {
	v.mu.Lock()
	delete(v.cache, digest(token))
	v.mu.Unlock()
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
