package auth_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/auth"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/user"
)

type countingFetcher struct {
	calls int32
	err   error
}

func (f *countingFetcher) Profile(ctx context.Context) (*user.User, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return &user.User{ID: 1, Username: internal.TokenFromContext(ctx), IsStaff: true}, nil
}

var _ = Describe("Verifier", func() {
	It("rejects a context without a token", func() {
		v := auth.NewVerifier(&countingFetcher{}, time.Minute)
		_, err := v.Resolve(context.Background())
		Expect(err).To(MatchError(internal.ErrNotAuthenticated))
	})

	It("caches the profile per token", func() {
		fetcher := &countingFetcher{}
		v := auth.NewVerifier(fetcher, time.Minute)

		a := internal.ContextWithToken(context.Background(), "alpha")
		b := internal.ContextWithToken(context.Background(), "beta")

		u, err := v.Resolve(a)
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Username).To(Equal("alpha"))
		_, err = v.Resolve(a)
		Expect(err).NotTo(HaveOccurred())
		Expect(atomic.LoadInt32(&fetcher.calls)).To(Equal(int32(1)))

		u, err = v.Resolve(b)
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Username).To(Equal("beta"))
		Expect(atomic.LoadInt32(&fetcher.calls)).To(Equal(int32(2)))

		v.Forget("alpha")
		_, err = v.Resolve(a)
		Expect(err).NotTo(HaveOccurred())
		Expect(atomic.LoadInt32(&fetcher.calls)).To(Equal(int32(3)))
	})

	It("evicts expired profiles instead of keeping every token seen", func() {
		// Given
		fetcher := &countingFetcher{}
		v := auth.NewVerifier(fetcher, 20*time.Millisecond)
		for _, token := range []string{"alpha", "beta", "gamma"} {
			_, err := v.Resolve(internal.ContextWithToken(context.Background(), token))
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(v.Cached()).To(Equal(3))

		// When
		time.Sleep(40 * time.Millisecond)
		_, err := v.Resolve(internal.ContextWithToken(context.Background(), "delta"))

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Cached()).To(Equal(1))
	})

	It("drops an expired profile on read even when the refetch fails", func() {
		// Given
		fetcher := &countingFetcher{}
		v := auth.NewVerifier(fetcher, 20*time.Millisecond)
		ctx := internal.ContextWithToken(context.Background(), "alpha")
		_, err := v.Resolve(ctx)
		Expect(err).NotTo(HaveOccurred())

		// When
		time.Sleep(40 * time.Millisecond)
		fetcher.err = internal.NewNetworkError("salon API unreachable", context.DeadlineExceeded)
		_, err = v.Resolve(ctx)

		// Then
		Expect(err).To(HaveOccurred())
		Expect(v.Cached()).To(Equal(0))
		Expect(atomic.LoadInt32(&fetcher.calls)).To(Equal(int32(2)))
	})

	It("maps an upstream 401 to not authenticated", func() {
		v := auth.NewVerifier(&countingFetcher{err: internal.NewExternalError("Invalid token.", http.StatusUnauthorized)}, time.Minute)
		_, err := v.Resolve(internal.ContextWithToken(context.Background(), "stale"))
		Expect(err).To(MatchError(internal.ErrNotAuthenticated))
	})
})
