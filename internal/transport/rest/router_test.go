package rest_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/admin"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/user"
	"github.com/frahmantamala/salon-portal/internal/dashboard"
	"github.com/frahmantamala/salon-portal/internal/transport/rest"
)

type stubResolver struct {
	users map[string]user.User
	calls int
}

func (s *stubResolver) Resolve(ctx context.Context) (*user.User, error) {
	s.calls++
	u, ok := s.users[internal.TokenFromContext(ctx)]
	if !ok {
		return nil, internal.ErrNotAuthenticated
	}
	return &u, nil
}

var _ = Describe("Router", func() {
	var (
		router   *chi.Mux
		resolver *stubResolver
		storeErr error
	)

	BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		storeErr = nil
		resolver = &stubResolver{users: map[string]user.User{
			"staff-token":    {ID: 1, Username: "wanjiru", IsStaff: true},
			"customer-token": {ID: 2, Username: "amina"},
		}}

		health := rest.NewHealthHandler(map[string]rest.Check{
			"salon_api": func(context.Context) error { return nil },
			"session_store": func(context.Context) error {
				return storeErr
			},
		})
		dash := dashboard.NewService(nil, 0, nil, lg)

		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.Handlers{
			Health:   health,
			Admin:    admin.NewHandler(nil, dash, lg),
			Resolver: resolver,
		}, rest.RouterOptions{AllowedOrigins: []string{"https://salon.example"}}, lg)
	})

	get := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Token "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("answers ping and stamps a trace id", func() {
		rec := get("/api/v1/ping", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("X-Trace-ID")).NotTo(BeEmpty())
	})

	It("keeps the caller's trace id", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
		req.Header.Set("X-Trace-ID", "trace-123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Header().Get("X-Trace-ID")).To(Equal("trace-123"))
	})

	It("reports every health component and fails when one is down", func() {
		rec := get("/api/v1/health", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		storeErr = errors.New("connection refused")
		rec = get("/api/v1/health", "")
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))

		var body rest.HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Status).To(Equal(rest.HealthUnhealthy))
		Expect(body.Components["salon_api"].Status).To(Equal(rest.HealthHealthy))
		Expect(body.Components["session_store"].Message).To(Equal("connection refused"))
	})

	Describe("admin routes", func() {
		It("rejects anonymous callers before resolving a user", func() {
			rec := get("/api/v1/admin/dashboard", "")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(resolver.calls).To(Equal(0))
		})

		It("forbids customers", func() {
			rec := get("/api/v1/admin/dashboard", "customer-token")
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(rec.Body.String()).To(ContainSubstring("ADMIN_REQUIRED"))
		})

		It("rejects tokens the API does not recognise", func() {
			rec := get("/api/v1/admin/dashboard", "stale-token")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("lets staff through", func() {
			rec := get("/api/v1/admin/dashboard", "staff-token")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var view dashboard.View
			Expect(json.Unmarshal(rec.Body.Bytes(), &view)).To(Succeed())
			Expect(view.Snapshot).To(BeNil())
			Expect(view.Stale).To(BeFalse())
		})
	})

	It("answers CORS preflight for allowed origins", func() {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/ping", nil)
		req.Header.Set("Origin", "https://salon.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://salon.example"))
	})
})
