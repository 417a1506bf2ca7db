package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/auth"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/user"
)

type fakeService struct {
	logoutErr   error
	logoutCalls int
	lastLogin   auth.LoginRequest
}

func (f *fakeService) Login(_ context.Context, req auth.LoginRequest) (*auth.AuthResponse, error) {
	f.lastLogin = req
	if req.Password != "correct-horse" {
		return nil, internal.NewExternalError("Unable to log in with provided credentials.", http.StatusBadRequest)
	}
	return &auth.AuthResponse{Token: "tok", User: user.User{ID: 3, Username: req.Username}}, nil
}

func (f *fakeService) Register(_ context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error) {
	return &auth.AuthResponse{Token: "new", User: user.User{ID: 4, Username: req.Username}}, nil
}

func (f *fakeService) Logout(context.Context) error {
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeService) Profile(ctx context.Context) (*user.User, error) {
	return &user.User{ID: 3, Username: "amina"}, nil
}

func (f *fakeService) UpdateProfile(_ context.Context, update user.ProfileUpdate) (*user.User, error) {
	return &user.User{ID: 3, Username: "amina", FirstName: *update.FirstName}, nil
}

var _ = Describe("Handler", func() {
	var (
		svc *fakeService
		h   *auth.Handler
	)

	BeforeEach(func() {
		svc = &fakeService{}
		h = auth.NewHandler(svc, nil)
	})

	withToken := func(req *http.Request, token string) *http.Request {
		return req.WithContext(internal.ContextWithToken(req.Context(), token))
	}

	It("returns the token and user on login", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"amina","password":"correct-horse"}`))
		h.Login(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"token":"tok"`))
		Expect(svc.lastLogin.Username).To(Equal("amina"))
	})

	It("relays the upstream login failure", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"amina","password":"nope"}`))
		h.Login(rec, req)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("Unable to log in"))
	})

	It("rejects a malformed body", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{`))
		h.Login(rec, req)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("requires a token for logout", func() {
		rec := httptest.NewRecorder()
		h.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(svc.logoutCalls).To(Equal(0))
	})

	It("answers 204 on logout even when the upstream call fails", func() {
		svc.logoutErr = internal.NewNetworkError("salon API unreachable", nil)
		rec := httptest.NewRecorder()
		h.Logout(rec, withToken(httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil), "tok"))
		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(svc.logoutCalls).To(Equal(1))
	})

	It("returns the profile for an authenticated caller", func() {
		rec := httptest.NewRecorder()
		h.Me(rec, withToken(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), "tok"))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"username":"amina"`))
	})

	It("updates the profile", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/auth/profile", strings.NewReader(`{"first_name":"Amina"}`))
		h.UpdateProfile(rec, withToken(req, "tok"))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"first_name":"Amina"`))
	})
})
