package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/apiclient"
	"github.com/frahmantamala/salon-portal/internal/auth"
	authPostgres "github.com/frahmantamala/salon-portal/internal/auth/postgres"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/session"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/user"
)

type upstream struct {
	mu          sync.Mutex
	server      *httptest.Server
	authHeaders []string
	logoutCalls int
	logoutFails bool
}

func newUpstream() *upstream {
	u := &upstream{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"token":"tok-123","user":{"id":7,"username":"wanjiru","first_name":"Wanjiru","is_staff":true}}`)
	})
	mux.HandleFunc("/api/auth/logout/", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.logoutCalls++
		fails := u.logoutFails
		u.mu.Unlock()
		if fails {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/auth/profile/", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.authHeaders = append(u.authHeaders, r.Header.Get("Authorization"))
		u.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":7,"username":"wanjiru","first_name":"Wanjiru","last_name":"Kamau","is_staff":true}`)
	})
	mux.HandleFunc("/api/auth/profile/update/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":7,"username":"wanjiru","first_name":"Wanji","is_staff":true}`)
	})
	u.server = httptest.NewServer(mux)
	return u
}

func (u *upstream) failLogout() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.logoutFails = true
}

func (u *upstream) logouts() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.logoutCalls
}

func (u *upstream) headers() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.authHeaders...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ = Describe("Session", func() {
	var (
		up     *upstream
		client *apiclient.Client
		store  auth.Store
		sess   *auth.Session
		ctx    context.Context
	)

	BeforeEach(func() {
		up = newUpstream()
		client = apiclient.NewClient(apiclient.Config{BaseURL: up.server.URL}, quietLogger())

		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&session.Record{})).To(Succeed())
		store = authPostgres.NewSessionStore(db, "operator")

		sess = auth.NewSession(client, store, quietLogger())
		ctx = context.Background()
	})

	AfterEach(func() {
		up.server.Close()
	})

	It("starts logged out", func() {
		Expect(sess.IsAuthenticated()).To(BeFalse())
		Expect(sess.Token()).To(BeEmpty())
		Expect(sess.User()).To(BeNil())
	})

	It("populates and persists token and user on login", func() {
		u, err := sess.Login(ctx, "wanjiru", "secret-pass")
		Expect(err).NotTo(HaveOccurred())
		Expect(u.ID).To(Equal(int64(7)))
		Expect(sess.Token()).To(Equal("tok-123"))

		token, ok, err := store.Get(ctx, auth.KeyToken)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(token).To(Equal("tok-123"))

		raw, ok, err := store.Get(ctx, auth.KeyUser)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(raw).To(ContainSubstring(`"username":"wanjiru"`))
	})

	It("rejects an empty login without calling the API", func() {
		_, err := sess.Login(ctx, "", "")
		Expect(err).To(HaveOccurred())
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		Expect(sess.IsAuthenticated()).To(BeFalse())
	})

	It("sends the session token on bound client calls", func() {
		_, err := sess.Login(ctx, "wanjiru", "secret-pass")
		Expect(err).NotTo(HaveOccurred())

		u, err := sess.RefreshProfile(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(u.DisplayName()).To(Equal("Wanjiru Kamau"))
		Expect(up.headers()).To(Equal([]string{"Token tok-123"}))
	})

	It("restores a persisted session", func() {
		_, err := sess.Login(ctx, "wanjiru", "secret-pass")
		Expect(err).NotTo(HaveOccurred())

		restored := auth.NewSession(client, store, quietLogger())
		Expect(restored.Restore(ctx)).To(Succeed())
		Expect(restored.IsAuthenticated()).To(BeTrue())
		Expect(restored.User().Username).To(Equal("wanjiru"))
		Expect(restored.User().IsAdmin()).To(BeTrue())
	})

	It("drops an unreadable cached user but keeps the token", func() {
		Expect(store.Set(ctx, auth.KeyToken, "tok-9")).To(Succeed())
		Expect(store.Set(ctx, auth.KeyUser, "{not json")).To(Succeed())

		Expect(sess.Restore(ctx)).To(Succeed())
		Expect(sess.Token()).To(Equal("tok-9"))
		Expect(sess.User()).To(BeNil())
	})

	It("clears local state even when the server logout fails", func() {
		_, err := sess.Login(ctx, "wanjiru", "secret-pass")
		Expect(err).NotTo(HaveOccurred())
		up.failLogout()

		Expect(sess.Logout(ctx)).To(Succeed())
		Expect(up.logouts()).To(Equal(1))
		Expect(sess.IsAuthenticated()).To(BeFalse())
		Expect(sess.User()).To(BeNil())

		_, ok, err := store.Get(ctx, auth.KeyToken)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
		_, ok, err = store.Get(ctx, auth.KeyUser)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("skips the server call when logging out without a token", func() {
		Expect(sess.Logout(ctx)).To(Succeed())
		Expect(up.logouts()).To(Equal(0))
	})

	It("requires a token to update the profile", func() {
		name := "Wanji"
		_, err := sess.UpdateProfile(ctx, user.ProfileUpdate{FirstName: &name})
		Expect(err).To(MatchError(internal.ErrNotAuthenticated))
	})

	It("replaces the cached user after a profile update", func() {
		_, err := sess.Login(ctx, "wanjiru", "secret-pass")
		Expect(err).NotTo(HaveOccurred())

		name := "Wanji"
		u, err := sess.UpdateProfile(ctx, user.ProfileUpdate{FirstName: &name})
		Expect(err).NotTo(HaveOccurred())
		Expect(u.FirstName).To(Equal("Wanji"))
		Expect(sess.User().FirstName).To(Equal("Wanji"))

		raw, _, err := store.Get(ctx, auth.KeyUser)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw).To(ContainSubstring(`"first_name":"Wanji"`))
	})

	It("hands out copies of the cached user", func() {
		_, err := sess.Login(ctx, "wanjiru", "secret-pass")
		Expect(err).NotTo(HaveOccurred())

		u := sess.User()
		u.Username = "changed"
		Expect(sess.User().Username).To(Equal("wanjiru"))
	})
})
