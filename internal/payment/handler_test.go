package payment_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/apiclient"
	"github.com/frahmantamala/salon-portal/internal/core/events"
	"github.com/frahmantamala/salon-portal/internal/payment"
)

type mpesaUpstream struct {
	mu         sync.Mutex
	server     *httptest.Server
	status     string
	phones     []string
	authByPath map[string][]string
}

func newMpesaUpstream() *mpesaUpstream {
	u := &mpesaUpstream{status: "initiated", authByPath: map[string][]string{}}
	record := func(r *http.Request) {
		u.mu.Lock()
		defer u.mu.Unlock()
		u.authByPath[r.URL.Path] = append(u.authByPath[r.URL.Path], r.Header.Get("Authorization"))
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/mpesa/initiate/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		var body struct {
			PhoneNumber string `json:"phone_number"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		u.mu.Lock()
		u.phones = append(u.phones, body.PhoneNumber)
		u.mu.Unlock()
		_, _ = io.WriteString(w, `{"success":true,"CheckoutRequestID":"ws_CO_1"}`)
	})
	mux.HandleFunc("/api/mpesa/status/9/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		u.mu.Lock()
		status := u.status
		u.mu.Unlock()
		_, _ = io.WriteString(w, `{"appointment_id":9,"payment_status":"`+status+`"}`)
	})
	u.server = httptest.NewServer(mux)
	return u
}

func (u *mpesaUpstream) setStatus(s string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status = s
}

func (u *mpesaUpstream) auth(path string) []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.authByPath[path]...)
}

func (u *mpesaUpstream) submittedPhones() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.phones...)
}

var _ = Describe("Handler", func() {
	var (
		up       *mpesaUpstream
		clock    *fakeClock
		registry *payment.Registry
		router   chi.Router
	)

	withToken := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := r.Header.Get("X-Test-Token"); token != "" {
				r = r.WithContext(internal.ContextWithToken(r.Context(), token))
			}
			next.ServeHTTP(w, r)
		})
	}

	do := func(method, path, body, token string) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		if token != "" {
			req.Header.Set("X-Test-Token", token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	decode := func(rec *httptest.ResponseRecorder) payment.SessionResponse {
		var out payment.SessionResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
		return out
	}

	open := func(token string) payment.SessionResponse {
		rec := do(http.MethodPost, "/payments/sessions", `{"appointment_id":9}`, token)
		Expect(rec.Code).To(Equal(http.StatusCreated))
		return decode(rec)
	}

	BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		up = newMpesaUpstream()
		clock = newFakeClock()
		bus := events.NewEventBus(lg)
		client := apiclient.NewClient(apiclient.Config{BaseURL: up.server.URL}, lg)
		registry = payment.NewRegistry(nil, payment.Options{Clock: clock, Bus: bus, Logger: lg})
		h := payment.NewHandler(registry, client, bus, lg)

		r := chi.NewRouter()
		r.Use(withToken)
		r.Route("/payments/sessions", func(r chi.Router) {
			r.Post("/", h.Open)
			r.Get("/{sessionID}", h.Get)
			r.Delete("/{sessionID}", h.Close)
			r.Post("/{sessionID}/submit", h.Submit)
			r.Post("/{sessionID}/retry", h.Retry)
			r.Post("/{sessionID}/manual", h.Manual)
			r.Post("/{sessionID}/verify", h.Verify)
			r.Get("/{sessionID}/stream", h.Stream)
		})
		router = r
	})

	AfterEach(func() {
		registry.CloseAll()
		up.server.Close()
	})

	It("opens an idle session", func() {
		snap := open("")
		Expect(snap.ID).NotTo(BeEmpty())
		Expect(snap.AppointmentID).To(Equal(int64(9)))
		Expect(snap.State).To(Equal(payment.StateIdle))
		Expect(snap.CanManual).To(BeTrue())
		Expect(snap.CanRetry).To(BeFalse())
		Expect(registry.Len()).To(Equal(1))
	})

	It("rejects a session without an appointment", func() {
		rec := do(http.MethodPost, "/payments/sessions", `{}`, "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("answers 404 for an unknown session", func() {
		rec := do(http.MethodGet, "/payments/sessions/nope", "", "")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("drives a submitted payment to success with the caller's token", func() {
		snap := open("cust-token")

		rec := do(http.MethodPost, "/payments/sessions/"+snap.ID+"/submit", `{"phone_number":"0712 345 678"}`, "cust-token")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decode(rec).State).To(Equal(payment.StateChecking))
		Expect(up.submittedPhones()).To(Equal([]string{"254712345678"}))
		Expect(up.auth("/api/mpesa/initiate/")).To(Equal([]string{"Token cust-token"}))

		up.setStatus("completed")
		Expect(clock.Tick()).To(BeTrue())
		Eventually(func() payment.State {
			return decode(do(http.MethodGet, "/payments/sessions/"+snap.ID, "", "cust-token")).State
		}).Should(Equal(payment.StateSuccess))

		Expect(up.auth("/api/mpesa/status/9/")).To(Equal([]string{"Token cust-token"}))
	})

	It("hides a session from callers other than its owner", func() {
		// Given
		snap := open("alice")
		base := "/payments/sessions/" + snap.ID

		// When
		get := do(http.MethodGet, base, "", "mallory")
		submit := do(http.MethodPost, base+"/submit", `{"phone_number":"0799000000"}`, "mallory")
		manual := do(http.MethodPost, base+"/manual", "", "mallory")
		verify := do(http.MethodPost, base+"/verify", `{"receipt":"SH12XY34ZA"}`, "mallory")
		stream := do(http.MethodGet, base+"/stream", "", "mallory")
		remove := do(http.MethodDelete, base, "", "mallory")
		anonymous := do(http.MethodGet, base, "", "")

		// Then
		for _, rec := range []*httptest.ResponseRecorder{get, submit, manual, verify, stream, remove, anonymous} {
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		}
		Expect(up.auth("/api/mpesa/initiate/")).To(BeEmpty())
		Expect(up.auth("/api/mpesa/verify/")).To(BeEmpty())
		Expect(registry.Len()).To(Equal(1))

		owned := do(http.MethodGet, base, "", "alice")
		Expect(owned.Code).To(Equal(http.StatusOK))
		Expect(decode(owned).State).To(Equal(payment.StateIdle))
		Expect(do(http.MethodDelete, base, "", "alice").Code).To(Equal(http.StatusNoContent))
	})

	It("returns the session alongside a rejected submit", func() {
		snap := open("")
		rec := do(http.MethodPost, "/payments/sessions/"+snap.ID+"/submit", `{"phone_number":"  "}`, "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		var body struct {
			Error   map[string]interface{}  `json:"error"`
			Session payment.SessionResponse `json:"session"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Session.State).To(Equal(payment.StateIdle))
		Expect(body.Session.Message).To(Equal("Please enter your M-Pesa phone number"))
	})

	It("rejects a short receipt without contacting the API", func() {
		snap := open("")
		rec := do(http.MethodPost, "/payments/sessions/"+snap.ID+"/verify", `{"receipt":"abc"}`, "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(up.auth("/api/mpesa/verify/")).To(BeEmpty())
	})

	It("refuses retry from idle", func() {
		snap := open("")
		rec := do(http.MethodPost, "/payments/sessions/"+snap.ID+"/retry", "", "")
		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("tears a session down", func() {
		snap := open("")
		Expect(do(http.MethodDelete, "/payments/sessions/"+snap.ID, "", "").Code).To(Equal(http.StatusNoContent))
		Expect(do(http.MethodGet, "/payments/sessions/"+snap.ID, "", "").Code).To(Equal(http.StatusNotFound))
		Expect(registry.Len()).To(Equal(0))
	})

	It("streams snapshots until the session closes", func() {
		snap := open("")
		server := httptest.NewServer(router)
		defer server.Close()

		url := "ws" + strings.TrimPrefix(server.URL, "http") + "/payments/sessions/" + snap.ID + "/stream"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

		read := func() payment.SessionResponse {
			_, raw, err := conn.ReadMessage()
			Expect(err).NotTo(HaveOccurred())
			var out payment.SessionResponse
			Expect(json.Unmarshal(raw, &out)).To(Succeed())
			return out
		}

		first := read()
		Expect(first.State).To(Equal(payment.StateIdle))

		sess, err := registry.Get(snap.ID)
		Expect(err).NotTo(HaveOccurred())
		_, err = sess.ChooseManual()
		Expect(err).NotTo(HaveOccurred())

		manual := read()
		Expect(manual.State).To(Equal(payment.StateManual))
		Expect(manual.Version).To(BeNumerically(">", first.Version))

		Expect(registry.Close(snap.ID)).To(Succeed())
		closed := read()
		Expect(closed.Closed).To(BeTrue())
	})
})
