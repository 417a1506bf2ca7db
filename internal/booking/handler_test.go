package booking_test

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/apiclient"
	"github.com/frahmantamala/salon-portal/internal/booking"
	"github.com/frahmantamala/salon-portal/internal/payment"
)

var _ = Describe("Handler", func() {
	var (
		api      *salonAPI
		registry *payment.Registry
		h        *booking.Handler
	)

	BeforeEach(func() {
		api = newSalonAPI(map[string]string{
			"POST /api/appointments/": `{"id":31,"customer_name":"Achieng","service":2,"appointment_date":"2024-05-10","appointment_time":"11:00","status":"pending","payment_status":"pending","amount_paid":"0.00"}`,
		})
		client := apiclient.NewClient(apiclient.Config{BaseURL: api.server.URL}, discardLogger())
		registry = payment.NewRegistry(nil, payment.Options{Logger: discardLogger()})
		h = booking.NewHandler(booking.NewService(client, discardLogger()), registry, client, discardLogger())
	})

	AfterEach(func() {
		registry.CloseAll()
		api.server.Close()
	})

	It("opens a payment session for a new booking", func() {
		body := `{"customer_name":"Achieng","customer_email":"achieng@example.com","customer_phone":"0712345678","service":2,"appointment_date":"2024-05-10","appointment_time":"11:00"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body))
		req = req.WithContext(internal.ContextWithToken(req.Context(), "cust-token"))
		rec := httptest.NewRecorder()
		h.BookAppointment(rec, req)

		Expect(rec.Code).To(Equal(http.StatusCreated))
		var resp booking.BookingResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Appointment.ID).To(Equal(int64(31)))
		Expect(resp.Payment).NotTo(BeNil())
		Expect(resp.Payment.AppointmentID).To(Equal(int64(31)))
		Expect(resp.Payment.State).To(Equal(payment.StateIdle))

		sess, err := registry.GetFor(resp.Payment.ID, payment.OwnerKey("cust-token"))
		Expect(err).NotTo(HaveOccurred())
		Expect(sess.AppointmentID()).To(Equal(int64(31)))
		_, err = registry.GetFor(resp.Payment.ID, payment.OwnerKey("other-token"))
		Expect(err).To(MatchError(internal.ErrSessionNotFound))
	})

	It("requires a token to list appointments", func() {
		rec := httptest.NewRecorder()
		h.ListAppointments(rec, httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil))
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("rejects an invalid booking", func() {
		rec := httptest.NewRecorder()
		h.BookAppointment(rec, httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(`{"customer_name":"Achieng"}`)))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(registry.Len()).To(Equal(0))
	})
})
