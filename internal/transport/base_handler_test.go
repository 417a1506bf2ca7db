package transport_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/transport"
)

var _ = Describe("BaseHandler", func() {
	var h *transport.BaseHandler

	BeforeEach(func() {
		h = transport.NewBaseHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	Describe("DecodeJSON", func() {
		It("keeps the decoder error as the cause of a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"appointment_id":`))
			var dst struct {
				AppointmentID int64 `json:"appointment_id"`
			}

			err := h.DecodeJSON(req, &dst)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(appErr.Message).To(Equal("invalid request body"))
			Expect(appErr.Cause).To(HaveOccurred())
			Expect(errors.Unwrap(appErr)).To(Equal(appErr.Cause))
		})

		It("rejects an empty body without a cause", func() {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("  "))

			err := h.DecodeJSON(req, &struct{}{})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Message).To(Equal("request body is required"))
			Expect(appErr.Cause).NotTo(HaveOccurred())
		})
	})

	Describe("WriteAppError", func() {
		It("answers with the error body and leaves the cause out of it", func() {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))
			err := h.DecodeJSON(req, &struct{}{})
			rec := httptest.NewRecorder()

			h.WriteAppError(rec, req, err)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			var body map[string]map[string]interface{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body["error"]["code"]).To(Equal(string(internal.ErrCodeValidationFailed)))
			Expect(body["error"]["message"]).To(Equal("invalid request body"))
			Expect(body["error"]).NotTo(HaveKey("cause"))
		})

		It("turns unknown errors into a 500", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()

			h.WriteAppError(rec, req, io.ErrUnexpectedEOF)

			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		})
	})
})
