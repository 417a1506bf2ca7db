package openapi_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/salon-portal/internal/transport/openapi"
)

var _ = Describe("Load", func() {
	It("accepts the published document", func() {
		doc, err := openapi.Load(context.Background(), "../../../api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())

		ops := openapi.Operations(doc)
		Expect(ops).To(ContainElements(
			"POST /payments/sessions",
			"POST /payments/sessions/{sessionID}/submit",
			"POST /payments/sessions/{sessionID}/verify",
			"GET /admin/dashboard",
			"POST /admin/appointments/{id}/payment-review",
		))
	})

	It("rejects a document with an undeclared path parameter", func() {
		path := filepath.Join(GinkgoT().TempDir(), "broken.yml")
		Expect(os.WriteFile(path, []byte(`openapi: 3.0.3
info:
  title: broken
  version: "1"
paths:
  /things/{id}:
    get:
      responses:
        '200':
          description: ok
`), 0o600)).To(Succeed())

		_, err := openapi.Load(context.Background(), path)
		Expect(err).To(HaveOccurred())
	})
})
