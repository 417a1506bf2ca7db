package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/salon-portal/internal/core/datamodel/appointment"
	"github.com/frahmantamala/salon-portal/internal/core/events"
	"github.com/frahmantamala/salon-portal/internal/payment"
)

type scriptedGateway struct {
	mu        sync.Mutex
	initiates []*payment.InitiateResult
	status    appointment.PaymentStatus
	phones    []string
	receipts  []string
}

func (g *scriptedGateway) Initiate(_ context.Context, _ int64, phone string) (*payment.InitiateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.phones = append(g.phones, phone)
	res := g.initiates[0]
	if len(g.initiates) > 1 {
		g.initiates = g.initiates[1:]
	}
	return res, nil
}

func (g *scriptedGateway) Status(_ context.Context, id int64) (*payment.StatusResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &payment.StatusResult{AppointmentID: id, PaymentStatus: g.status}, nil
}

func (g *scriptedGateway) Verify(_ context.Context, id int64, receipt string) (*payment.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.receipts = append(g.receipts, receipt)
	return &payment.VerifyResult{Success: true, AppointmentID: id}, nil
}

func (g *scriptedGateway) seen() ([]string, []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.phones...), append([]string(nil), g.receipts...)
}

var _ = Describe("paymentFlow", func() {
	var (
		gateway  *scriptedGateway
		bus      *events.EventBus
		registry *payment.Registry
		out      *bytes.Buffer
	)

	BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		gateway = &scriptedGateway{status: appointment.PaymentPending}
		bus = events.NewEventBus(lg)
		registry = payment.NewRegistry(gateway, payment.Options{
			PollInterval: 5 * time.Millisecond,
			Bus:          bus,
			Logger:       lg,
		})
		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		registry.CloseAll()
	})

	newFlow := func(input, phone string) *paymentFlow {
		return &paymentFlow{
			session: registry.Open(12),
			prompt:  newPrompter(strings.NewReader(input), out),
			out:     out,
			phone:   phone,
		}
	}

	It("waits through polling until the payment completes", func() {
		gateway.initiates = []*payment.InitiateResult{{Success: true, CheckoutRequestID: "ws_CO_1"}}
		gateway.status = appointment.PaymentCompleted
		flow := newFlow("\n", "0712 345 678")

		Expect(flow.run(context.Background(), bus)).To(Succeed())
		Expect(flow.session.Snapshot().State).To(Equal(payment.StateSuccess))

		phones, _ := gateway.seen()
		Expect(phones).To(Equal([]string{"254712345678"}))
	})

	It("falls back to manual verification after a failed push", func() {
		gateway.initiates = []*payment.InitiateResult{{Success: false, Error: "Insufficient balance"}}
		flow := newFlow("0712345678\nm\nqk12abc345\n", "")

		Expect(flow.run(context.Background(), bus)).To(Succeed())
		Expect(flow.session.Snapshot().State).To(Equal(payment.StateSuccess))
		Expect(out.String()).To(ContainSubstring("Insufficient balance"))

		_, receipts := gateway.seen()
		Expect(receipts).To(Equal([]string{"QK12ABC345"}))
	})

	It("re-prompts on a receipt that is too short", func() {
		gateway.initiates = []*payment.InitiateResult{{Success: false, Error: "Request cancelled by user"}}
		flow := newFlow("0712345678\nm\nabc\nQK12ABC345\n", "")

		Expect(flow.run(context.Background(), bus)).To(Succeed())
		_, receipts := gateway.seen()
		Expect(receipts).To(Equal([]string{"QK12ABC345"}))
	})

	It("stops when the user quits", func() {
		gateway.initiates = []*payment.InitiateResult{{Success: false}}
		flow := newFlow("0712345678\nq\n", "")

		Expect(flow.run(context.Background(), bus)).To(Succeed())
		Expect(flow.session.Snapshot().State).To(Equal(payment.StateFailed))
		Expect(out.String()).To(ContainSubstring("Payment left in state failed"))
	})

	It("returns when the context ends mid-poll", func() {
		gateway.initiates = []*payment.InitiateResult{{Success: true, CheckoutRequestID: "ws_CO_2"}}
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		flow := newFlow("0712345678\n", "")
		Expect(flow.run(ctx, bus)).To(MatchError(context.DeadlineExceeded))
	})
})
