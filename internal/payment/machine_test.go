package payment_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/appointment"
	"github.com/frahmantamala/salon-portal/internal/core/events"
	"github.com/frahmantamala/salon-portal/internal/payment"
)

var _ = Describe("Session", func() {
	var (
		clock   *fakeClock
		gateway *fakeGateway
		bus     *events.EventBus
		session *payment.Session
		ctx     context.Context
	)

	state := func() payment.State { return session.Snapshot().State }
	attempts := func() int { return session.Snapshot().Attempts }

	// tickAndWait delivers one poll tick and waits until it has been applied.
	tickAndWait := func(n int) {
		Expect(clock.Tick()).To(BeTrue())
		Eventually(attempts).Should(Equal(n))
	}

	startChecking := func() {
		gateway.initiateResult = &payment.InitiateResult{Success: true, CheckoutRequestID: "ws_CO_123", Message: "STK push sent"}
		snap, err := session.Submit(ctx, "0712345678")
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.State).To(Equal(payment.StateChecking))
	}

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		clock = newFakeClock()
		gateway = &fakeGateway{}
		bus = events.NewEventBus(logger)
		ctx = context.Background()
		session = payment.NewSession("sess-1", 42, gateway, payment.Options{
			Clock:  clock,
			Bus:    bus,
			Logger: logger,
		})
	})

	AfterEach(func() {
		session.Close()
		Expect(clock.Active()).To(Equal(0))
	})

	Context("submitting the phone number", func() {
		It("stays idle with a validation message when the phone is empty", func() {
			// When
			snap, err := session.Submit(ctx, "   ")

			// Then
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(snap.State).To(Equal(payment.StateIdle))
			Expect(snap.Message).To(Equal("Please enter your M-Pesa phone number"))
			initiate, _, _ := gateway.counts()
			Expect(initiate).To(Equal(0))
			Expect(clock.Created()).To(Equal(0))
		})

		It("moves to failed when the gateway reports failure", func() {
			// Given
			gateway.initiateResult = &payment.InitiateResult{Success: false, Error: "Invalid phone number"}

			// When
			snap, err := session.Submit(ctx, "0712345678")

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.State).To(Equal(payment.StateFailed))
			Expect(snap.Message).To(Equal("Invalid phone number"))
			Expect(snap.FailureCode).To(Equal(internal.ErrCodePaymentFailed))
			Expect(clock.Active()).To(Equal(0))
		})

		It("moves to failed on a non-2xx answer and shows the API message", func() {
			// Given
			gateway.initiateErr = internal.NewExternalError("Appointment not found", http.StatusNotFound)

			// When
			snap, _ := session.Submit(ctx, "0712345678")

			// Then
			Expect(snap.State).To(Equal(payment.StateFailed))
			Expect(snap.Message).To(Equal("Error: Appointment not found"))
		})

		It("moves to failed on a transport error", func() {
			// Given
			gateway.initiateErr = internal.NewNetworkError("salon API unreachable", errors.New("connection refused"))

			// When
			snap, _ := session.Submit(ctx, "0712345678")

			// Then
			Expect(snap.State).To(Equal(payment.StateFailed))
			Expect(snap.Message).To(Equal("An error occurred. Please try again."))
		})

		It("rejects a second submit while not idle", func() {
			// Given
			startChecking()

			// When
			_, err := session.Submit(ctx, "0712345678")

			// Then
			Expect(err).To(MatchError(internal.ErrInvalidTransition))
		})
	})

	Context("scenario A: the first poll completes the payment", func() {
		It("normalizes the phone, polls and reaches success", func() {
			// Given
			gateway.statuses = []appointment.PaymentStatus{appointment.PaymentCompleted}

			// When
			startChecking()

			// Then
			Expect(gateway.lastPhone).To(Equal("254712345678"))
			snap := session.Snapshot()
			Expect(snap.CheckoutReference).To(Equal("ws_CO_123"))
			Expect(snap.Attempts).To(Equal(0))
			Expect(clock.Active()).To(Equal(1))

			// When
			tickAndWait(1)

			// Then
			Expect(state()).To(Equal(payment.StateSuccess))
			Expect(session.Snapshot().Message).To(Equal("Payment successful! Your appointment has been confirmed."))
			Expect(clock.Active()).To(Equal(0))
		})
	})

	Context("scenario B: the status never turns terminal", func() {
		It("times out at exactly the 40th attempt", func() {
			// Given
			startChecking()

			// When / Then
			for i := 1; i < payment.MaxPollAttempts; i++ {
				tickAndWait(i)
				Expect(state()).To(Equal(payment.StateChecking))
				Expect(clock.Active()).To(Equal(1))
			}
			tickAndWait(payment.MaxPollAttempts)

			Expect(state()).To(Equal(payment.StateTimeout))
			Expect(session.Snapshot().Elapsed).To(Equal("2:00"))
			_, statusCalls, _ := gateway.counts()
			Expect(statusCalls).To(Equal(payment.MaxPollAttempts))
			Expect(clock.Active()).To(Equal(0))
			Expect(clock.Tick()).To(BeFalse())
		})

		It("counts status errors as non-terminal ticks", func() {
			// Given
			startChecking()
			gateway.mu.Lock()
			gateway.statusErr = errors.New("boom")
			gateway.mu.Unlock()

			// When
			for i := 1; i <= payment.MaxPollAttempts; i++ {
				tickAndWait(i)
			}

			// Then
			Expect(state()).To(Equal(payment.StateTimeout))
		})
	})

	DescribeTable("terminal poll results",
		func(status appointment.PaymentStatus, expected payment.State) {
			gateway.statuses = []appointment.PaymentStatus{appointment.PaymentInitiated, status}
			startChecking()

			tickAndWait(1)
			Expect(state()).To(Equal(payment.StateChecking))
			tickAndWait(2)

			Expect(state()).To(Equal(expected))
			Expect(clock.Active()).To(Equal(0))
			if expected == payment.StateFailed {
				Expect(session.Snapshot().FailureCode).To(Equal(internal.ErrCodePaymentFailed))
			} else {
				Expect(session.Snapshot().FailureCode).To(BeEmpty())
			}
		},
		Entry("cancelled", appointment.PaymentCancelled, payment.StateCancelled),
		Entry("failed", appointment.PaymentFailed, payment.StateFailed),
		Entry("pending verification", appointment.PaymentPendingVerification, payment.StateManual),
	)

	Context("scenario C: manual verification", func() {
		BeforeEach(func() {
			gateway.verifyResult = &payment.VerifyResult{Success: true, Message: "Payment submitted for verification"}
		})

		It("reaches success from the manual form", func() {
			// Given
			_, err := session.ChooseManual()
			Expect(err).NotTo(HaveOccurred())

			// When
			snap, err := session.Verify(ctx, " sh12xy34za ")

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.State).To(Equal(payment.StateSuccess))
			Expect(gateway.lastReceipt).To(Equal("SH12XY34ZA"))
		})

		It("reaches success while polling and stops the poller", func() {
			// Given
			startChecking()
			tickAndWait(1)

			// When
			snap, err := session.Verify(ctx, "SH12XY34ZA")

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.State).To(Equal(payment.StateSuccess))
			Expect(clock.Active()).To(Equal(0))
		})

		It("reaches success after a timeout", func() {
			// Given
			startChecking()
			for i := 1; i <= payment.MaxPollAttempts; i++ {
				tickAndWait(i)
			}
			Expect(state()).To(Equal(payment.StateTimeout))

			// When
			snap, err := session.Verify(ctx, "SH12XY34ZA")

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.State).To(Equal(payment.StateSuccess))
		})

		It("rejects short receipts without calling the API", func() {
			// Given
			_, _ = session.ChooseManual()

			// When
			snap, err := session.Verify(ctx, "SH12")

			// Then
			Expect(err).To(HaveOccurred())
			Expect(snap.State).To(Equal(payment.StateManual))
			Expect(snap.Message).To(Equal("Please enter a valid M-Pesa receipt number (e.g., SH12XY34ZA)"))
			_, _, verifyCalls := gateway.counts()
			Expect(verifyCalls).To(Equal(0))
		})

		It("stays in manual when the API rejects the receipt", func() {
			// Given
			_, _ = session.ChooseManual()
			gateway.verifyErr = internal.NewExternalError("Receipt already used", http.StatusBadRequest)

			// When
			snap, err := session.Verify(ctx, "SH12XY34ZA")

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.State).To(Equal(payment.StateManual))
			Expect(snap.Message).To(Equal("Verification failed: Receipt already used"))
			Expect(snap.FailureCode).To(Equal(internal.ErrCodeVerificationFail))

			// When a valid receipt follows
			gateway.verifyErr = nil
			snap, err = session.Verify(ctx, "SH12XY34ZB")

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.State).To(Equal(payment.StateSuccess))
			Expect(snap.FailureCode).To(BeEmpty())
		})
	})

	Context("timer lifecycle", func() {
		It("never holds more than one live ticker across retries and manual switches", func() {
			for round := 0; round < 3; round++ {
				startChecking()
				Expect(clock.Active()).To(Equal(1))
				tickAndWait(1)
				Expect(clock.Active()).To(BeNumerically("<=", 1))

				_, err := session.ChooseManual()
				Expect(err).NotTo(HaveOccurred())
				Expect(clock.Active()).To(Equal(0))

				_, err = session.Retry()
				Expect(err).NotTo(HaveOccurred())
				Expect(state()).To(Equal(payment.StateIdle))
				Expect(attempts()).To(Equal(0))
			}
			Expect(clock.Created()).To(Equal(3))
		})

		It("stops polling and rejects later calls after Close", func() {
			// Given
			startChecking()

			// When
			session.Close()

			// Then
			Expect(clock.Active()).To(Equal(0))
			Expect(session.Snapshot().Closed).To(BeTrue())
			_, err := session.Retry()
			Expect(err).To(MatchError(internal.ErrSessionClosed))
		})

		It("discards an initiate result that arrives after Close", func() {
			// Given
			gateway.initiateResult = &payment.InitiateResult{Success: true, CheckoutRequestID: "ws_CO_late"}
			gateway.initiateBlock = make(chan struct{})
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, _ = session.Submit(ctx, "0712345678")
			}()
			Eventually(state).Should(Equal(payment.StateProcessing))

			// When
			session.Close()
			close(gateway.initiateBlock)
			wg.Wait()

			// Then
			Expect(state()).To(Equal(payment.StateProcessing))
			Expect(clock.Created()).To(Equal(0))
		})
	})

	Context("retry", func() {
		It("is only allowed from unhappy end states", func() {
			_, err := session.Retry()
			Expect(err).To(MatchError(internal.ErrInvalidTransition))

			gateway.initiateResult = &payment.InitiateResult{Success: false}
			snap, _ := session.Submit(ctx, "0712345678")
			Expect(snap.State).To(Equal(payment.StateFailed))
			Expect(snap.Message).To(Equal("Payment initiation failed. Please try again."))

			snap, err = session.Retry()
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.State).To(Equal(payment.StateIdle))
			Expect(snap.Message).To(BeEmpty())
			Expect(snap.FailureCode).To(BeEmpty())
		})
	})

	It("publishes every transition on the event bus", func() {
		// Given
		var mu sync.Mutex
		seen := map[string]bool{}
		unsubscribe := bus.Subscribe(events.EventTypePaymentStateChanged, func(_ context.Context, e events.Event) error {
			ev := e.(*events.PaymentStateChangedEvent)
			mu.Lock()
			seen[ev.To] = true
			mu.Unlock()
			return nil
		})
		defer unsubscribe()
		gateway.statuses = []appointment.PaymentStatus{appointment.PaymentCompleted}

		// When
		startChecking()
		tickAndWait(1)

		// Then
		Eventually(func() bool {
			mu.Lock()
			defer mu.Unlock()
			return seen["processing"] && seen["checking"] && seen["success"]
		}).Should(BeTrue())
	})
})
