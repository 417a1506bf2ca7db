package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/auth"
	"github.com/frahmantamala/salon-portal/internal/core/events"
	"github.com/frahmantamala/salon-portal/internal/payment"
	"github.com/frahmantamala/salon-portal/pkg/logger"
)

var (
	payPhone   string
	payReceipt string
)

var payCmd = &cobra.Command{
	Use:   "pay <appointment-id>",
	Short: "Pay for an appointment with M-Pesa",
	Long: `Send an STK push for the appointment and wait for the confirmation. Failed,
cancelled or timed-out payments can be retried or verified manually with a receipt code.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appointmentID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || appointmentID <= 0 {
			return fmt.Errorf("invalid appointment id %q", args[0])
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withSession(ctx, func(ctx context.Context, cfg *internal.Config, sess *auth.Session) error {
			if !sess.IsAuthenticated() {
				return internal.ErrNotAuthenticated
			}

			lg := logger.LoggerWrapper()
			bus := events.NewEventBus(lg)
			registry := payment.NewRegistry(payment.NewAPIGateway(sess.Client()), payment.Options{
				PollInterval:    cfg.Payment.PollInterval,
				MaxPollAttempts: cfg.Payment.MaxPollAttempts,
				CountryCode:     cfg.Payment.CountryCode,
				Bus:             bus,
				Logger:          lg,
			})
			defer registry.CloseAll()

			phone := payPhone
			if phone == "" {
				if u := sess.User(); u != nil {
					phone = u.PhoneNumber
				}
			}
			flow := &paymentFlow{
				session: registry.Open(appointmentID),
				prompt:  newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()),
				out:     cmd.OutOrStdout(),
				phone:   phone,
				receipt: payReceipt,
			}
			return flow.run(ctx, bus)
		})
	},
}

// paymentFlow drives one payment session from a terminal.
type paymentFlow struct {
	session *payment.Session
	prompt  *prompter
	out     io.Writer
	phone   string
	receipt string
}

var errPaymentAbandoned = errors.New("payment abandoned")

func (f *paymentFlow) run(ctx context.Context, bus *events.EventBus) error {
	changed := make(chan struct{}, 1)
	off := bus.Subscribe(events.EventTypePaymentStateChanged, func(_ context.Context, event events.Event) error {
		if e, ok := event.(*events.PaymentStateChangedEvent); ok && e.SessionID == f.session.ID() {
			select {
			case changed <- struct{}{}:
			default:
			}
		}
		return nil
	})
	defer off()

	var lastMessage string
	for {
		snap := f.session.Snapshot()
		if snap.Message != "" && snap.Message != lastMessage {
			fmt.Fprintln(f.out, snap.Message)
			lastMessage = snap.Message
		}

		var err error
		switch snap.State {
		case payment.StateSuccess:
			return nil
		case payment.StateIdle:
			err = f.submit(ctx)
		case payment.StateProcessing, payment.StateChecking:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-changed:
			}
		case payment.StateManual:
			err = f.verify(ctx)
		default:
			err = f.recover()
		}

		if errors.Is(err, errPaymentAbandoned) {
			fmt.Fprintf(f.out, "Payment left in state %s\n", f.session.Snapshot().State)
			return nil
		}
		if err != nil {
			var appErr *internal.AppError
			if !errors.As(err, &appErr) || appErr.Type != internal.ErrorTypeValidation {
				return err
			}
			fmt.Fprintln(f.out, appErr.GetDetailedMessage())
		}
	}
}

func (f *paymentFlow) submit(ctx context.Context) error {
	phone, err := f.prompt.ask("M-Pesa phone number", f.phone)
	if err != nil {
		return errPaymentAbandoned
	}
	f.phone = phone
	_, err = f.session.Submit(ctx, phone)
	return err
}

func (f *paymentFlow) verify(ctx context.Context) error {
	receipt := f.receipt
	f.receipt = ""
	if receipt == "" {
		var err error
		receipt, err = f.prompt.ask("M-Pesa receipt code (blank to go back, q to quit)", "")
		if err != nil || strings.EqualFold(receipt, "q") {
			return errPaymentAbandoned
		}
	}
	if receipt == "" {
		_, err := f.session.Retry()
		return err
	}
	_, err := f.session.Verify(ctx, receipt)
	return err
}

func (f *paymentFlow) recover() error {
	choice, err := f.prompt.ask("[r]etry, [m]anual verification or [q]uit", "r")
	if err != nil {
		return errPaymentAbandoned
	}
	switch strings.ToLower(choice) {
	case "r", "retry":
		_, err = f.session.Retry()
	case "m", "manual":
		_, err = f.session.ChooseManual()
	default:
		return errPaymentAbandoned
	}
	return err
}

func init() {
	payCmd.Flags().StringVar(&payPhone, "phone", "", "M-Pesa phone number (defaults to the profile's)")
	payCmd.Flags().StringVar(&payReceipt, "receipt", "", "receipt code to verify once in manual mode")

	rootCmd.AddCommand(payCmd)
}
