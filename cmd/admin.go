package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/admin"
	"github.com/frahmantamala/salon-portal/internal/auth"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/appointment"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/transaction"
	"github.com/frahmantamala/salon-portal/pkg/logger"
)

var (
	filterStatus        string
	filterPaymentStatus string
	filterSearch        string
	reviewReason        string
	assumeYes           bool
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Admin console",
}

var adminAppointmentsCmd = &cobra.Command{
	Use:   "appointments",
	Short: "Manage appointments",
}

var adminTransactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "Manage M-Pesa transactions",
}

var listAppointmentsCmd = &cobra.Command{
	Use:   "list",
	Short: "List appointments",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConsole(cmd, func(ctx context.Context, console *admin.Console) error {
			items, err := console.ListAppointments(ctx, admin.AppointmentFilter{
				Status:        appointment.Status(filterStatus),
				PaymentStatus: appointment.PaymentStatus(filterPaymentStatus),
				Search:        filterSearch,
			})
			if err != nil {
				return err
			}
			renderAppointments(cmd.OutOrStdout(), items)
			return nil
		})
	},
}

var appointmentStatusCmd = &cobra.Command{
	Use:   "status <id> <pending|confirmed|completed|cancelled>",
	Short: "Change an appointment's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withConsole(cmd, func(ctx context.Context, console *admin.Console) error {
			items, err := console.UpdateAppointmentStatus(ctx, id, appointment.Status(args[1]))
			if err != nil {
				return err
			}
			renderAppointments(cmd.OutOrStdout(), items)
			return nil
		})
	},
}

var deleteAppointmentCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an appointment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		confirmed := assumeYes || newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).
			confirm(fmt.Sprintf("Delete appointment #%d?", id))
		if !confirmed {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
			return nil
		}
		return withConsole(cmd, func(ctx context.Context, console *admin.Console) error {
			if _, err := console.DeleteAppointment(ctx, id, true); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted appointment #%d\n", id)
			return nil
		})
	},
}

var reviewPaymentCmd = &cobra.Command{
	Use:   "review <id> <approve|reject>",
	Short: "Approve or reject a manually verified payment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withConsole(cmd, func(ctx context.Context, console *admin.Console) error {
			res, err := console.ReviewPayment(ctx, id, appointment.PaymentReview{Action: args[1], Reason: reviewReason})
			if err != nil {
				return err
			}
			msg := res.Message
			if msg == "" {
				msg = fmt.Sprintf("Payment for appointment #%d: %s", id, res.PaymentStatus)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		})
	},
}

var listTransactionsCmd = &cobra.Command{
	Use:   "list",
	Short: "List transactions with totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConsole(cmd, func(ctx context.Context, console *admin.Console) error {
			list, err := console.ListTransactions(ctx, transaction.Status(filterStatus))
			if err != nil {
				return err
			}
			renderTransactions(cmd.OutOrStdout(), list)
			return nil
		})
	},
}

var transactionStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Change a transaction's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withConsole(cmd, func(ctx context.Context, console *admin.Console) error {
			if _, err := console.UpdateTransactionStatus(ctx, id, transaction.Status(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Transaction #%d is now %s\n", id, args[1])
			return nil
		})
	},
}

// withConsole opens an admin console on the persisted session. The cached profile must
// belong to staff; the API enforces the same rule on every call.
func withConsole(cmd *cobra.Command, fn func(ctx context.Context, console *admin.Console) error) error {
	return withSession(cmd.Context(), func(ctx context.Context, cfg *internal.Config, sess *auth.Session) error {
		if !sess.IsAuthenticated() {
			return internal.ErrNotAuthenticated
		}
		if u := sess.User(); u != nil && !u.IsAdmin() {
			return internal.NewForbiddenError("admin access required", internal.ErrCodeAdminRequired)
		}
		console := admin.NewConsole(sess.Client(), cfg.Dashboard.PageSize, logger.LoggerWrapper())
		return fn(ctx, console)
	})
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func renderAppointments(w io.Writer, items []appointment.Appointment) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCUSTOMER\tSERVICE\tDATE\tTIME\tSTATUS\tPAYMENT")
	for _, a := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.CustomerName, a.ServiceName, a.AppointmentDate, a.AppointmentTime, a.Status, a.PaymentStatus)
	}
	_ = tw.Flush()
}

func renderTransactions(w io.Writer, list *admin.TransactionList) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPHONE\tAMOUNT\tSTATUS\tRECEIPT")
	for _, t := range list.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.PhoneNumber, t.Amount.String(), t.Status, t.MpesaTransactionID)
	}
	_ = tw.Flush()

	s := list.Stats
	fmt.Fprintf(w, "\n%d total, %d completed, %d pending, %d failed, KES %s collected\n",
		s.Total, s.Completed, s.Pending, s.Failed, s.TotalAmount.String())
}

func init() {
	listAppointmentsCmd.Flags().StringVar(&filterStatus, "status", "", "appointment status")
	listAppointmentsCmd.Flags().StringVar(&filterPaymentStatus, "payment-status", "", "payment status")
	listAppointmentsCmd.Flags().StringVar(&filterSearch, "search", "", "match customer name, email or service")
	deleteAppointmentCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")
	reviewPaymentCmd.Flags().StringVar(&reviewReason, "reason", "", "reason recorded with a rejection")
	listTransactionsCmd.Flags().StringVar(&filterStatus, "status", "", "transaction status")

	adminAppointmentsCmd.AddCommand(listAppointmentsCmd, appointmentStatusCmd, deleteAppointmentCmd, reviewPaymentCmd)
	adminTransactionsCmd.AddCommand(listTransactionsCmd, transactionStatusCmd)
	adminCmd.AddCommand(adminAppointmentsCmd, adminTransactionsCmd)

	rootCmd.AddCommand(adminCmd)
}
