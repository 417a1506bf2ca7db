package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/auth"
	"github.com/frahmantamala/salon-portal/internal/core/events"
	"github.com/frahmantamala/salon-portal/internal/dashboard"
	"github.com/frahmantamala/salon-portal/pkg/logger"
)

var dashboardWatch bool

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the admin dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withSession(ctx, func(ctx context.Context, cfg *internal.Config, sess *auth.Session) error {
			if !sess.IsAuthenticated() {
				return internal.ErrNotAuthenticated
			}
			lg := logger.LoggerWrapper()
			bus := events.NewEventBus(lg)
			svc := dashboard.NewService(
				dashboard.NewAPISource(sess.Client(), cfg.Dashboard.PageSize),
				cfg.Dashboard.RefreshInterval, bus, lg)
			out := cmd.OutOrStdout()

			if !dashboardWatch {
				if _, err := svc.Refresh(ctx); err != nil {
					return err
				}
				renderDashboard(out, svc.Current())
				return nil
			}

			// Run publishes after every refresh, applied or not.
			off := bus.Subscribe(events.EventTypeDashboardRefreshed, func(context.Context, events.Event) error {
				renderDashboard(out, svc.Current())
				return nil
			})
			defer off()

			if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	},
}

func renderDashboard(w io.Writer, view dashboard.View) {
	if view.Snapshot == nil {
		fmt.Fprintln(w, "No dashboard data yet")
		if view.LastError != "" {
			fmt.Fprintf(w, "Last refresh failed: %s\n", view.LastError)
		}
		return
	}
	snap := view.Snapshot

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total appointments\t%d\n", snap.TotalAppointments)
	fmt.Fprintf(tw, "Pending appointments\t%d\n", snap.PendingAppointments)
	fmt.Fprintf(tw, "Total revenue\tKES %s\n", snap.TotalRevenue.String())
	fmt.Fprintf(tw, "Users\t%d\n", snap.TotalUsers)
	fmt.Fprintf(tw, "Services\t%d\n", snap.TotalServices)
	fmt.Fprintf(tw, "Gallery items\t%d\n", snap.TotalGalleryItems)
	_ = tw.Flush()

	if len(snap.RecentActivity) > 0 {
		fmt.Fprintln(w, "\nRecent activity")
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, a := range snap.RecentActivity {
			fmt.Fprintf(tw, "  %s %s\t%s\t%s\n", a.Date, a.Time, a.Description, a.Status)
		}
		_ = tw.Flush()
	}

	fmt.Fprintf(w, "\nRefreshed %s", snap.RefreshedAt.Format("2006-01-02 15:04:05"))
	if view.Stale {
		fmt.Fprintf(w, " (stale: %s)", view.LastError)
	}
	fmt.Fprintln(w)
}

func init() {
	dashboardCmd.Flags().BoolVarP(&dashboardWatch, "watch", "w", false, "keep refreshing on the configured interval")

	rootCmd.AddCommand(dashboardCmd)
}
