package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/auth"
	"github.com/frahmantamala/salon-portal/pkg/logger"
)

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and persist the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(ctx context.Context, _ *internal.Config, sess *auth.Session) error {
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			username, password := loginUsername, loginPassword
			var err error
			if username == "" {
				if username, err = p.ask("Username", ""); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = p.ask("Password", ""); err != nil {
					return err
				}
			}

			u, err := sess.Login(ctx, username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", u.DisplayName())
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the token and clear the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(ctx context.Context, _ *internal.Config, sess *auth.Session) error {
			if err := sess.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user, refreshed from the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(ctx context.Context, _ *internal.Config, sess *auth.Session) error {
			if !sess.IsAuthenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			u, err := sess.RefreshProfile(ctx)
			if err != nil {
				return err
			}
			role := "customer"
			if u.IsAdmin() {
				role = "admin"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", u.DisplayName(), u.Email, role)
			return nil
		})
	},
}

// withSession loads config, restores the persisted session and hands it to fn.
func withSession(ctx context.Context, fn func(ctx context.Context, cfg *internal.Config, sess *auth.Session) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	sess, backend, err := restoreSession(ctx, cfg, logger.LoggerWrapper())
	if err != nil {
		return err
	}
	defer backend.Close()
	return fn(ctx, cfg, sess)
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "account username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password (prompted when empty)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}
