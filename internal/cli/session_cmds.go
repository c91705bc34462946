package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password, from string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with email and password. The password may also come from
MITRACTL_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = a.v.GetString("password")
			}
			if email == "" || password == "" {
				return errors.New("--email and --password (or MITRACTL_PASSWORD) are required")
			}
			c, err := a.newClient()
			if err != nil {
				return err
			}
			resp, err := c.SignIn(a.commandContext(cmd), email, password, from)
			if err != nil {
				return err
			}

			role := "none"
			if resp.Role != nil {
				role = string(*resp.Role)
			}
			if a.jsonOut {
				return a.writeJSON(map[string]any{
					"user_id":     resp.Session.UserID,
					"email":       resp.Session.Email,
					"role":        resp.Role,
					"redirect_to": resp.RedirectTo,
					"expires_at":  resp.ExpiresAt,
				})
			}
			a.printer.Success("signed in as %s (role %s)", resp.Session.Email, role)
			if resp.RedirectTo != "" {
				a.printer.Info("continue at %s", resp.RedirectTo)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&from, "from", "", "location to return to after sign-in")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := a.openSession(a.commandContext(cmd))
			if err != nil {
				return err
			}
			defer g.Close()

			if !g.state.Authenticated() {
				if err := a.tokens().Clear(); err != nil {
					return err
				}
				a.printer.Info("not signed in")
				return nil
			}
			if err := g.session.SignOut(a.commandContext(cmd)); err != nil {
				a.printer.Warning("server sign-out failed: %v", err)
			}
			a.printer.Success("signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity and role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := a.guard(cmd, "/account")
			if err != nil {
				return err
			}
			defer g.Close()

			state := g.session.Snapshot()
			role, known := state.Role.Known()
			home := "/"
			if known {
				home = role.HomePath()
			}
			if a.jsonOut {
				var rolePtr *domain.Role
				if known {
					rolePtr = &role
				}
				return a.writeJSON(map[string]any{
					"user_id":     state.Identity.ID,
					"email":       state.Identity.Email,
					"role":        rolePtr,
					"role_status": state.Role.Status.String(),
					"home":        home,
				})
			}
			a.printer.Print("%s (%s)", state.Identity.Email, state.Identity.ID)
			if known {
				a.printer.Print("role: %s, home: %s", role, home)
			} else {
				a.printer.Warning("role: %s", state.Role.Status)
			}
			return nil
		},
	}
}
