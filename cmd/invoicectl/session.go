package main

import (
	"bufio"
	"errors"
	"strings"

	"invoice-console/internal/session"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and persist the session",
	Long: `Exchange email and password for a backend token. The token and the
identity are stored together in the configured session store.

Examples:
  invoicectl login --email admin@example.com --password admin
  echo "$PASSWORD" | invoicectl login --email admin@example.com --password-stdin`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app.gw.Logout(cmd.Context())
		app.printer.Success("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, ok := app.gw.Identity(cmd.Context())
		if !ok {
			return errNotLoggedIn
		}
		if jsonOutput {
			return app.printer.JSON(id)
		}
		app.printer.Print("%s (id %s, role %s)", app.printer.Bold(id.Name), id.ID, id.Role)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a session is stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res := app.gw.Check(cmd.Context())
		if jsonOutput {
			return app.printer.JSON(res)
		}
		if !res.Authenticated {
			app.printer.Print("not logged in (backend %s)", app.cfg.Backend.URL)
			return nil
		}
		role, _ := app.gw.Permissions(cmd.Context())
		app.printer.Print("logged in as %s at %s", role, app.cfg.Backend.URL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, statusCmd)

	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password")
	loginCmd.Flags().Bool("password-stdin", false, "read the password from stdin")
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")

	if fromStdin {
		if password != "" {
			return errors.New("--password and --password-stdin are mutually exclusive")
		}
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return errors.New("no password on stdin")
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if _, err := app.gw.Login(cmd.Context(), strings.TrimSpace(email), password); err != nil {
		var ae *session.AuthError
		if errors.As(err, &ae) {
			return errors.New(ae.Message)
		}
		return err
	}

	id, _ := app.gw.Identity(cmd.Context())
	app.printer.Success("Logged in as %s (%s)", id.Name, id.Role)
	return nil
}
