package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"invoice-console/internal/bootstrap"
	"invoice-console/internal/config"
	"invoice-console/internal/dataprovider"
	"invoice-console/internal/invoicing"
	"invoice-console/internal/output"
	"invoice-console/internal/reporting"
	"invoice-console/internal/session"
	"invoice-console/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	envFile     string
	backendURL  string
	storeDriver string
	sessionFile string
	profile     string
	colorMode   string
	verbose     bool
	quiet       bool
	jsonOutput  bool

	app *cliApp
)

// cliApp holds what PersistentPreRunE builds for the running command.
type cliApp struct {
	cfg      config.Config
	log      *slog.Logger
	printer  *output.Printer
	gw       *session.Gateway
	dp       *dataprovider.Provider
	invoices *invoicing.Service
	reports  *reporting.Service
	close    func()
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "invoicectl",
	Short: "Invoicing admin console CLI",
	Long: `invoicectl talks to the invoicing backend with the console's session.

Example usage:
  invoicectl login --email admin@example.com --password-stdin
  invoicectl list invoice                      # unpaid invoices
  invoicectl list clients --sort legalName --filter legalName_like=glo
  invoicectl invoice paid inv-1
  invoicectl template download --company co-1 --product p-1 --payment-method pm-1 --client cl-1
  invoicectl upload filled.xlsx
  invoicectl report receivables --from 2026-01-01 --to 2026-04-01`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !needsApp(cmd) {
			return nil
		}
		return initApp(cmd)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the invoicectl version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "invoicectl "+version)
	},
}

// version is set at build time via ldflags
var version = "dev"

// needsApp is false for commands that work without config or a session store.
func needsApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version", "completion":
			return false
		}
	}
	return true
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "backend base URL (overrides BACKEND_URL)")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "session store: file, memory, redis, postgres (overrides SESSION_STORE)")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session-file", "", "session file for the file store (overrides SESSION_FILE)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "session profile in shared stores (overrides SESSION_PROFILE)")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "color output: auto, always, never")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print results and errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
}

// execute runs the command line and releases the session store afterwards,
// also when the command failed.
func execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if app != nil {
		app.close()
		app = nil
	}
	return err
}

func initApp(cmd *cobra.Command) error {
	mode, err := output.ParseColorMode(colorMode)
	if err != nil {
		return err
	}
	log := logger.NewCLI(cmd.ErrOrStderr(), verbose)
	printer := output.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ResolveColors(mode), quiet)

	cfg, err := config.LoadWith(func(c *config.Config) {
		if backendURL != "" {
			c.Backend.URL = backendURL
		}
		if storeDriver != "" {
			c.Session.Store = storeDriver
		}
		if sessionFile != "" {
			c.Session.File = sessionFile
		}
		if profile != "" {
			c.Session.Profile = profile
		}
	}, envFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	gw, closeFn, err := bootstrap.OpenGateway(cmd.Context(), cfg, log, func(context.Context) {
		printer.Warning("the backend ended the session; run `invoicectl login`")
	})
	if err != nil {
		return fmt.Errorf("opening session: %w", err)
	}

	dp := dataprovider.New(gw, log)
	invoices := invoicing.NewService(dp, log)
	app = &cliApp{
		cfg:      cfg,
		log:      log,
		printer:  printer,
		gw:       gw,
		dp:       dp,
		invoices: invoices,
		reports:  reporting.NewService(reporting.NewProviderRepo(invoices.Invoices)),
		close:    closeFn,
	}
	log.Debug("configuration loaded",
		"backend", cfg.Backend.URL,
		"store", cfg.Session.Store,
		"profile", cfg.Session.Profile,
	)
	return nil
}

// errNotLoggedIn is returned by commands that need a session.
var errNotLoggedIn = errors.New("not logged in; run `invoicectl login`")

// requireSession mirrors the console's authenticated boundary.
func requireSession(cmd *cobra.Command) error {
	if !app.gw.Check(cmd.Context()).Authenticated {
		return errNotLoggedIn
	}
	return nil
}

// sessionHeld reports whether a session survived the failed call, which is the
// case when the backend rejected a token an earlier login had issued.
func sessionHeld() bool {
	return app != nil && app.gw != nil && app.gw.Cookie().Value != ""
}

// explain turns a backend failure into a CLI error.
func explain(err error) error {
	if err == nil {
		return nil
	}
	if session.IsAuthFailure(session.StatusOf(err)) && !sessionHeld() {
		return fmt.Errorf("session ended by the backend; run `invoicectl login`: %w", err)
	}
	var he *session.HTTPError
	if errors.As(err, &he) && he.Message != "" {
		return errors.New(he.Message)
	}
	return err
}
