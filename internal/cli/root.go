// Package cli implements mitractl, the back office command line. Every
// command that touches admin data is gated by the same route guard the web
// views use, evaluated against a session.Context.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/spec-kit/mitra-marketplace/internal/cli/output"
	"github.com/spec-kit/mitra-marketplace/pkg/client"
)

// Option customizes the root command.
type Option func(*app)

// WithOutput redirects regular and error output.
func WithOutput(out, errOut io.Writer) Option {
	return func(a *app) { a.out, a.errOut = out, errOut }
}

// WithHTTPClient sets the fasthttp client used to reach the API.
func WithHTTPClient(hc *fasthttp.Client) Option {
	return func(a *app) { a.httpClient = hc }
}

type app struct {
	v          *viper.Viper
	cfgFile    string
	colorMode  string
	verbose    bool
	jsonOut    bool
	cfg        *Config
	printer    *output.Printer
	logger     *zap.Logger
	out        io.Writer
	errOut     io.Writer
	httpClient *fasthttp.Client
}

// NewRootCmd builds the mitractl command tree.
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{v: viper.New(), out: os.Stdout, errOut: os.Stderr, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:   "mitractl",
		Short: "Massage marketplace back office CLI",
		Long: `mitractl manages the marketplace back office: mitra verification,
user roles, orders and finance.

Example usage:
  mitractl login --email admin@example.com
  mitractl mitra list --status pending
  mitractl mitra approve <mitra-id>
  mitractl users set-role <user-id> mitra`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.mitractl.yaml)")
	flags.String("server", "", "API base URL")
	flags.String("session-file", "", "where the access token is stored")
	flags.StringVar(&a.colorMode, "color", "auto", "color output: auto, always, never")
	flags.BoolVar(&a.jsonOut, "json", false, "output as JSON")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	_ = a.v.BindPFlag("server.url", flags.Lookup("server"))
	_ = a.v.BindPFlag("session.file", flags.Lookup("session-file"))

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newStatsCmd(a),
		newMitraCmd(a),
		newUsersCmd(a),
		newOrdersCmd(a),
		newFinanceCmd(a),
	)
	return root
}

// Execute runs mitractl and reports a failure on stderr.
func Execute(opts ...Option) error {
	root := NewRootCmd(opts...)
	cmd, err := root.ExecuteC()
	if err != nil {
		if cmd == nil {
			cmd = root
		}
		reportError(cmd.ErrOrStderr(), err)
	}
	return err
}

func (a *app) init() error {
	mode, err := output.ParseColorMode(a.colorMode)
	if err != nil {
		return err
	}
	cfg, err := LoadConfig(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.printer = output.NewPrinter(a.out, a.errOut, output.ResolveColors(mode, cfg.Output.Colors))

	if a.verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		a.logger = logger
	}
	return nil
}

func (a *app) tokens() tokenStore {
	return tokenStore{path: a.cfg.Session.File}
}

// newClient builds an API client with the stored token. Sign-in and refresh
// persist the new token; sign-out and expiry remove it.
func (a *app) newClient() (*client.Client, error) {
	store := a.tokens()
	token, err := store.Load()
	if err != nil {
		return nil, err
	}
	c := client.New(a.cfg.Server.URL,
		client.WithToken(token),
		client.WithTimeout(a.cfg.Server.Timeout),
		client.WithHTTPClient(a.httpClient),
		client.WithLogger(a.logger),
	)
	c.OnAuthStateChange(a.persistToken(store))
	return c, nil
}

func (a *app) commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
