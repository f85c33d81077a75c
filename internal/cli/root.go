// Package cli implements credential-client, a command line client for the credential server.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/credential-ledger/internal/config"
	"github.com/information-sharing-networks/credential-ledger/internal/logger"
	"github.com/information-sharing-networks/credential-ledger/internal/version"
)

// app holds the state shared by the commands of one invocation
type app struct {
	cfg    *config.ClientEnvironment
	client *Client
	out    io.Writer
}

// NewRootCmd builds the command tree. Command output is written to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	rootCmd := &cobra.Command{
		Use:               "credential-client",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             "Credential ledger API client",
		Long: `Command line client for the credential server.

Requests are sent as encrypted envelopes: the client needs the server's envelope secret
(ENVELOPE_SECRET, or the keygen JWK set in SECRETS_FILE). Commands that change the ledger
need a session token from "credential-client login" (CREDENTIAL_TOKEN or --token).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	rootCmd.SetOut(out)

	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	flags := rootCmd.PersistentFlags()
	flags.String("server", "", "server base URL (default $CREDENTIAL_SERVER_URL)")
	flags.String("envelope-secret", "", "envelope secret (default $ENVELOPE_SECRET)")
	flags.String("token", "", "session token (default $CREDENTIAL_TOKEN)")

	rootCmd.AddCommand(a.loginCmd())
	rootCmd.AddCommand(a.registerCmd())
	rootCmd.AddCommand(a.requestsCmd())
	rootCmd.AddCommand(a.decisionCmd("approve", "Approve the authorization request of an institution (Gov)"))
	rootCmd.AddCommand(a.decisionCmd("reject", "Reject the authorization request of an institution (Gov)"))
	rootCmd.AddCommand(a.issueCmd())
	rootCmd.AddCommand(a.revokeCmd())
	rootCmd.AddCommand(a.verifyCmd())
	rootCmd.AddCommand(a.listCmd())
	rootCmd.AddCommand(a.statusCmd())

	return rootCmd
}

func Execute() {
	if err := NewRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// init loads the configuration, applies the flags and creates the client
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.NewClientConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("server"); v != "" {
		cfg.ServerURL = v
	}
	if v, _ := flags.GetString("envelope-secret"); v != "" {
		cfg.EnvelopeSecret = v
	}
	if v, _ := flags.GetString("token"); v != "" {
		cfg.Token = v
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	// logs go to stderr so command output can be piped
	appLogger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logger.ParseLogLevel(cfg.LogLevel),
		TimeFormat: time.Kitchen,
	}))
	a.client, err = NewClient(cfg.ServerURL, cfg.EnvelopeSecret, cfg.Token, cfg.Timeout, appLogger)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// print writes v as indented JSON
func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
