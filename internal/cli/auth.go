package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/credential-ledger/internal/api"
)

func (a *app) loginCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "login <address>",
		Short: "Log in as a registered identity and print the session token",
		Long: `Log in as a registered identity and print the session token.

Example:
  export CREDENTIAL_TOKEN=$(credential-client login 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.LoginResponse
			if err := a.client.Call(cmd.Context(), http.MethodPost, "/api/login", api.LoginRequest{Identity: args[0]}, &resp); err != nil {
				return err
			}
			if asJSON {
				return a.print(resp)
			}
			_, err := fmt.Fprintln(a.out, resp.Token)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full response (role and expiry)")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <Student|University> <name>",
		Short: "Create a new identity with a role",
		Long: `Create a new identity on the ledger. A University also files its authorization request.

The response contains the new account's private key: it is not stored by the server.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.RegisterResponse
			if err := a.client.Call(cmd.Context(), http.MethodPost, "/api/register", api.RegisterRequest{Role: args[0], Name: args[1]}, &resp); err != nil {
				return err
			}
			return a.print(resp)
		},
	}
}
