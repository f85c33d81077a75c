package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/credential-ledger/internal/api"
	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
)

func (a *app) verifyCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "verify [credential-hash]",
		Short: "Check whether a credential is valid",
		Long: `Check whether a credential is valid. Anyone can verify: no session token is needed.

The credential is identified by its SHA-256 hash, or by the credential file itself.

Example:
  credential-client verify --file ./diploma.pdf`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var hash string
			switch {
			case len(args) == 1 && file == "":
				hash = args[0]
			case len(args) == 0 && file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read credential file: %w", err)
				}
				if hash, err = crypto.Hash(data); err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}
			default:
				return errors.New("give either a credential hash or --file")
			}

			var resp api.VerifyCredentialResponse
			if err := a.client.Call(cmd.Context(), http.MethodPost, "/api/verifyCredential", api.CredentialHashRequest{CredentialHash: hash}, &resp); err != nil {
				return err
			}
			return a.print(resp)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "credential file to hash and verify")
	return cmd
}
