package cli

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/credential-ledger/internal/api"
	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
)

func (a *app) issueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue <student> <credential-file>",
		Short: "Issue a credential to a student (approved University)",
		Long: `Upload a credential file and record its SHA-256 hash on the ledger with the student as holder.

Example:
  credential-client issue alice ./diploma.pdf`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataURL, hash, err := readCredentialFile(args[1])
			if err != nil {
				return err
			}

			var resp api.IssueCredentialResponse
			err = a.client.Call(cmd.Context(), http.MethodPost, "/api/issueCredentials", api.IssueCredentialRequest{
				Student:        args[0],
				CredentialHash: hash,
				CredentialFile: dataURL,
			}, &resp)
			if err != nil {
				return err
			}
			return a.print(resp)
		},
	}
}

func (a *app) revokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <credential-hash>",
		Short: "Revoke a credential (issuing University)",
		Long:  `Revoke a credential. Revoking an already revoked credential is not an error.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.RevokeCredentialResponse
			if err := a.client.Call(cmd.Context(), http.MethodPost, "/api/revokeCredential", api.CredentialHashRequest{CredentialHash: args[0]}, &resp); err != nil {
				return err
			}
			return a.print(resp)
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "credentials",
		Short: "List the credentials held by the caller (Student)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.CredentialsResponse
			if err := a.client.Call(cmd.Context(), http.MethodGet, "/api/getAllCredentials", nil, &resp); err != nil {
				return err
			}
			return a.print(resp.Credentials)
		},
	}
}

// readCredentialFile returns the file as a data URL and its SHA-256 hash
func readCredentialFile(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read credential file: %w", err)
	}
	hash, err := crypto.Hash(data)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", path, err)
	}

	mediaType := http.DetectContentType(data)
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), hash, nil
}
