// keygen is a CLI tool for generating the server secrets and ledger identities.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
	"github.com/information-sharing-networks/credential-ledger/internal/identity"
	"github.com/information-sharing-networks/credential-ledger/internal/version"
)

var (
	outputDir    string
	fileName     string
	accountCount int
	jsonOutput   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "keygen",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             "Secret and identity generator for the credential server",
		Long:              "Generate the envelope and session secrets (as a JWK set) and ledger identities (e.g. for GOV_IDENTITIES)",
	}

	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	secretsCmd := &cobra.Command{
		Use:   "secrets",
		Short: "Generate envelope and session secrets",
		Long:  "Generate random ENVELOPE_SECRET and SESSION_SECRET values and save them as oct keys in a JWK set (use with SECRETS_FILE)",
		RunE:  runSecrets,
	}
	secretsCmd.Flags().StringVarP(&outputDir, "outputdir", "o", "", "Output directory for the JWK set [required]")
	secretsCmd.Flags().StringVarP(&fileName, "file", "f", "secrets.jwks", "JWK set file name")
	secretsCmd.MarkFlagRequired("outputdir")

	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Generate ledger identities",
		Long:  "Generate secp256k1 key pairs and print their addresses and private keys",
		RunE:  runAccount,
	}
	accountCmd.Flags().IntVarP(&accountCount, "count", "n", 1, "Number of identities to generate")
	accountCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the identities as JSON")

	rootCmd.AddCommand(secretsCmd, accountCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSecrets(cmd *cobra.Command, args []string) error {
	// make the directory if it doesn't exist
	if _, err := os.Stat(outputDir); os.IsNotExist(err) {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var keys []jwk.Key
	for _, purpose := range []crypto.KeyPurpose{crypto.PurposeEnvelope, crypto.PurposeSession} {
		secret, err := crypto.GenerateSecret()
		if err != nil {
			return err
		}
		key, err := crypto.SecretToJWK(purpose, secret)
		if err != nil {
			return err
		}
		kid, _ := key.KeyID()
		fmt.Printf("✓ %s secret (kid: %s)\n", purpose, kid)
		keys = append(keys, key)
	}

	if err := crypto.SaveSecretsToJWKSetFile(keys, outputDir, fileName); err != nil {
		return fmt.Errorf("failed to save secrets: %w", err)
	}
	fmt.Printf("✓ JWK set: %s/%s\n", strings.TrimSuffix(outputDir, "/"), fileName)
	fmt.Println("  start the server with SECRETS_FILE set to this file")

	return nil
}

func runAccount(cmd *cobra.Command, args []string) error {
	if accountCount < 1 {
		return fmt.Errorf("invalid count: %d (must be at least 1)", accountCount)
	}

	accounts := make([]identity.Account, 0, accountCount)
	for range accountCount {
		account, err := identity.NewAccount()
		if err != nil {
			return err
		}
		accounts = append(accounts, account)
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(accounts)
	}

	addresses := make([]string, 0, len(accounts))
	for _, account := range accounts {
		fmt.Printf("address:     %s\nprivate key: %s\n\n", account.Address, account.PrivateKey)
		addresses = append(addresses, account.Address)
	}
	fmt.Printf("GOV_IDENTITIES=%s\n", strings.Join(addresses, "|"))
	return nil
}
