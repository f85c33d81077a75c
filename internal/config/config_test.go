package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
)

func validConfig() ServerEnvironment {
	return ServerEnvironment{
		Environment:           "dev",
		Port:                  8080,
		EnvelopeSecret:        "envelope-secret-0123456789",
		SessionSecret:         "session-secret-0123456789",
		SessionTokenTTL:       24 * time.Hour,
		MaxRequestSize:        8192,
		MaxCredentialFileSize: 512,
		LedgerBackend:         "memory",
		GovIdentities:         []string{"0x1111111111111111111111111111111111111111"},
		DBMaxConnections:      4,
		ContentStoreBackend:   "sqlite",
		ContentStorePath:      ":memory:",
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(cfg *ServerEnvironment)
		wantErr string
	}{
		{"valid", func(cfg *ServerEnvironment) {}, ""},
		{"bad port", func(cfg *ServerEnvironment) { cfg.Port = 0 }, "PORT"},
		{"bad environment", func(cfg *ServerEnvironment) { cfg.Environment = "qa" }, "ENVIRONMENT"},
		{"short envelope secret", func(cfg *ServerEnvironment) { cfg.EnvelopeSecret = "short" }, "ENVELOPE_SECRET"},
		{"short session secret", func(cfg *ServerEnvironment) { cfg.SessionSecret = "short" }, "SESSION_SECRET"},
		{"same secrets", func(cfg *ServerEnvironment) { cfg.SessionSecret = cfg.EnvelopeSecret }, "must be different"},
		{"empty file limit", func(cfg *ServerEnvironment) { cfg.MaxCredentialFileSize = 0 }, "MAX_CREDENTIAL_FILE_SIZE"},
		{"file larger than request", func(cfg *ServerEnvironment) { cfg.MaxCredentialFileSize = 16384 }, "MAX_REQUEST_SIZE"},
		// the encoded file outgrows the body limit before the raw file does
		{"encoded file larger than request", func(cfg *ServerEnvironment) { cfg.MaxCredentialFileSize = 4096 }, "MAX_REQUEST_SIZE"},
		{"unknown ledger", func(cfg *ServerEnvironment) { cfg.LedgerBackend = "ethereum" }, "LEDGER_BACKEND"},
		{"postgres without url", func(cfg *ServerEnvironment) { cfg.LedgerBackend = "postgres" }, "DATABASE_URL"},
		{"postgres pool sizes", func(cfg *ServerEnvironment) {
			cfg.LedgerBackend = "postgres"
			cfg.DatabaseURL = "postgres://localhost/credentials"
			cfg.DBMinConnections = 5
		}, "DB_MIN_CONNECTIONS"},
		{"fabric without config", func(cfg *ServerEnvironment) { cfg.LedgerBackend = "fabric" }, "FABRIC_CONFIG_PATH"},
		{"fabric without gov identities", func(cfg *ServerEnvironment) {
			cfg.LedgerBackend = "fabric"
			cfg.FabricConfigPath = "./connection.yaml"
			cfg.GovIdentities = nil
		}, ""},
		{"memory without gov identities", func(cfg *ServerEnvironment) { cfg.GovIdentities = nil }, "GOV_IDENTITIES"},
		{"empty gov identity", func(cfg *ServerEnvironment) { cfg.GovIdentities = []string{" "} }, "empty identity"},
		{"unknown content store", func(cfg *ServerEnvironment) { cfg.ContentStoreBackend = "s3" }, "CONTENT_STORE_BACKEND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := validateConfig(&cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNewServerConfigFromEnvironment(t *testing.T) {
	t.Setenv("ENVELOPE_SECRET", "envelope-secret-0123456789")
	t.Setenv("SESSION_SECRET", "session-secret-0123456789")
	t.Setenv("ENVELOPE_PREVIOUS_SECRETS", "old-envelope-secret-1|old-envelope-secret-2")
	t.Setenv("GOV_IDENTITIES", "0x1111111111111111111111111111111111111111")
	t.Setenv("CONTENT_STORE_PATH", ":memory:")

	cfg, err := NewServerConfig()
	if err != nil {
		t.Fatalf("NewServerConfig() error: %v", err)
	}
	if cfg.SessionTokenTTL != 24*time.Hour {
		t.Errorf("SessionTokenTTL = %v, want 24h", cfg.SessionTokenTTL)
	}
	if len(cfg.EnvelopePreviousSecrets) != 2 {
		t.Errorf("EnvelopePreviousSecrets = %v, want 2 entries", cfg.EnvelopePreviousSecrets)
	}
	if cfg.LedgerBackend != "memory" {
		t.Errorf("LedgerBackend = %q, want memory", cfg.LedgerBackend)
	}
	if cfg.MaxCredentialFileSize != 10<<20 || cfg.MaxRequestSize < RequestSizeForFile(cfg.MaxCredentialFileSize) {
		t.Errorf("default MaxRequestSize %d does not admit a %d byte credential file", cfg.MaxRequestSize, cfg.MaxCredentialFileSize)
	}
}

func TestNewServerConfigFromSecretsFile(t *testing.T) {
	dir := t.TempDir()

	var keys []jwk.Key
	for purpose, secret := range map[crypto.KeyPurpose]string{
		crypto.PurposeEnvelope: "file-envelope-secret-0123456789",
		crypto.PurposeSession:  "file-session-secret-0123456789",
	} {
		key, err := crypto.SecretToJWK(purpose, secret)
		if err != nil {
			t.Fatal(err)
		}
		keys = append(keys, key)
	}
	if err := crypto.SaveSecretsToJWKSetFile(keys, dir, "secrets.jwks"); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SECRETS_FILE", filepath.Join(dir, "secrets.jwks"))
	t.Setenv("SESSION_SECRET", "env-session-secret-0123456789")
	t.Setenv("GOV_IDENTITIES", "0x1111111111111111111111111111111111111111")

	cfg, err := NewServerConfig()
	if err != nil {
		t.Fatalf("NewServerConfig() error: %v", err)
	}
	if cfg.EnvelopeSecret != "file-envelope-secret-0123456789" {
		t.Errorf("EnvelopeSecret = %q, want the secret from the file", cfg.EnvelopeSecret)
	}
	if cfg.SessionSecret != "env-session-secret-0123456789" {
		t.Errorf("SessionSecret = %q, the environment takes precedence", cfg.SessionSecret)
	}
}

func TestNewServerConfigRequiresSecrets(t *testing.T) {
	t.Setenv("GOV_IDENTITIES", "0x1111111111111111111111111111111111111111")
	t.Setenv("ENVELOPE_SECRET", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("SECRETS_FILE", "")

	if _, err := NewServerConfig(); err == nil || !strings.Contains(err.Error(), "ENVELOPE_SECRET") {
		t.Errorf("expected ENVELOPE_SECRET error, got %v", err)
	}
}

func TestClientConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClientEnvironment
		wantErr string
	}{
		{"valid", ClientEnvironment{ServerURL: "http://localhost:8080", EnvelopeSecret: "envelope-secret-0123456789", Timeout: time.Second}, ""},
		{"bad url", ClientEnvironment{ServerURL: "localhost:8080", EnvelopeSecret: "envelope-secret-0123456789", Timeout: time.Second}, "CREDENTIAL_SERVER_URL"},
		{"missing secret", ClientEnvironment{ServerURL: "https://ledger.example.com", Timeout: time.Second}, "ENVELOPE_SECRET"},
		{"zero timeout", ClientEnvironment{ServerURL: "https://ledger.example.com", EnvelopeSecret: "envelope-secret-0123456789"}, "CLIENT_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want it to mention %s", err, tt.wantErr)
			}
		})
	}
}
