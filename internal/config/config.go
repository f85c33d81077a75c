package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"

	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
)

// Environment variables with defaults
type ServerEnvironment struct {

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8080"`
	LogLevel              string        `env:"LOG_LEVEL,default=debug"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=30s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	RequestTimeout        time.Duration `env:"REQUEST_TIMEOUT,default=60s"`
	RateLimitRPS          int32         `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst        int32         `env:"RATE_LIMIT_BURST,default=200"`
	MaxRequestSize        int64         `env:"MAX_REQUEST_SIZE,default=20971520"`

	// envelope and session secrets - previous secrets are accepted for decryption/verification only.
	// SECRETS_FILE is a JWK set written by keygen, used for the secrets that are not set directly.
	SecretsFile             string        `env:"SECRETS_FILE"`
	EnvelopeSecret          string        `env:"ENVELOPE_SECRET"`
	EnvelopePreviousSecrets []string      `env:"ENVELOPE_PREVIOUS_SECRETS,separator=|"`
	SessionSecret           string        `env:"SESSION_SECRET"`
	SessionPreviousSecrets  []string      `env:"SESSION_PREVIOUS_SECRETS,separator=|"`
	SessionTokenTTL         time.Duration `env:"SESSION_TOKEN_TTL,default=24h"`
	RequireEncryptedBodies  bool          `env:"REQUIRE_ENCRYPTED_BODIES,default=false"`

	// ledger settings
	LedgerBackend     string        `env:"LEDGER_BACKEND,default=memory"`
	LedgerCallTimeout time.Duration `env:"LEDGER_CALL_TIMEOUT,default=30s"`
	GovIdentities     []string      `env:"GOV_IDENTITIES,separator=|"`

	// database settings (LEDGER_BACKEND=postgres)
	DatabaseURL         string        `env:"DATABASE_URL"`
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS,default=4"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS,default=0"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME,default=60m"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME,default=30m"`
	DBConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT,default=5s"`
	DatabasePingTimeout time.Duration `env:"DATABASE_PING_TIMEOUT,default=10s"`

	// fabric settings (LEDGER_BACKEND=fabric)
	FabricConfigPath string `env:"FABRIC_CONFIG_PATH"`
	FabricChannel    string `env:"FABRIC_CHANNEL,default=credentials"`
	FabricChaincode  string `env:"FABRIC_CHAINCODE,default=credential-registry"`
	FabricUser       string `env:"FABRIC_USER,default=User1"`
	FabricOrg        string `env:"FABRIC_ORG,default=Org1"`

	// content store settings
	ContentStoreBackend   string        `env:"CONTENT_STORE_BACKEND,default=sqlite"`
	ContentStoreTimeout   time.Duration `env:"CONTENT_STORE_TIMEOUT,default=30s"`
	ContentStorePath      string        `env:"CONTENT_STORE_PATH,default=./content.db"`
	IPFSAPIURL            string        `env:"IPFS_API_URL,default=http://127.0.0.1:5001"`
	IPFSGatewayURL        string        `env:"IPFS_GATEWAY_URL,default=https://ipfs.io/ipfs"`
	MaxCredentialFileSize int64         `env:"MAX_CREDENTIAL_FILE_SIZE,default=10485760"`
}

// issueRequestOverhead covers the parts of an encrypted issue request other than the encoded file:
// the JWE header, iv and tag, the envelope and request JSON, the data URL prefix and the hash.
const issueRequestOverhead = 4096

// RequestSizeForFile returns the largest request body an issue request carrying a fileSize byte
// credential can produce. The file is base64 encoded into a data URL and the request JSON is
// base64url encoded again as the JWE ciphertext, so the body is about 16/9 of the file size.
func RequestSizeForFile(fileSize int64) int64 {
	return base64Len(base64Len(fileSize)) + issueRequestOverhead
}

func base64Len(n int64) int64 {
	return (n + 2) / 3 * 4
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

var validLedgerBackends = map[string]bool{
	"memory":   true,
	"postgres": true,
	"fabric":   true,
}

var validContentStoreBackends = map[string]bool{
	"sqlite": true,
	"ipfs":   true,
}

// minSecretLength is the minimum length of the envelope and session secrets
const minSecretLength = 16

// NewServerConfig loads environment variables and returns a ServerEnvironment struct that contains the values
func NewServerConfig() (*ServerEnvironment, error) {
	var cfg ServerEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := loadSecretsFile(&cfg); err != nil {
		return nil, err
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil

}

// loadSecretsFile fills the envelope and session secrets that are not set from SECRETS_FILE.
func loadSecretsFile(cfg *ServerEnvironment) error {
	if cfg.SecretsFile == "" {
		return nil
	}

	var err error
	if cfg.EnvelopeSecret == "" {
		cfg.EnvelopeSecret, err = crypto.LoadSecretFromJWKSetFile(cfg.SecretsFile, crypto.PurposeEnvelope)
		if err != nil {
			return fmt.Errorf("failed to load the envelope secret from SECRETS_FILE: %w", err)
		}
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret, err = crypto.LoadSecretFromJWKSetFile(cfg.SecretsFile, crypto.PurposeSession)
		if err != nil {
			return fmt.Errorf("failed to load the session secret from SECRETS_FILE: %w", err)
		}
	}
	return nil
}

// validateConfig checks the settings are consistent
func validateConfig(cfg *ServerEnvironment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}

	if len(cfg.EnvelopeSecret) < minSecretLength {
		return fmt.Errorf("ENVELOPE_SECRET must be at least %d characters", minSecretLength)
	}
	if len(cfg.SessionSecret) < minSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSecretLength)
	}
	if cfg.EnvelopeSecret == cfg.SessionSecret {
		return fmt.Errorf("ENVELOPE_SECRET and SESSION_SECRET must be different")
	}
	if cfg.SessionTokenTTL <= 0 {
		return fmt.Errorf("SESSION_TOKEN_TTL must be positive")
	}
	if cfg.MaxRequestSize < 1 {
		return fmt.Errorf("MAX_REQUEST_SIZE must be at least 1")
	}
	if cfg.MaxCredentialFileSize < 1 {
		return fmt.Errorf("MAX_CREDENTIAL_FILE_SIZE must be at least 1")
	}
	if required := RequestSizeForFile(cfg.MaxCredentialFileSize); required > cfg.MaxRequestSize {
		return fmt.Errorf("MAX_REQUEST_SIZE (%d) is too small for an encrypted issue request carrying a MAX_CREDENTIAL_FILE_SIZE file: need at least %d",
			cfg.MaxRequestSize, required)
	}

	if !validLedgerBackends[cfg.LedgerBackend] {
		return fmt.Errorf("invalid LEDGER_BACKEND: %s (must be memory, postgres or fabric)", cfg.LedgerBackend)
	}

	switch cfg.LedgerBackend {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when LEDGER_BACKEND=postgres")
		}
		// Validate database pool configuration
		if cfg.DBMaxConnections < 1 {
			return fmt.Errorf("DB_MAX_CONNECTIONS must be at least 1")
		}
		if cfg.DBMinConnections < 0 {
			return fmt.Errorf("DB_MIN_CONNECTIONS must be 0 or greater")
		}
		if cfg.DBMinConnections > cfg.DBMaxConnections {
			return fmt.Errorf("DB_MIN_CONNECTIONS (%d) cannot be greater than DB_MAX_CONNECTIONS (%d)",
				cfg.DBMinConnections, cfg.DBMaxConnections)
		}
	case "fabric":
		if cfg.FabricConfigPath == "" {
			return fmt.Errorf("FABRIC_CONFIG_PATH is required when LEDGER_BACKEND=fabric")
		}
	}

	// the local ledgers need at least one government identity in the genesis state
	if cfg.LedgerBackend != "fabric" && len(cfg.GovIdentities) == 0 {
		return fmt.Errorf("GOV_IDENTITIES is required when LEDGER_BACKEND=%s", cfg.LedgerBackend)
	}
	for _, id := range cfg.GovIdentities {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("GOV_IDENTITIES contains an empty identity")
		}
	}

	if !validContentStoreBackends[cfg.ContentStoreBackend] {
		return fmt.Errorf("invalid CONTENT_STORE_BACKEND: %s (must be sqlite or ipfs)", cfg.ContentStoreBackend)
	}
	if cfg.ContentStoreBackend == "sqlite" && cfg.ContentStorePath == "" {
		return fmt.Errorf("CONTENT_STORE_PATH is required when CONTENT_STORE_BACKEND=sqlite")
	}

	return nil
}
