package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/Netflix/go-env"

	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
)

// ClientEnvironment configures the credential-client CLI. Command line flags override these values.
type ClientEnvironment struct {
	ServerURL      string        `env:"CREDENTIAL_SERVER_URL,default=http://localhost:8080"`
	EnvelopeSecret string        `env:"ENVELOPE_SECRET"`
	SecretsFile    string        `env:"SECRETS_FILE"`
	Token          string        `env:"CREDENTIAL_TOKEN"`
	Timeout        time.Duration `env:"CLIENT_TIMEOUT,default=30s"`
	LogLevel       string        `env:"LOG_LEVEL,default=warn"`
}

// NewClientConfig loads the client settings from the environment.
// The envelope secret is not validated here since it can also be supplied as a flag.
func NewClientConfig() (*ClientEnvironment, error) {
	var cfg ClientEnvironment

	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings once the flags have been applied.
// An empty envelope secret is loaded from SECRETS_FILE when one is set.
func (c *ClientEnvironment) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid CREDENTIAL_SERVER_URL: %q", c.ServerURL)
	}

	if c.EnvelopeSecret == "" && c.SecretsFile != "" {
		c.EnvelopeSecret, err = crypto.LoadSecretFromJWKSetFile(c.SecretsFile, crypto.PurposeEnvelope)
		if err != nil {
			return fmt.Errorf("failed to load the envelope secret from SECRETS_FILE: %w", err)
		}
	}
	if len(c.EnvelopeSecret) < minSecretLength {
		return fmt.Errorf("ENVELOPE_SECRET must be at least %d characters", minSecretLength)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("CLIENT_TIMEOUT must be positive")
	}
	return nil
}
