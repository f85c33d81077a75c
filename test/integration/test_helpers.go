//go:build integration

// functions that are useful in integration tests

package integration

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/information-sharing-networks/credential-ledger/internal/api"
	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
)

// client sends encrypted requests to the test server
type client struct {
	t       *testing.T
	baseURL string
	codec   *crypto.EnvelopeCodec
	http    *http.Client
}

func newClient(t *testing.T, env *testEnv) *client {
	t.Helper()

	keys, err := crypto.NewKeyring(crypto.PurposeEnvelope, envelopeSecret, nil)
	if err != nil {
		t.Fatalf("failed to create keyring: %v", err)
	}
	codec, err := crypto.NewEnvelopeCodec(keys)
	if err != nil {
		t.Fatalf("failed to create envelope codec: %v", err)
	}

	return &client{
		t:       t,
		baseURL: env.baseURL,
		codec:   codec,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// call sends payload (when not nil) as an encrypted envelope and decrypts the response into out (when not nil).
// It returns the http status code.
func (c *client) call(method, path, token string, payload any, out any) int {
	c.t.Helper()

	var body io.Reader = http.NoBody
	if payload != nil {
		envelope, err := c.codec.Encrypt(payload)
		if err != nil {
			c.t.Fatalf("failed to encrypt request: %v", err)
		}
		b, err := json.Marshal(envelope)
		if err != nil {
			c.t.Fatalf("failed to marshal envelope: %v", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		c.t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("failed to read response body: %v", err)
	}

	if out != nil {
		c.decrypt(method, path, resp.StatusCode, respBody, out)
	}
	return resp.StatusCode
}

// postPlain sends an unencrypted JSON body and decrypts the error response.
func (c *client) postPlain(path string, payload any) (int, api.ErrorResponse) {
	c.t.Helper()

	b, err := json.Marshal(payload)
	if err != nil {
		c.t.Fatalf("failed to marshal request: %v", err)
	}
	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		c.t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("failed to read response body: %v", err)
	}

	var errResp api.ErrorResponse
	c.decrypt(http.MethodPost, path, resp.StatusCode, respBody, &errResp)
	return resp.StatusCode, errResp
}

func (c *client) decrypt(method, path string, status int, body []byte, out any) {
	c.t.Helper()

	envelope, ok := crypto.ParseEnvelope(body)
	if !ok {
		c.t.Fatalf("%s %s: response is not an envelope (status %d): %s", method, path, status, body)
	}
	plaintext, err := c.codec.Decrypt(envelope)
	if err != nil {
		c.t.Fatalf("%s %s: failed to decrypt response: %v", method, path, err)
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		c.t.Fatalf("%s %s: failed to decode response: %v", method, path, err)
	}
}

func (c *client) login(address string) string {
	c.t.Helper()
	var resp api.LoginResponse
	if status := c.call(http.MethodPost, "/api/login", "", api.LoginRequest{WalletAddress: address}, &resp); status != http.StatusOK {
		c.t.Fatalf("login %s: status %d", address, status)
	}
	return resp.Token
}

// register creates an account and returns its address
func (c *client) register(role, name string) string {
	c.t.Helper()
	var resp api.RegisterResponse
	if status := c.call(http.MethodPost, "/api/register", "", api.RegisterRequest{Role: role, Name: name}, &resp); status != http.StatusCreated {
		c.t.Fatalf("register %s: status %d", name, status)
	}
	return resp.Account.Address
}

func (c *client) decide(path, token, institution string) int {
	c.t.Helper()
	var resp api.DecisionResponse
	return c.call(http.MethodPost, path, token, api.DecisionRequest{InstitutionName: institution}, &resp)
}

func (c *client) verify(hash string) api.VerifyCredentialResponse {
	c.t.Helper()
	var resp api.VerifyCredentialResponse
	if status := c.call(http.MethodPost, "/api/verifyCredential", "", api.CredentialHashRequest{CredentialHash: hash}, &resp); status != http.StatusOK {
		c.t.Fatalf("verify %s: status %d", hash, status)
	}
	return resp
}

// credentialFile returns a data URL for content and the sha256 hex of content
func credentialFile(content []byte) (string, string) {
	sum := sha256.Sum256(content)
	return "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(content), hex.EncodeToString(sum[:])
}
