package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/information-sharing-networks/credential-ledger/internal/api"
	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
)

// Client calls the credential server. Request bodies are sent as encrypted envelopes and
// responses are decrypted with the same envelope secret.
type Client struct {
	baseURL string
	token   string
	codec   *crypto.EnvelopeCodec
	http    *http.Client
	logger  *slog.Logger
}

// APIError is an error response returned by the server.
type APIError struct {
	StatusCode int
	Response   api.ErrorResponse
	Body       []byte // decrypted response body
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("server returned %d (%s): %s", e.StatusCode, e.Response.Code, e.Response.Error)
	if e.Response.RequestID != "" {
		msg += fmt.Sprintf(" [request id %s]", e.Response.RequestID)
	}
	return msg
}

func NewClient(baseURL, envelopeSecret, token string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	keys, err := crypto.NewKeyring(crypto.PurposeEnvelope, envelopeSecret, nil)
	if err != nil {
		return nil, err
	}
	codec, err := crypto.NewEnvelopeCodec(keys)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		codec:   codec,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Call sends payload (nil for no body) to path and decrypts the response into out.
// Non-2xx responses are returned as *APIError.
func (c *Client) Call(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		envelope, err := c.codec.Encrypt(payload)
		if err != nil {
			return fmt.Errorf("failed to encrypt request: %w", err)
		}
		b, err := json.Marshal(envelope)
		if err != nil {
			return fmt.Errorf("failed to marshal envelope: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("response received",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	plaintext := respBody
	if envelope, ok := crypto.ParseEnvelope(respBody); ok {
		plaintext, err = c.codec.Decrypt(envelope)
		if err != nil {
			return fmt.Errorf("failed to decrypt response (check the envelope secret): %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: plaintext}
		if err := json.Unmarshal(plaintext, &apiErr.Response); err != nil {
			apiErr.Response.Error = strings.TrimSpace(string(plaintext))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
