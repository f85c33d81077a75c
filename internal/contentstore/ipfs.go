package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxIPFSResponseSize bounds the RPC responses read by the client
const maxIPFSResponseSize = 1 << 20

// IPFSStore adds content through the IPFS HTTP RPC API (POST /api/v0/add) and pins it.
type IPFSStore struct {
	apiURL     string
	gatewayURL string
	client     *http.Client
}

// NewIPFSStore creates a store for the node at apiURL (e.g. http://127.0.0.1:5001).
// gatewayURL is used to build links to stored content and may be empty.
func NewIPFSStore(apiURL, gatewayURL string, timeout time.Duration) (*IPFSStore, error) {
	u, err := url.Parse(apiURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid IPFS API URL %q", apiURL)
	}

	return &IPFSStore{
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		gatewayURL: strings.TrimSuffix(gatewayURL, "/"),
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// addResponse is the response to /api/v0/add
type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

func (s *IPFSStore) Store(ctx context.Context, content []byte) (string, error) {
	if len(content) == 0 {
		return "", ErrEmptyContent
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "credential")
	if err != nil {
		return "", fmt.Errorf("failed to create multipart body: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("failed to write multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	resp, err := s.post(ctx, "/api/v0/add?pin=true&cid-version=1", writer.FormDataContentType(), body)
	if err != nil {
		return "", err
	}

	var added addResponse
	if err := json.Unmarshal(resp, &added); err != nil {
		return "", fmt.Errorf("failed to decode IPFS add response: %w", err)
	}
	if added.Hash == "" {
		return "", fmt.Errorf("IPFS add response has no hash")
	}
	return added.Hash, nil
}

// URL returns the gateway link for a content id (empty when no gateway is configured).
func (s *IPFSStore) URL(contentID string) string {
	if s.gatewayURL == "" {
		return ""
	}
	return s.gatewayURL + "/" + url.PathEscape(contentID)
}

// Ping asks the node for its version.
func (s *IPFSStore) Ping(ctx context.Context) error {
	_, err := s.post(ctx, "/api/v0/version", "", nil)
	return err
}

func (s *IPFSStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// post calls an RPC endpoint. The RPC API only accepts POST.
func (s *IPFSStore) post(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create IPFS request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("IPFS request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxIPFSResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read IPFS response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// kubo errors are {"Message": "...", "Code": 0, "Type": "error"}
		var rpcErr struct {
			Message string `json:"Message"`
		}
		if json.Unmarshal(data, &rpcErr) == nil && rpcErr.Message != "" {
			return nil, fmt.Errorf("IPFS returned %d: %s", resp.StatusCode, rpcErr.Message)
		}
		return nil, fmt.Errorf("IPFS returned %d", resp.StatusCode)
	}
	return data, nil
}
