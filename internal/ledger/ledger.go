// Package ledger is the client side of the credential registry ledger.
//
// A Gateway executes contract methods: Read evaluates a query without changing state, Write submits a
// transaction signed by an identity and returns a Receipt once the ledger has accepted it.
// Arguments and results are strings/JSON so the same calls work against every backend:
//
//   - local: the registry contract running in-process over memory or postgres state (ledger/local)
//   - fabric: the registry chaincode on a Hyperledger Fabric channel (ledger/fabric)
//
// Client wraps a Gateway with typed methods for each contract operation.
//
// State rules (who may write what, and when) are enforced by the contract inside the write, callers
// should not rely on their own earlier reads.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/information-sharing-networks/credential-ledger/internal/identity"
)

// Gateway executes registry contract methods on a ledger backend.
//
// Errors are *LedgerError: contract rule violations keep their code (not_found, conflict, forbidden, invalid),
// transport failures and timeouts are reported as upstream errors.
type Gateway interface {
	// Read evaluates a query method and returns its JSON result.
	Read(ctx context.Context, method string, args ...string) ([]byte, error)

	// Write submits a transaction signed by signer.
	Write(ctx context.Context, method string, signer string, args ...string) (Receipt, error)

	// Ping checks that the ledger is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Client provides typed access to the registry contract.
type Client struct {
	gateway Gateway
}

func NewClient(gateway Gateway) *Client {
	return &Client{gateway: gateway}
}

// Gateway returns the underlying gateway.
func (c *Client) Gateway() Gateway { return c.gateway }

// GetAuthLevel returns the identity record (and so the role) of an address.
func (c *Client) GetAuthLevel(ctx context.Context, address string) (IdentityRecord, error) {
	var record IdentityRecord
	err := c.read(ctx, &record, MethodGetAuthLevel, address)
	return record, err
}

func (c *Client) GetAllRequests(ctx context.Context) ([]AuthorizationRequest, error) {
	requests := []AuthorizationRequest{}
	err := c.read(ctx, &requests, MethodGetAllRequests)
	return requests, err
}

// GetRequest returns the current request for an institution name.
func (c *Client) GetRequest(ctx context.Context, institutionName string) (AuthorizationRequest, error) {
	var request AuthorizationRequest
	err := c.read(ctx, &request, MethodGetRequest, institutionName)
	return request, err
}

// GetRequestHistory returns every revision of the requests for an institution name, oldest first.
func (c *Client) GetRequestHistory(ctx context.Context, institutionName string) ([]AuthorizationRequest, error) {
	requests := []AuthorizationRequest{}
	err := c.read(ctx, &requests, MethodGetRequestHistory, institutionName)
	return requests, err
}

// GetRequestByRequester returns the current request filed by an address.
func (c *Client) GetRequestByRequester(ctx context.Context, address string) (AuthorizationRequest, error) {
	var request AuthorizationRequest
	err := c.read(ctx, &request, MethodGetRequestByRequester, address)
	return request, err
}

// VerifyCredential reports whether a hash belongs to an issued, unrevoked credential.
func (c *Client) VerifyCredential(ctx context.Context, hash string) (bool, error) {
	var result Verification
	if err := c.read(ctx, &result, MethodVerifyCredential, hash); err != nil {
		return false, err
	}
	return result.Valid, nil
}

func (c *Client) GetCredential(ctx context.Context, hash string) (Credential, error) {
	var credential Credential
	err := c.read(ctx, &credential, MethodGetCredential, hash)
	return credential, err
}

func (c *Client) GetCredentialsByHolder(ctx context.Context, address string) ([]Credential, error) {
	credentials := []Credential{}
	err := c.read(ctx, &credentials, MethodGetCredentialsByHolder, address)
	return credentials, err
}

// ResolveHolder returns the address registered for a student username.
func (c *Client) ResolveHolder(ctx context.Context, username string) (Holder, error) {
	var holder Holder
	err := c.read(ctx, &holder, MethodResolveHolder, username)
	return holder, err
}

// RegisterIdentity binds a role (and name) to the signer.
func (c *Client) RegisterIdentity(ctx context.Context, signer string, role identity.Role, name string) (Receipt, error) {
	return c.gateway.Write(ctx, MethodRegisterIdentity, signer, string(role), name)
}

// RequestAuthorization files a Pending request for the signer's institution.
func (c *Client) RequestAuthorization(ctx context.Context, signer, institutionName string) (Receipt, error) {
	return c.gateway.Write(ctx, MethodRequestAuthorization, signer, institutionName)
}

func (c *Client) ApproveRequest(ctx context.Context, signer, institutionName string) (Receipt, error) {
	return c.gateway.Write(ctx, MethodApproveRequest, signer, institutionName)
}

func (c *Client) RejectRequest(ctx context.Context, signer, institutionName string) (Receipt, error) {
	return c.gateway.Write(ctx, MethodRejectRequest, signer, institutionName)
}

func (c *Client) IssueCredential(ctx context.Context, signer, holder, hash, contentID string) (Receipt, error) {
	return c.gateway.Write(ctx, MethodIssueCredential, signer, holder, hash, contentID)
}

func (c *Client) RevokeCredential(ctx context.Context, signer, hash string) (Receipt, error) {
	return c.gateway.Write(ctx, MethodRevokeCredential, signer, hash)
}

func (c *Client) read(ctx context.Context, result any, method string, args ...string) error {
	payload, err := c.gateway.Read(ctx, method, args...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, result); err != nil {
		return WrapUpstreamError(err, fmt.Sprintf("ledger returned an unreadable %s result", method))
	}
	return nil
}
