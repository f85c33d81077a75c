package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
	"github.com/information-sharing-networks/credential-ledger/internal/identity"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger"
	"github.com/information-sharing-networks/credential-ledger/internal/logger"
)

const maxNameLength = 256

// AuthorizationWorkflow registers identities and moves universities through
// Unregistered -> Pending -> Approved | Rejected.
type AuthorizationWorkflow struct {
	ledger *ledger.Client
	tokens *crypto.SessionTokens
}

func NewAuthorizationWorkflow(gateway ledger.Gateway, tokens *crypto.SessionTokens) *AuthorizationWorkflow {
	return &AuthorizationWorkflow{ledger: ledger.NewClient(gateway), tokens: tokens}
}

// Registration is the result of Register.
type Registration struct {
	Account identity.Account
	Role    identity.Role
	Name    string

	// Request is the Pending authorization request filed for a university (nil for students)
	Request *ledger.Receipt
}

// Register creates a new identity with the given role and records it on the ledger.
// For universities a Pending authorization request for name is filed as well.
//
// The new account's private key is returned to the caller and not kept.
func (w *AuthorizationWorkflow) Register(ctx context.Context, role identity.Role, name string) (Registration, error) {
	switch role {
	case identity.RoleStudent, identity.RoleUniversity:
	case identity.RoleGov:
		return Registration{}, NewValidationError("government identities cannot be registered")
	default:
		return Registration{}, NewValidationError(fmt.Sprintf("invalid role %q", role))
	}

	name, err := validateName(name, role)
	if err != nil {
		return Registration{}, err
	}

	account, err := identity.NewAccount()
	if err != nil {
		return Registration{}, WrapInternalError(err, "failed to create account")
	}

	if _, err := w.ledger.RegisterIdentity(ctx, account.Address, role, name); err != nil {
		return Registration{}, fromLedger(err, "failed to register identity")
	}

	registration := Registration{Account: account, Role: role, Name: name}
	if role != identity.RoleUniversity {
		return registration, nil
	}

	receipt, err := w.ledger.RequestAuthorization(ctx, account.Address, name)
	if err != nil {
		// the identity exists without a request, its key is discarded with the failed response
		logger.ContextRequestLogger(ctx).Warn("university registered without an authorization request",
			slog.String("address", account.Address),
			slog.String("institution", name),
			slog.String("error", err.Error()))
		return Registration{}, fromLedger(err, "failed to file authorization request")
	}
	registration.Request = &receipt
	return registration, nil
}

// LoginResult is the result of Login.
type LoginResult struct {
	Token     string
	Role      identity.Role
	ExpiresAt time.Time
}

// Login issues a session token for an identity registered on the ledger, carrying the role the ledger holds
// for it.
func (w *AuthorizationWorkflow) Login(ctx context.Context, address string) (LoginResult, error) {
	normalized, err := identity.NormalizeAddress(address)
	if err != nil {
		return LoginResult{}, WrapValidationError(err, "identity must be an address")
	}

	record, err := w.ledger.GetAuthLevel(ctx, normalized)
	if err != nil {
		if ledger.IsNotFound(err) {
			return LoginResult{}, NewUnauthorizedError("identity is not registered")
		}
		return LoginResult{}, fromLedger(err, "failed to read identity")
	}

	token, err := w.tokens.Issue(record.Address, record.Role)
	if err != nil {
		return LoginResult{}, WrapInternalError(err, "failed to issue session token")
	}

	return LoginResult{
		Token:     token,
		Role:      record.Role,
		ExpiresAt: time.Now().Add(w.tokens.TTL()),
	}, nil
}

// ListRequests returns every authorization request. Gov only.
func (w *AuthorizationWorkflow) ListRequests(ctx context.Context, caller crypto.Session) ([]ledger.AuthorizationRequest, error) {
	if err := requireRole(caller, identity.RoleGov, "list authorization requests"); err != nil {
		return nil, err
	}

	requests, err := w.ledger.GetAllRequests(ctx)
	if err != nil {
		return nil, fromLedger(err, "failed to list requests")
	}
	return requests, nil
}

// ListPendingRequests returns the requests waiting for a decision.
func (w *AuthorizationWorkflow) ListPendingRequests(ctx context.Context) ([]ledger.AuthorizationRequest, error) {
	requests, err := w.ledger.GetAllRequests(ctx)
	if err != nil {
		return nil, fromLedger(err, "failed to list requests")
	}

	pending := make([]ledger.AuthorizationRequest, 0, len(requests))
	for _, r := range requests {
		if r.Status == ledger.StatusPending {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

// Approve approves the Pending request of an institution. Gov only.
func (w *AuthorizationWorkflow) Approve(ctx context.Context, caller crypto.Session, institutionName string) (ledger.Receipt, error) {
	return w.decide(ctx, caller, institutionName, "approve", w.ledger.ApproveRequest)
}

// Reject rejects the Pending request of an institution. Gov only.
func (w *AuthorizationWorkflow) Reject(ctx context.Context, caller crypto.Session, institutionName string) (ledger.Receipt, error) {
	return w.decide(ctx, caller, institutionName, "reject", w.ledger.RejectRequest)
}

func (w *AuthorizationWorkflow) decide(ctx context.Context, caller crypto.Session, institutionName, action string,
	write func(ctx context.Context, signer, name string) (ledger.Receipt, error)) (ledger.Receipt, error) {

	if err := requireRole(caller, identity.RoleGov, action+" authorization requests"); err != nil {
		return ledger.Receipt{}, err
	}

	name := strings.TrimSpace(institutionName)
	if name == "" {
		return ledger.Receipt{}, NewValidationError("institution name is required")
	}

	// unknown names and requests that are no longer Pending are rejected by the contract
	receipt, err := write(ctx, caller.Identity, name)
	if err != nil {
		return ledger.Receipt{}, fromLedger(err, fmt.Sprintf("failed to %s request", action))
	}
	return receipt, nil
}

// RequestStatus returns the authorization request filed by an identity.
func (w *AuthorizationWorkflow) RequestStatus(ctx context.Context, address string) (ledger.AuthorizationRequest, error) {
	request, err := w.ledger.GetRequestByRequester(ctx, address)
	if err != nil {
		return ledger.AuthorizationRequest{}, fromLedger(err, "failed to read request")
	}
	return request, nil
}

func requireRole(caller crypto.Session, role identity.Role, action string) error {
	if caller.Role != role {
		return NewForbiddenError(fmt.Sprintf("only %s identities can %s", role, action))
	}
	return nil
}

func validateName(name string, role identity.Role) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		if role == identity.RoleUniversity {
			return "", NewValidationError("institution name is required")
		}
		return "", NewValidationError("username is required")
	case len(name) > maxNameLength:
		return "", NewValidationError(fmt.Sprintf("name must be at most %d characters", maxNameLength))
	case strings.ContainsAny(name, "/\x00"):
		return "", NewValidationError("name must not contain '/' or NUL characters")
	}
	return name, nil
}
