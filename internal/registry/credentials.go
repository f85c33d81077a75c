package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/information-sharing-networks/credential-ledger/internal/contentstore"
	"github.com/information-sharing-networks/credential-ledger/internal/crypto"
	"github.com/information-sharing-networks/credential-ledger/internal/identity"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger"
)

// RevokeNoopMessage is returned when revoking a hash that is not currently valid.
const RevokeNoopMessage = "credential is already invalid or was never issued"

// CredentialLifecycle issues, verifies and revokes credentials.
type CredentialLifecycle struct {
	ledger      *ledger.Client
	store       contentstore.Store
	maxFileSize int64
}

func NewCredentialLifecycle(gateway ledger.Gateway, store contentstore.Store, maxFileSize int64) *CredentialLifecycle {
	return &CredentialLifecycle{
		ledger:      ledger.NewClient(gateway),
		store:       store,
		maxFileSize: maxFileSize,
	}
}

// IssueRequest describes a credential to issue.
type IssueRequest struct {
	// Student is the holder's address or student username
	Student string

	// Hash is the credential hash (64 hex characters, optional 0x prefix)
	Hash string

	File []byte
}

// IssueResult is the result of Issue.
type IssueResult struct {
	Hash      string
	Holder    string
	ContentID string
	Receipt   ledger.Receipt
}

// Issue uploads the credential file to the content store and records the credential on the ledger, signed by
// the caller. The caller must be a university with an Approved authorization request.
//
// The ledger write happens only after a successful upload. If the write fails the uploaded content is left in
// the store (content addressed, a retry reuses it).
func (c *CredentialLifecycle) Issue(ctx context.Context, caller crypto.Session, req IssueRequest) (IssueResult, error) {
	if err := requireRole(caller, identity.RoleUniversity, "issue credentials"); err != nil {
		return IssueResult{}, err
	}

	hash, err := crypto.NormalizeHash(req.Hash)
	if err != nil {
		return IssueResult{}, WrapValidationError(err, "invalid credential hash")
	}
	if len(req.File) == 0 {
		return IssueResult{}, NewValidationError("credential file is required")
	}
	if int64(len(req.File)) > c.maxFileSize {
		return IssueResult{}, NewValidationError(fmt.Sprintf("credential file exceeds maximum size (%d bytes)", c.maxFileSize))
	}

	request, err := c.ledger.GetRequestByRequester(ctx, caller.Identity)
	if err != nil {
		if ledger.IsNotFound(err) {
			return IssueResult{}, NewForbiddenError("caller has not requested authorization to issue credentials")
		}
		return IssueResult{}, fromLedger(err, "failed to read authorization request")
	}
	if request.Status != ledger.StatusApproved {
		return IssueResult{}, NewForbiddenError(fmt.Sprintf("%s is not an approved issuer (request is %s)", request.InstitutionName, request.Status))
	}

	holder, err := c.resolveStudent(ctx, req.Student)
	if err != nil {
		return IssueResult{}, err
	}

	// avoid an upload for a hash that cannot be issued, the contract checks again in the write
	if _, err := c.ledger.GetCredential(ctx, hash); err == nil {
		return IssueResult{}, NewConflictError("a credential with this hash has already been issued")
	} else if !ledger.IsNotFound(err) {
		return IssueResult{}, fromLedger(err, "failed to read credential")
	}

	contentID, err := c.store.Store(ctx, req.File)
	if err != nil {
		return IssueResult{}, WrapUpstreamError(err, "failed to upload credential file")
	}

	receipt, err := c.ledger.IssueCredential(ctx, caller.Identity, holder, hash, contentID)
	if err != nil {
		return IssueResult{}, fromLedger(err, "failed to issue credential")
	}

	return IssueResult{Hash: hash, Holder: holder, ContentID: contentID, Receipt: receipt}, nil
}

// resolveStudent returns the address of a registered student given an address or a username.
func (c *CredentialLifecycle) resolveStudent(ctx context.Context, student string) (string, error) {
	student = strings.TrimSpace(student)
	if student == "" {
		return "", NewValidationError("student is required")
	}

	if identity.IsAddress(student) {
		record, err := c.ledger.GetAuthLevel(ctx, student)
		if err != nil {
			if ledger.IsNotFound(err) {
				return "", NewNotFoundError("student is not registered")
			}
			return "", fromLedger(err, "failed to read student identity")
		}
		if record.Role != identity.RoleStudent {
			return "", NewValidationError(fmt.Sprintf("%s is not a student", record.Address))
		}
		return record.Address, nil
	}

	holder, err := c.ledger.ResolveHolder(ctx, student)
	if err != nil {
		if ledger.IsNotFound(err) {
			return "", NewNotFoundError(fmt.Sprintf("no student is registered as %q", student))
		}
		return "", fromLedger(err, "failed to resolve student")
	}
	return holder.Address, nil
}

// Verify reports whether hash is an issued, unrevoked credential. Unknown and revoked hashes both return false.
func (c *CredentialLifecycle) Verify(ctx context.Context, hash string) (bool, error) {
	normalized, err := crypto.NormalizeHash(hash)
	if err != nil {
		return false, WrapValidationError(err, "invalid credential hash")
	}

	valid, err := c.ledger.VerifyCredential(ctx, normalized)
	if err != nil {
		return false, fromLedger(err, "failed to verify credential")
	}
	return valid, nil
}

// Get returns the ledger record of a credential.
func (c *CredentialLifecycle) Get(ctx context.Context, hash string) (ledger.Credential, error) {
	normalized, err := crypto.NormalizeHash(hash)
	if err != nil {
		return ledger.Credential{}, WrapValidationError(err, "invalid credential hash")
	}

	credential, err := c.ledger.GetCredential(ctx, normalized)
	if err != nil {
		return ledger.Credential{}, fromLedger(err, "failed to read credential")
	}
	return credential, nil
}

// RevokeResult is the result of Revoke.
type RevokeResult struct {
	Revoked bool
	Message string
	Receipt *ledger.Receipt
}

// Revoke invalidates a credential. Universities only; the contract only lets the issuing university revoke.
// Revoking a hash that is not currently valid is a no-op reported in the result, not an error.
func (c *CredentialLifecycle) Revoke(ctx context.Context, caller crypto.Session, hash string) (RevokeResult, error) {
	if err := requireRole(caller, identity.RoleUniversity, "revoke credentials"); err != nil {
		return RevokeResult{}, err
	}

	normalized, err := crypto.NormalizeHash(hash)
	if err != nil {
		return RevokeResult{}, WrapValidationError(err, "invalid credential hash")
	}

	valid, err := c.ledger.VerifyCredential(ctx, normalized)
	if err != nil {
		return RevokeResult{}, fromLedger(err, "failed to verify credential")
	}
	if !valid {
		return RevokeResult{Revoked: false, Message: RevokeNoopMessage}, nil
	}

	receipt, err := c.ledger.RevokeCredential(ctx, caller.Identity, normalized)
	if err != nil {
		return RevokeResult{}, fromLedger(err, "failed to revoke credential")
	}
	return RevokeResult{Revoked: true, Message: "credential revoked", Receipt: &receipt}, nil
}

// ListForHolder returns the credentials held by the caller. Students only.
func (c *CredentialLifecycle) ListForHolder(ctx context.Context, caller crypto.Session) ([]ledger.Credential, error) {
	if err := requireRole(caller, identity.RoleStudent, "list their credentials"); err != nil {
		return nil, err
	}

	credentials, err := c.ledger.GetCredentialsByHolder(ctx, caller.Identity)
	if err != nil {
		return nil, fromLedger(err, "failed to list credentials")
	}
	return credentials, nil
}
