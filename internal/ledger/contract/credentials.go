package contract

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/information-sharing-networks/credential-ledger/internal/identity"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger"
)

// issueCredential records a credential for a student. args: holder address, credential hash, content id
//
// The signer must be a University whose own authorization request is Approved.
// A hash can only be issued once.
func (r *Registry) issueCredential(state State, tx TxContext, args []string) (any, error) {
	holder, err := normalizeAddress(args[0], "holder")
	if err != nil {
		return nil, err
	}
	hash, err := normalizeHash(args[1])
	if err != nil {
		return nil, err
	}
	contentID := strings.TrimSpace(args[2])
	if contentID == "" || len(contentID) > maxContentIDLength {
		return nil, ledger.NewInvalidError(fmt.Sprintf("content id must be between 1 and %d characters", maxContentIDLength))
	}

	issuer, err := requireRole(state, tx.Signer, identity.RoleUniversity, "issue credentials")
	if err != nil {
		return nil, err
	}
	request, err := requestOf(state, tx.Signer, issuer.Name)
	if ledger.IsNotFound(err) {
		return nil, ledger.NewForbiddenError(fmt.Sprintf("%s has not requested authorization to issue credentials", issuer.Name))
	}
	if err != nil {
		return nil, err
	}
	if request.Status != ledger.StatusApproved {
		return nil, ledger.NewForbiddenError(fmt.Sprintf("%s is not an approved issuer (request is %s)", issuer.Name, request.Status))
	}

	student, err := getIdentity(state, holder)
	if err != nil {
		return nil, err
	}
	if student.Role != identity.RoleStudent {
		return nil, ledger.NewInvalidError(fmt.Sprintf("%s is not a student", holder))
	}

	var existing ledger.Credential
	found, err := getJSON(state, credentialKey(hash), &existing)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, ledger.NewConflictError("a credential with this hash has already been issued")
	}

	credential := ledger.Credential{
		Hash:      hash,
		Holder:    holder,
		Issuer:    tx.Signer,
		ContentID: contentID,
		Valid:     true,
		IssuedAt:  tx.Timestamp,
	}
	if err := putJSON(state, credentialKey(hash), credential); err != nil {
		return nil, err
	}
	if err := putJSON(state, holderPrefix(holder)+hash, hash); err != nil {
		return nil, err
	}

	return credential, nil
}

// revokeCredential marks a credential invalid. args: credential hash
// Only the issuing identity may revoke, and a credential can only be revoked once.
func (r *Registry) revokeCredential(state State, tx TxContext, args []string) (any, error) {
	hash, err := normalizeHash(args[0])
	if err != nil {
		return nil, err
	}

	if _, err := requireRole(state, tx.Signer, identity.RoleUniversity, "revoke credentials"); err != nil {
		return nil, err
	}

	credential, err := getCredential(state, hash)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(credential.Issuer, tx.Signer) {
		return nil, ledger.NewForbiddenError("only the issuer of a credential may revoke it")
	}
	if !credential.Valid {
		return nil, ledger.NewConflictError("credential has already been revoked")
	}

	revokedAt := tx.Timestamp
	credential.Valid = false
	credential.RevokedAt = &revokedAt

	if err := putJSON(state, credentialKey(hash), credential); err != nil {
		return nil, err
	}
	return credential, nil
}

// verifyCredential reports whether a hash is issued and not revoked. args: credential hash
// Unknown and revoked hashes are both reported as not valid.
func (r *Registry) verifyCredential(state State, args []string) (any, error) {
	hash, err := normalizeHash(args[0])
	if err != nil {
		return nil, err
	}

	var credential ledger.Credential
	found, err := getJSON(state, credentialKey(hash), &credential)
	if err != nil {
		return nil, err
	}
	return ledger.Verification{Hash: hash, Valid: found && credential.Valid}, nil
}

// getCredential args: credential hash
func (r *Registry) getCredential(state State, args []string) (any, error) {
	hash, err := normalizeHash(args[0])
	if err != nil {
		return nil, err
	}
	return getCredential(state, hash)
}

// getCredentialsByHolder returns a student's credentials (valid and revoked), oldest first. args: holder address
func (r *Registry) getCredentialsByHolder(state State, args []string) (any, error) {
	holder, err := normalizeAddress(args[0], "holder")
	if err != nil {
		return nil, err
	}

	values, err := state.GetStateByPrefix(holderPrefix(holder))
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	hashes, err := decodeAll[string](values)
	if err != nil {
		return nil, err
	}

	credentials := make([]ledger.Credential, 0, len(hashes))
	for _, hash := range hashes {
		credential, err := getCredential(state, hash)
		if err != nil {
			return nil, err
		}
		credentials = append(credentials, credential)
	}

	sort.SliceStable(credentials, func(i, j int) bool {
		return credentials[i].IssuedAt.Before(credentials[j].IssuedAt)
	})
	return credentials, nil
}

func getCredential(state State, hash string) (ledger.Credential, error) {
	var credential ledger.Credential
	found, err := getJSON(state, credentialKey(hash), &credential)
	if err != nil {
		return ledger.Credential{}, err
	}
	if !found {
		return ledger.Credential{}, ledger.NewNotFoundError("no credential with this hash")
	}
	return credential, nil
}

// normalizeHash accepts 64 hex characters with an optional 0x prefix and returns them lower case
func normalizeHash(s string) (string, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(h) != 64 {
		return "", ledger.NewInvalidError("credential hash must be 64 hex characters")
	}
	if _, err := hex.DecodeString(h); err != nil {
		return "", ledger.WrapInvalidError(err, "credential hash is not valid hex")
	}
	return strings.ToLower(h), nil
}

func decodeAll[T any](values [][]byte) ([]T, error) {
	out := make([]T, 0, len(values))
	for _, raw := range values {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("corrupt state: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}
