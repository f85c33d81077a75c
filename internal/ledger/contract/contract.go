// Package contract implements the credential registry: the state rules of the ledger.
//
// The same contract runs in-process for the local ledger (memory or postgres state) and inside the
// Fabric chaincode, so every backend enforces identical rules. The contract only sees a key/value State
// and the transaction context (signer, timestamp, tx id) supplied by its host.
//
// State layout (all keys lower case):
//
//	identity/<address>                       IdentityRecord
//	username/<name>                          student address
//	request/<institution>                    current AuthorizationRequest
//	request-history/<institution>/<revision> archived AuthorizationRequest
//	requester/<address>                      institution name of the requester's current request
//	credential/<hash>                        Credential
//	holder/<address>/<hash>                  credential hash (index)
package contract

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/information-sharing-networks/credential-ledger/internal/identity"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger"
)

// State is the key/value world state the contract reads and writes.
type State interface {
	// GetState returns the value stored under key, or nil if the key does not exist.
	GetState(key string) ([]byte, error)

	PutState(key string, value []byte) error

	// GetStateByPrefix returns the values of all keys starting with prefix, in key order.
	GetStateByPrefix(prefix string) ([][]byte, error)
}

// TxContext describes the transaction being executed.
type TxContext struct {
	Signer    string
	Timestamp time.Time
	TxID      string
}

// limits on user supplied strings
const (
	maxNameLength      = 256
	maxContentIDLength = 512
)

type queryFunc func(state State, args []string) (any, error)
type invokeFunc func(state State, tx TxContext, args []string) (any, error)

type method[F any] struct {
	fn    F
	nargs int
}

// Registry is the credential registry contract.
type Registry struct {
	queries map[string]method[queryFunc]
	invokes map[string]method[invokeFunc]
}

func New() *Registry {
	r := &Registry{}
	r.queries = map[string]method[queryFunc]{
		ledger.MethodGetAuthLevel:           {r.getAuthLevel, 1},
		ledger.MethodGetAllRequests:         {r.getAllRequests, 0},
		ledger.MethodGetRequest:             {r.getRequest, 1},
		ledger.MethodGetRequestHistory:      {r.getRequestHistory, 1},
		ledger.MethodGetRequestByRequester:  {r.getRequestByRequester, 1},
		ledger.MethodVerifyCredential:       {r.verifyCredential, 1},
		ledger.MethodGetCredential:          {r.getCredential, 1},
		ledger.MethodGetCredentialsByHolder: {r.getCredentialsByHolder, 1},
		ledger.MethodResolveHolder:          {r.resolveHolder, 1},
	}
	r.invokes = map[string]method[invokeFunc]{
		ledger.MethodRegisterIdentity:     {r.registerIdentity, 2},
		ledger.MethodRequestAuthorization: {r.requestAuthorization, 1},
		ledger.MethodApproveRequest:       {r.approveRequest, 1},
		ledger.MethodRejectRequest:        {r.rejectRequest, 1},
		ledger.MethodIssueCredential:      {r.issueCredential, 3},
		ledger.MethodRevokeCredential:     {r.revokeCredential, 1},
	}
	return r
}

// IsQuery reports whether method is a read-only contract method.
func (r *Registry) IsQuery(method string) bool {
	_, ok := r.queries[method]
	return ok
}

// IsInvoke reports whether method is a state-changing contract method.
func (r *Registry) IsInvoke(method string) bool {
	_, ok := r.invokes[method]
	return ok
}

// Query executes a read-only method and returns its JSON result.
func (r *Registry) Query(state State, name string, args []string) ([]byte, error) {
	m, ok := r.queries[name]
	if !ok {
		return nil, ledger.NewInvalidError(fmt.Sprintf("unknown query method %q", name))
	}
	if len(args) != m.nargs {
		return nil, ledger.NewInvalidError(fmt.Sprintf("%s expects %d arguments, got %d", name, m.nargs, len(args)))
	}

	result, err := m.fn(state, args)
	if err != nil {
		return nil, err
	}
	return marshalResult(result)
}

// Invoke executes a state-changing method on behalf of tx.Signer and returns the JSON of the record it wrote.
// Invoke validates everything before the first PutState: a failed invoke leaves the state unchanged.
func (r *Registry) Invoke(state State, tx TxContext, name string, args []string) ([]byte, error) {
	m, ok := r.invokes[name]
	if !ok {
		return nil, ledger.NewInvalidError(fmt.Sprintf("unknown invoke method %q", name))
	}
	if len(args) != m.nargs {
		return nil, ledger.NewInvalidError(fmt.Sprintf("%s expects %d arguments, got %d", name, m.nargs, len(args)))
	}

	signer, err := normalizeAddress(tx.Signer, "signer")
	if err != nil {
		return nil, err
	}
	tx.Signer = signer
	tx.Timestamp = tx.Timestamp.UTC()

	result, err := m.fn(state, tx, args)
	if err != nil {
		return nil, err
	}
	return marshalResult(result)
}

// InitGenesis registers the government identities. Existing registrations are left unchanged.
func InitGenesis(state State, govIdentities []string, timestamp time.Time) error {
	for _, id := range govIdentities {
		address, err := normalizeAddress(id, "gov identity")
		if err != nil {
			return err
		}

		var existing ledger.IdentityRecord
		found, err := getJSON(state, identityKey(address), &existing)
		if err != nil {
			return err
		}
		if found {
			if existing.Role != identity.RoleGov {
				return ledger.NewConflictError(fmt.Sprintf("%s is already registered as %s", address, existing.Role))
			}
			continue
		}

		record := ledger.IdentityRecord{Address: address, Role: identity.RoleGov, RegisteredAt: timestamp.UTC()}
		if err := putJSON(state, identityKey(address), record); err != nil {
			return err
		}
	}
	return nil
}

func identityKey(address string) string {
	return "identity/" + strings.ToLower(address)
}

func usernameKey(name string) string {
	return "username/" + strings.ToLower(name)
}

func requestKey(name string) string {
	return "request/" + strings.ToLower(name)
}

func requesterKey(address string) string {
	return "requester/" + strings.ToLower(address)
}

func requestHistoryPrefix(name string) string {
	return "request-history/" + strings.ToLower(name) + "/"
}

func requestHistoryKey(name string, revision int) string {
	return fmt.Sprintf("%s%06d", requestHistoryPrefix(name), revision)
}

func credentialKey(hash string) string {
	return "credential/" + hash
}

func holderPrefix(address string) string {
	return "holder/" + strings.ToLower(address) + "/"
}

func marshalResult(result any) ([]byte, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return payload, nil
}

// getJSON reads key into v and reports whether the key exists
func getJSON(state State, key string, v any) (bool, error) {
	raw, err := state.GetState(key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("corrupt state at %s: %w", key, err)
	}
	return true, nil
}

func putJSON(state State, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := state.PutState(key, raw); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func normalizeAddress(s, field string) (string, error) {
	address, err := identity.NormalizeAddress(s)
	if err != nil {
		return "", ledger.WrapInvalidError(err, field+" is not a valid address")
	}
	return address, nil
}

func normalizeName(s, field string) (string, error) {
	name := strings.TrimSpace(s)
	if name == "" {
		return "", ledger.NewInvalidError(field + " is required")
	}
	if len(name) > maxNameLength {
		return "", ledger.NewInvalidError(fmt.Sprintf("%s must be at most %d characters", field, maxNameLength))
	}
	if strings.ContainsAny(name, "/\x00") {
		return "", ledger.NewInvalidError(field + " must not contain '/' or NUL characters")
	}
	return name, nil
}
