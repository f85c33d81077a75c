package contract

import (
	"fmt"
	"strings"

	"github.com/information-sharing-networks/credential-ledger/internal/identity"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger"
)

// registerIdentity binds a role and a name to the signer.
// args: role, name (student username or institution name)
func (r *Registry) registerIdentity(state State, tx TxContext, args []string) (any, error) {
	role, err := identity.ParseRole(args[0])
	if err != nil {
		return nil, ledger.WrapInvalidError(err, "invalid role")
	}
	if role == identity.RoleGov {
		return nil, ledger.NewForbiddenError("Gov identities can only be created at genesis")
	}

	name, err := normalizeName(args[1], "name")
	if err != nil {
		return nil, err
	}

	var existing ledger.IdentityRecord
	found, err := getJSON(state, identityKey(tx.Signer), &existing)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, ledger.NewConflictError(fmt.Sprintf("%s is already registered as %s", tx.Signer, existing.Role))
	}

	switch role {
	case identity.RoleStudent:
		var owner string
		taken, err := getJSON(state, usernameKey(name), &owner)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ledger.NewConflictError(fmt.Sprintf("username %q is already taken", name))
		}
	case identity.RoleUniversity:
		// a university cannot register under a name another identity holds an active request for
		var current ledger.AuthorizationRequest
		exists, err := getJSON(state, requestKey(name), &current)
		if err != nil {
			return nil, err
		}
		if exists && current.Status != ledger.StatusRejected {
			return nil, ledger.NewConflictError(fmt.Sprintf("%s already has a %s authorization request", current.InstitutionName, current.Status))
		}
	}

	record := ledger.IdentityRecord{
		Address:      tx.Signer,
		Role:         role,
		Name:         name,
		RegisteredAt: tx.Timestamp,
	}
	if err := putJSON(state, identityKey(tx.Signer), record); err != nil {
		return nil, err
	}
	if role == identity.RoleStudent {
		if err := putJSON(state, usernameKey(name), tx.Signer); err != nil {
			return nil, err
		}
	}

	return record, nil
}

// getAuthLevel returns the identity record of an address. args: address
func (r *Registry) getAuthLevel(state State, args []string) (any, error) {
	address, err := normalizeAddress(args[0], "identity")
	if err != nil {
		return nil, err
	}
	return getIdentity(state, address)
}

// resolveHolder returns the student registered under a username. args: username
func (r *Registry) resolveHolder(state State, args []string) (any, error) {
	username := strings.TrimSpace(args[0])
	if username == "" {
		return nil, ledger.NewInvalidError("username is required")
	}

	var address string
	found, err := getJSON(state, usernameKey(username), &address)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ledger.NewNotFoundError(fmt.Sprintf("no student registered with username %q", username))
	}

	return ledger.Holder{Username: username, Address: address}, nil
}

func getIdentity(state State, address string) (ledger.IdentityRecord, error) {
	var record ledger.IdentityRecord
	found, err := getJSON(state, identityKey(address), &record)
	if err != nil {
		return ledger.IdentityRecord{}, err
	}
	if !found {
		return ledger.IdentityRecord{}, ledger.NewNotFoundError(fmt.Sprintf("%s is not registered", address))
	}
	return record, nil
}

// requireRole returns the signer's identity record if it has the role, a forbidden error otherwise
func requireRole(state State, signer string, role identity.Role, action string) (ledger.IdentityRecord, error) {
	record, err := getIdentity(state, signer)
	if ledger.IsNotFound(err) {
		return ledger.IdentityRecord{}, ledger.NewForbiddenError(fmt.Sprintf("only %s identities may %s: %s is not registered", role, action, signer))
	}
	if err != nil {
		return ledger.IdentityRecord{}, err
	}
	if record.Role != role {
		return ledger.IdentityRecord{}, ledger.NewForbiddenError(fmt.Sprintf("only %s identities may %s", role, action))
	}
	return record, nil
}
