package contract

import (
	"fmt"
	"strings"

	"github.com/information-sharing-networks/credential-ledger/internal/identity"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger"
)

// requestAuthorization files a Pending request for the signer's institution. args: institution name
//
// A request can only be filed by a registered University for the name it registered with.
// A Pending or Approved request for the name is a conflict. A Rejected request is archived and the new
// request gets the next revision.
func (r *Registry) requestAuthorization(state State, tx TxContext, args []string) (any, error) {
	name, err := normalizeName(args[0], "institution name")
	if err != nil {
		return nil, err
	}

	requester, err := requireRole(state, tx.Signer, identity.RoleUniversity, "request authorization")
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(requester.Name, name) {
		return nil, ledger.NewForbiddenError(fmt.Sprintf("%s is registered as %q and cannot request authorization for %q", tx.Signer, requester.Name, name))
	}

	revision := 1
	var current ledger.AuthorizationRequest
	found, err := getJSON(state, requestKey(name), &current)
	if err != nil {
		return nil, err
	}
	if found {
		if current.Status != ledger.StatusRejected {
			return nil, ledger.NewConflictError(fmt.Sprintf("%s already has a %s authorization request", current.InstitutionName, current.Status))
		}
		if err := putJSON(state, requestHistoryKey(name, current.Revision), current); err != nil {
			return nil, err
		}
		revision = current.Revision + 1
	}

	request := ledger.AuthorizationRequest{
		InstitutionName: name,
		Requester:       tx.Signer,
		Status:          ledger.StatusPending,
		Revision:        revision,
		RequestedAt:     tx.Timestamp,
	}
	if err := putJSON(state, requestKey(name), request); err != nil {
		return nil, err
	}
	if err := putJSON(state, requesterKey(tx.Signer), name); err != nil {
		return nil, err
	}

	return request, nil
}

// approveRequest moves a Pending request to Approved. args: institution name
func (r *Registry) approveRequest(state State, tx TxContext, args []string) (any, error) {
	return r.decide(state, tx, args[0], ledger.StatusApproved)
}

// rejectRequest moves a Pending request to Rejected. args: institution name
func (r *Registry) rejectRequest(state State, tx TxContext, args []string) (any, error) {
	return r.decide(state, tx, args[0], ledger.StatusRejected)
}

func (r *Registry) decide(state State, tx TxContext, institutionName string, status ledger.RequestStatus) (any, error) {
	name, err := normalizeName(institutionName, "institution name")
	if err != nil {
		return nil, err
	}

	if _, err := requireRole(state, tx.Signer, identity.RoleGov, "decide authorization requests"); err != nil {
		return nil, err
	}

	request, err := getRequest(state, name)
	if err != nil {
		return nil, err
	}
	if request.Status != ledger.StatusPending {
		return nil, ledger.NewConflictError(fmt.Sprintf("request for %s is %s, only Pending requests can be decided", request.InstitutionName, request.Status))
	}

	decidedAt := tx.Timestamp
	request.Status = status
	request.DecidedAt = &decidedAt
	request.DecidedBy = tx.Signer

	if err := putJSON(state, requestKey(name), request); err != nil {
		return nil, err
	}
	return request, nil
}

// getAllRequests returns the current request of every institution, ordered by institution name.
func (r *Registry) getAllRequests(state State, args []string) (any, error) {
	values, err := state.GetStateByPrefix("request/")
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return decodeAll[ledger.AuthorizationRequest](values)
}

// getRequest args: institution name
func (r *Registry) getRequest(state State, args []string) (any, error) {
	name, err := normalizeName(args[0], "institution name")
	if err != nil {
		return nil, err
	}
	return getRequest(state, name)
}

// getRequestHistory returns the archived revisions followed by the current request. args: institution name
func (r *Registry) getRequestHistory(state State, args []string) (any, error) {
	name, err := normalizeName(args[0], "institution name")
	if err != nil {
		return nil, err
	}

	current, err := getRequest(state, name)
	if err != nil {
		return nil, err
	}

	values, err := state.GetStateByPrefix(requestHistoryPrefix(name))
	if err != nil {
		return nil, fmt.Errorf("failed to list request history: %w", err)
	}
	history, err := decodeAll[ledger.AuthorizationRequest](values)
	if err != nil {
		return nil, err
	}
	return append(history, current), nil
}

// getRequestByRequester args: requester address
func (r *Registry) getRequestByRequester(state State, args []string) (any, error) {
	address, err := normalizeAddress(args[0], "requester")
	if err != nil {
		return nil, err
	}

	var name string
	found, err := getJSON(state, requesterKey(address), &name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ledger.NewNotFoundError(fmt.Sprintf("%s has not requested authorization", address))
	}
	return requestOf(state, address, name)
}

// requestOf returns the latest request filed by address for an institution name.
// The current request can belong to another identity when the institution re-applied after a rejection,
// in which case the requester's own request is in the history.
func requestOf(state State, address, name string) (ledger.AuthorizationRequest, error) {
	current, err := getRequest(state, name)
	if err != nil {
		return ledger.AuthorizationRequest{}, err
	}
	if strings.EqualFold(current.Requester, address) {
		return current, nil
	}

	values, err := state.GetStateByPrefix(requestHistoryPrefix(name))
	if err != nil {
		return ledger.AuthorizationRequest{}, fmt.Errorf("failed to list request history: %w", err)
	}
	history, err := decodeAll[ledger.AuthorizationRequest](values)
	if err != nil {
		return ledger.AuthorizationRequest{}, err
	}
	for i := len(history) - 1; i >= 0; i-- {
		if strings.EqualFold(history[i].Requester, address) {
			return history[i], nil
		}
	}
	return ledger.AuthorizationRequest{}, ledger.NewNotFoundError(fmt.Sprintf("%s has not requested authorization", address))
}

func getRequest(state State, name string) (ledger.AuthorizationRequest, error) {
	var request ledger.AuthorizationRequest
	found, err := getJSON(state, requestKey(name), &request)
	if err != nil {
		return ledger.AuthorizationRequest{}, err
	}
	if !found {
		return ledger.AuthorizationRequest{}, ledger.NewNotFoundError(fmt.Sprintf("no authorization request for %s", name))
	}
	return request, nil
}
