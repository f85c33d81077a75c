package ledger

import (
	"time"

	"github.com/information-sharing-networks/credential-ledger/internal/identity"
)

// Contract method names
const (
	MethodGetAuthLevel           = "getAuthLevel"
	MethodGetAllRequests         = "getAllRequests"
	MethodGetRequest             = "getRequest"
	MethodGetRequestHistory      = "getRequestHistory"
	MethodGetRequestByRequester  = "getRequestByRequester"
	MethodVerifyCredential       = "verifyCredential"
	MethodGetCredential          = "getCredential"
	MethodGetCredentialsByHolder = "getCredentialsByHolder"
	MethodResolveHolder          = "resolveHolder"
	MethodRegisterIdentity       = "registerIdentity"
	MethodRequestAuthorization   = "requestAuthorization"
	MethodApproveRequest         = "approveRequest"
	MethodRejectRequest          = "rejectRequest"
	MethodIssueCredential        = "issueCredential"
	MethodRevokeCredential       = "revokeCredential"
)

// RequestStatus is the state of an authorization request
type RequestStatus string

const (
	StatusPending  RequestStatus = "Pending"
	StatusApproved RequestStatus = "Approved"
	StatusRejected RequestStatus = "Rejected"
)

// IdentityRecord binds an address to its role.
// Name is the institution name for universities and the username for students.
type IdentityRecord struct {
	Address      string        `json:"address"`
	Role         identity.Role `json:"role"`
	Name         string        `json:"name,omitempty"`
	RegisteredAt time.Time     `json:"registeredAt"`
}

// AuthorizationRequest is a university's request to become an approved credential issuer.
//
// Requests are never deleted: when a rejected institution applies again the rejected request is archived
// in the request history and a new request is created with the next revision.
type AuthorizationRequest struct {
	InstitutionName string        `json:"institutionName"`
	Requester       string        `json:"requester"`
	Status          RequestStatus `json:"status"`
	Revision        int           `json:"revision"`
	RequestedAt     time.Time     `json:"requestedAt"`
	DecidedAt       *time.Time    `json:"decidedAt,omitempty"`
	DecidedBy       string        `json:"decidedBy,omitempty"`
}

// Credential is the ledger record of an issued credential.
// The credential document itself is held in the content store under ContentID.
type Credential struct {
	Hash      string     `json:"credentialHash"`
	Holder    string     `json:"holder"`
	Issuer    string     `json:"issuer"`
	ContentID string     `json:"contentId"`
	Valid     bool       `json:"valid"`
	IssuedAt  time.Time  `json:"issuedAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

// Verification is the result of verifyCredential
type Verification struct {
	Hash  string `json:"credentialHash"`
	Valid bool   `json:"valid"`
}

// Holder is the result of resolveHolder
type Holder struct {
	Username string `json:"username"`
	Address  string `json:"address"`
}

// Receipt acknowledges a ledger write.
// Nonce is the sequence number of the write for its signer (1 for the first write).
type Receipt struct {
	TxID      string    `json:"txId"`
	Signer    string    `json:"signer"`
	Nonce     uint64    `json:"nonce"`
	Method    string    `json:"method"`
	Timestamp time.Time `json:"timestamp"`
}
