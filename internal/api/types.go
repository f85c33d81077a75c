package api

// types.go defines the request and response payloads of the HTTP API (the decrypted envelope content).
// Requests accept the field names used by the existing web client as aliases.

import (
	"strings"
	"time"

	"github.com/information-sharing-networks/credential-ledger/internal/identity"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger"
)

// LoginRequest is the body of POST /login
type LoginRequest struct {
	// Identity is the address of a registered identity
	Identity string `json:"identity,omitempty" example:"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"`

	// WalletAddress is an alias of identity
	WalletAddress string `json:"walletAddress,omitempty"`
}

// Address returns identity, or walletAddress when identity is not set.
func (r LoginRequest) Address() string {
	return firstNonBlank(r.Identity, r.WalletAddress)
}

// LoginResponse is returned by POST /login
type LoginResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role" example:"University"`
	ExpiresAt time.Time `json:"expiresAt"`
	Status    bool      `json:"status" example:"true"`
}

// RegisterRequest is the body of POST /register
type RegisterRequest struct {
	// Role is Student or University
	Role string `json:"role" example:"University"`

	// Name is the student username or the institution name
	Name string `json:"name,omitempty" example:"Acme University"`

	// aliases of name
	UniversityName string `json:"universityName,omitempty"`
	StudentName    string `json:"studentName,omitempty"`
	Username       string `json:"username,omitempty"`
}

// DisplayName returns the first of name, universityName, studentName, username that is set.
func (r RegisterRequest) DisplayName() string {
	return firstNonBlank(r.Name, r.UniversityName, r.StudentName, r.Username)
}

// RegisterResponse is returned by POST /register. The private key of the account is not kept by the server.
type RegisterResponse struct {
	Account identity.Account `json:"account"`
	Role    string           `json:"role" example:"University"`
	Name    string           `json:"name"`
	Receipt *ledger.Receipt  `json:"receipt,omitempty"`
	Status  bool             `json:"status" example:"true"`
}

// DecisionRequest is the body of POST /approve and POST /reject
type DecisionRequest struct {
	InstitutionName string `json:"institutionName,omitempty" example:"Acme University"`

	// UniversityName is an alias of institutionName
	UniversityName string `json:"universityName,omitempty"`
}

func (r DecisionRequest) Institution() string {
	return firstNonBlank(r.InstitutionName, r.UniversityName)
}

// DecisionResponse is returned by POST /approve and POST /reject
type DecisionResponse struct {
	Receipt ledger.Receipt `json:"receipt"`
	Status  bool           `json:"status" example:"true"`
}

// RequestsResponse is returned by GET /requests and GET /dev/requests
type RequestsResponse struct {
	Requests []ledger.AuthorizationRequest `json:"requests"`
	Status   bool                          `json:"status" example:"true"`
}

// IssueCredentialRequest is the body of /issueCredentials
type IssueCredentialRequest struct {
	// Student is the holder's address or username
	Student string `json:"student" example:"alice"`

	// CredentialHash is the hex sha256 of the credential file
	CredentialHash string `json:"credentialHash" example:"b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"`

	// CredentialFile is the file, base64 encoded or as a data URL
	CredentialFile string `json:"credentialFile" example:"data:application/pdf;base64,JVBERi0xLjcK"`
}

// IssueCredentialResponse is returned by /issueCredentials
type IssueCredentialResponse struct {
	Message        string         `json:"message" example:"credential issued"`
	CredentialHash string         `json:"credentialHash"`
	Holder         string         `json:"holder"`
	ContentID      string         `json:"contentId"`
	Receipt        ledger.Receipt `json:"receipt"`
	Status         bool           `json:"status" example:"true"`
}

// CredentialHashRequest is the body of /revokeCredential and /verifyCredential
type CredentialHashRequest struct {
	CredentialHash string `json:"credentialHash" example:"b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"`
}

// RevokeCredentialResponse is returned by /revokeCredential. Status is false when nothing was revoked.
type RevokeCredentialResponse struct {
	Message string          `json:"message" example:"credential revoked"`
	Receipt *ledger.Receipt `json:"receipt,omitempty"`
	Status  bool            `json:"status"`
}

// VerifyCredentialResponse is returned by /verifyCredential
type VerifyCredentialResponse struct {
	Valid      bool               `json:"valid"`
	Credential *ledger.Credential `json:"credential,omitempty"`
	Status     bool               `json:"status" example:"true"`
}

// CredentialsResponse is returned by /getAllCredentials
type CredentialsResponse struct {
	Credentials []ledger.Credential `json:"credentials"`
	Status      bool                `json:"status" example:"true"`
}

// UploadRequest is the body of POST /dev/upload
type UploadRequest struct {
	FileName   string `json:"fileName" example:"diploma.pdf"`
	Base64Data string `json:"base64Data"`
}

// UploadResponse is returned by POST /dev/upload
type UploadResponse struct {
	FileName  string `json:"fileName"`
	ContentID string `json:"contentId"`
	URL       string `json:"url,omitempty"`
	Status    bool   `json:"status" example:"true"`
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
