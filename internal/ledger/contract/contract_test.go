package contract

import (
	"encoding/json"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/information-sharing-networks/credential-ledger/internal/identity"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger"
)

type mapState map[string][]byte

func (m mapState) GetState(key string) ([]byte, error) { return m[key], nil }

func (m mapState) PutState(key string, value []byte) error {
	m[key] = value
	return nil
}

func (m mapState) GetStateByPrefix(prefix string) ([][]byte, error) {
	var keys []string
	for k := range m {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	values := make([][]byte, 0, len(keys))
	for _, k := range keys {
		values = append(values, m[k])
	}
	return values, nil
}

const (
	gov        = "0x1111111111111111111111111111111111111111"
	university = "0x2222222222222222222222222222222222222222"
	student    = "0x3333333333333333333333333333333333333333"
	other      = "0x4444444444444444444444444444444444444444"
	hash1      = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
)

type fixture struct {
	t        *testing.T
	registry *Registry
	state    mapState
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, registry: New(), state: mapState{}, now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	require.NoError(t, InitGenesis(f.state, []string{gov}, f.now))
	return f
}

func (f *fixture) invoke(signer, method string, args ...string) ([]byte, error) {
	f.now = f.now.Add(time.Minute)
	return f.registry.Invoke(f.state, TxContext{Signer: signer, Timestamp: f.now, TxID: "tx"}, method, args)
}

func (f *fixture) mustInvoke(signer, method string, args ...string) []byte {
	f.t.Helper()
	out, err := f.invoke(signer, method, args...)
	require.NoError(f.t, err, "%s by %s", method, signer)
	return out
}

func (f *fixture) query(method string, args ...string) ([]byte, error) {
	return f.registry.Query(f.state, method, args)
}

// approvedUniversity registers a university and a student and approves the university
func (f *fixture) approvedUniversity() {
	f.mustInvoke(university, ledger.MethodRegisterIdentity, "University", "Acme University")
	f.mustInvoke(university, ledger.MethodRequestAuthorization, "Acme University")
	f.mustInvoke(gov, ledger.MethodApproveRequest, "Acme University")
	f.mustInvoke(student, ledger.MethodRegisterIdentity, "Student", "alice")
}

func TestRegisterIdentity(t *testing.T) {
	f := newFixture(t)

	out := f.mustInvoke(student, ledger.MethodRegisterIdentity, "Student", "alice")
	var record ledger.IdentityRecord
	require.NoError(t, json.Unmarshal(out, &record))
	assert.Equal(t, identity.RoleStudent, record.Role)
	assert.Equal(t, "alice", record.Name)

	tests := []struct {
		name     string
		signer   string
		args     []string
		wantCode ledger.ErrorCode
	}{
		{"already registered", student, []string{"University", "Other"}, ledger.ErrCodeConflict},
		{"username taken", other, []string{"Student", "ALICE"}, ledger.ErrCodeConflict},
		{"gov via contract", other, []string{"Gov", "Ministry"}, ledger.ErrCodeForbidden},
		{"unknown role", other, []string{"Admin", "x"}, ledger.ErrCodeInvalid},
		{"empty name", other, []string{"Student", "  "}, ledger.ErrCodeInvalid},
		{"name with slash", other, []string{"Student", "a/b"}, ledger.ErrCodeInvalid},
		{"bad signer", "not-an-address", []string{"Student", "bob"}, ledger.ErrCodeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.invoke(tt.signer, ledger.MethodRegisterIdentity, tt.args...)
			assert.Equal(t, tt.wantCode, ledger.CodeOf(err))
		})
	}

	out, err := f.query(ledger.MethodGetAuthLevel, strings.ToUpper(student[2:]))
	assert.Error(t, err, "address without prefix should be rejected")
	assert.Nil(t, out)

	out, err = f.query(ledger.MethodGetAuthLevel, gov)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(out, &record))
	assert.Equal(t, identity.RoleGov, record.Role)

	_, err = f.query(ledger.MethodGetAuthLevel, other)
	assert.True(t, ledger.IsNotFound(err))

	out, err = f.query(ledger.MethodResolveHolder, "Alice")
	require.NoError(t, err)
	var holder ledger.Holder
	require.NoError(t, json.Unmarshal(out, &holder))
	assert.Equal(t, student, strings.ToLower(holder.Address))
}

func TestAuthorizationWorkflow(t *testing.T) {
	f := newFixture(t)
	f.mustInvoke(university, ledger.MethodRegisterIdentity, "University", "Acme University")

	// only the registered university may request, for its own name
	_, err := f.invoke(other, ledger.MethodRequestAuthorization, "Acme University")
	assert.Equal(t, ledger.ErrCodeForbidden, ledger.CodeOf(err))
	_, err = f.invoke(university, ledger.MethodRequestAuthorization, "Other University")
	assert.Equal(t, ledger.ErrCodeForbidden, ledger.CodeOf(err))

	out := f.mustInvoke(university, ledger.MethodRequestAuthorization, "Acme University")
	var request ledger.AuthorizationRequest
	require.NoError(t, json.Unmarshal(out, &request))
	assert.Equal(t, ledger.StatusPending, request.Status)
	assert.Equal(t, 1, request.Revision)

	// duplicate while pending
	_, err = f.invoke(university, ledger.MethodRequestAuthorization, "Acme University")
	assert.Equal(t, ledger.ErrCodeConflict, ledger.CodeOf(err))

	// only gov decides
	_, err = f.invoke(university, ledger.MethodApproveRequest, "Acme University")
	assert.Equal(t, ledger.ErrCodeForbidden, ledger.CodeOf(err))

	// unknown name
	_, err = f.invoke(gov, ledger.MethodApproveRequest, "Unknown University")
	assert.Equal(t, ledger.ErrCodeNotFound, ledger.CodeOf(err))
	_, err = f.invoke(gov, ledger.MethodRejectRequest, "Unknown University")
	assert.Equal(t, ledger.ErrCodeNotFound, ledger.CodeOf(err))

	f.mustInvoke(gov, ledger.MethodRejectRequest, "acme university")

	// decided requests cannot be decided again
	_, err = f.invoke(gov, ledger.MethodApproveRequest, "Acme University")
	assert.Equal(t, ledger.ErrCodeConflict, ledger.CodeOf(err))
	_, err = f.invoke(gov, ledger.MethodRejectRequest, "Acme University")
	assert.Equal(t, ledger.ErrCodeConflict, ledger.CodeOf(err))

	// a new identity may re-apply for a rejected name, the rejected request is kept in the history
	f.mustInvoke(other, ledger.MethodRegisterIdentity, "University", "Acme University")
	out = f.mustInvoke(other, ledger.MethodRequestAuthorization, "Acme University")
	require.NoError(t, json.Unmarshal(out, &request))
	assert.Equal(t, 2, request.Revision)
	assert.Equal(t, ledger.StatusPending, request.Status)

	out, err = f.query(ledger.MethodGetRequestHistory, "Acme University")
	require.NoError(t, err)
	var history []ledger.AuthorizationRequest
	require.NoError(t, json.Unmarshal(out, &history))
	require.Len(t, history, 2)
	assert.Equal(t, ledger.StatusRejected, history[0].Status)
	assert.Equal(t, ledger.StatusPending, history[1].Status)

	// the first requester still sees its own (rejected) request
	out, err = f.query(ledger.MethodGetRequestByRequester, university)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(out, &request))
	assert.Equal(t, ledger.StatusRejected, request.Status)

	f.mustInvoke(gov, ledger.MethodApproveRequest, "Acme University")

	// approved names cannot be registered again
	_, err = f.invoke("0x5555555555555555555555555555555555555555", ledger.MethodRegisterIdentity, "University", "ACME University")
	assert.Equal(t, ledger.ErrCodeConflict, ledger.CodeOf(err))

	out, err = f.query(ledger.MethodGetAllRequests)
	require.NoError(t, err)
	var all []ledger.AuthorizationRequest
	require.NoError(t, json.Unmarshal(out, &all))
	require.Len(t, all, 1)
	assert.Equal(t, ledger.StatusApproved, all[0].Status)
	assert.Equal(t, gov, strings.ToLower(all[0].DecidedBy))
}

func TestCredentialLifecycle(t *testing.T) {
	f := newFixture(t)
	f.approvedUniversity()

	verify := func(hash string) bool {
		t.Helper()
		out, err := f.query(ledger.MethodVerifyCredential, hash)
		require.NoError(t, err)
		var v ledger.Verification
		require.NoError(t, json.Unmarshal(out, &v))
		return v.Valid
	}

	assert.False(t, verify(hash1), "unknown hash must not verify")

	f.mustInvoke(university, ledger.MethodIssueCredential, student, "0x"+strings.ToUpper(hash1), "bafybeigdyrzt")
	assert.True(t, verify(hash1))

	_, err := f.invoke(university, ledger.MethodIssueCredential, student, hash1, "bafybeigdyrzt")
	assert.Equal(t, ledger.ErrCodeConflict, ledger.CodeOf(err), "duplicate hash")

	out, err := f.query(ledger.MethodGetCredentialsByHolder, student)
	require.NoError(t, err)
	var credentials []ledger.Credential
	require.NoError(t, json.Unmarshal(out, &credentials))
	require.Len(t, credentials, 1)
	assert.Equal(t, hash1, credentials[0].Hash)
	assert.Equal(t, "bafybeigdyrzt", credentials[0].ContentID)

	// only the issuer revokes
	f.mustInvoke(other, ledger.MethodRegisterIdentity, "University", "Other University")
	_, err = f.invoke(other, ledger.MethodRevokeCredential, hash1)
	assert.Equal(t, ledger.ErrCodeForbidden, ledger.CodeOf(err))

	f.mustInvoke(university, ledger.MethodRevokeCredential, hash1)
	assert.False(t, verify(hash1))

	_, err = f.invoke(university, ledger.MethodRevokeCredential, hash1)
	assert.Equal(t, ledger.ErrCodeConflict, ledger.CodeOf(err))

	out, err = f.query(ledger.MethodGetCredential, hash1)
	require.NoError(t, err)
	var credential ledger.Credential
	require.NoError(t, json.Unmarshal(out, &credential))
	assert.False(t, credential.Valid)
	assert.NotNil(t, credential.RevokedAt)
}

func TestIssueCredentialRules(t *testing.T) {
	f := newFixture(t)
	f.mustInvoke(university, ledger.MethodRegisterIdentity, "University", "Acme University")
	f.mustInvoke(student, ledger.MethodRegisterIdentity, "Student", "alice")

	tests := []struct {
		name     string
		signer   string
		args     []string
		wantCode ledger.ErrorCode
	}{
		{"university without request", university, []string{student, hash1, "cid"}, ledger.ErrCodeForbidden},
		{"student", student, []string{student, hash1, "cid"}, ledger.ErrCodeForbidden},
		{"gov", gov, []string{student, hash1, "cid"}, ledger.ErrCodeForbidden},
		{"unregistered", other, []string{student, hash1, "cid"}, ledger.ErrCodeForbidden},
		{"bad hash", university, []string{student, "abc", "cid"}, ledger.ErrCodeInvalid},
		{"empty content id", university, []string{student, hash1, ""}, ledger.ErrCodeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.invoke(tt.signer, ledger.MethodIssueCredential, tt.args...)
			assert.Equal(t, tt.wantCode, ledger.CodeOf(err))
		})
	}

	// pending is not enough
	f.mustInvoke(university, ledger.MethodRequestAuthorization, "Acme University")
	_, err := f.invoke(university, ledger.MethodIssueCredential, student, hash1, "cid")
	assert.Equal(t, ledger.ErrCodeForbidden, ledger.CodeOf(err))

	f.mustInvoke(gov, ledger.MethodApproveRequest, "Acme University")

	_, err = f.invoke(university, ledger.MethodIssueCredential, other, hash1, "cid")
	assert.Equal(t, ledger.ErrCodeNotFound, ledger.CodeOf(err), "unregistered holder")

	_, err = f.invoke(university, ledger.MethodIssueCredential, gov, hash1, "cid")
	assert.Equal(t, ledger.ErrCodeInvalid, ledger.CodeOf(err), "holder is not a student")

	f.mustInvoke(university, ledger.MethodIssueCredential, student, hash1, "cid")
}

func TestFailedInvokeLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	f.approvedUniversity()

	before := len(f.state)
	_, err := f.invoke(university, ledger.MethodIssueCredential, other, hash1, "cid")
	require.Error(t, err)
	assert.Equal(t, before, len(f.state))
}

func TestDispatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.query("deleteEverything")
	assert.Equal(t, ledger.ErrCodeInvalid, ledger.CodeOf(err))

	_, err = f.query(ledger.MethodGetRequest)
	assert.Equal(t, ledger.ErrCodeInvalid, ledger.CodeOf(err), "missing argument")

	_, err = f.invoke(gov, ledger.MethodGetAllRequests)
	assert.Equal(t, ledger.ErrCodeInvalid, ledger.CodeOf(err), "query methods cannot be invoked")

	assert.True(t, f.registry.IsQuery(ledger.MethodVerifyCredential))
	assert.True(t, f.registry.IsInvoke(ledger.MethodIssueCredential))
	assert.False(t, f.registry.IsInvoke(ledger.MethodVerifyCredential))

	out, err := f.query(ledger.MethodGetAllRequests)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(out))
}

func TestInitGenesis(t *testing.T) {
	state := mapState{}
	now := time.Now()

	require.NoError(t, InitGenesis(state, []string{gov}, now))
	require.NoError(t, InitGenesis(state, []string{gov}, now), "genesis is idempotent")

	registry := New()
	_, err := registry.Invoke(state, TxContext{Signer: student, Timestamp: now}, ledger.MethodRegisterIdentity, []string{"Student", "alice"})
	require.NoError(t, err)

	err = InitGenesis(state, []string{student}, now)
	assert.Equal(t, ledger.ErrCodeConflict, ledger.CodeOf(err))

	err = InitGenesis(state, []string{"nope"}, now)
	assert.Equal(t, ledger.ErrCodeInvalid, ledger.CodeOf(err))
}
