package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAndParseError(t *testing.T) {
	original := NewConflictError("request for Acme University is already Pending")

	formatted := FormatError(original)
	assert.Equal(t, "conflict: request for Acme University is already Pending", formatted)

	// the fabric sdk embeds the chaincode message in its own status description
	remote := fmt.Errorf("Transaction processing for endorser [peer0.org1.example.com:7051]: Chaincode status Code: (500) UNKNOWN. Description: %s", formatted)

	parsed := ParseError(remote)
	var ledgerErr *LedgerError
	require.True(t, errors.As(parsed, &ledgerErr))
	assert.Equal(t, ErrCodeConflict, ledgerErr.Code())
	assert.Equal(t, "request for Acme University is already Pending", ledgerErr.Message())
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
	}{
		{"ledger error is kept", NewForbiddenError("only Gov may approve"), ErrCodeForbidden},
		{"not found", errors.New("Description: not_found: no request for Acme"), ErrCodeNotFound},
		{"invalid", errors.New("invalid: unknown method foo"), ErrCodeInvalid},
		{"deadline", fmt.Errorf("query failed: %w", context.DeadlineExceeded), ErrCodeUpstream},
		{"cancelled", context.Canceled, ErrCodeUpstream},
		{"connection refused", errors.New("dial tcp 127.0.0.1:7051: connect: connection refused"), ErrCodeUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, CodeOf(ParseError(tt.err)))
		})
	}

	assert.NoError(t, ParseError(nil))
}

func TestFormatErrorPlainError(t *testing.T) {
	assert.Equal(t, "invalid: boom", FormatError(errors.New("boom")))
}
