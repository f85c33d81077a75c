package crypto

import (
	"errors"
	"testing"
)

// check to ensure error code handling has not been broken
func TestCryptoError_Code(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
	}{
		{"envelope", NewEnvelopeError("test"), ErrCodeEnvelope},
		{"token_expired", NewTokenExpiredError("test"), ErrCodeTokenExpired},
		{"token_invalid", NewTokenInvalidError("test"), ErrCodeTokenInvalid},
		{"validation", NewValidationError("test"), ErrCodeValidation},
		{"key_management", NewKeyManagementError("test"), ErrCodeKeyManagement},
		{"internal", NewInternalError("test"), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cryptoErr *CryptoError
			if !errors.As(tt.err, &cryptoErr) {
				t.Fatal("error is not a CryptoError")
			}
			if cryptoErr.Code() != tt.wantCode {
				t.Errorf("Code() = %q, want %q", cryptoErr.Code(), tt.wantCode)
			}
		})
	}
}

func TestCryptoError_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	err := WrapEnvelopeError(cause, "could not decrypt")

	if !errors.Is(err, cause) {
		t.Error("wrapped error should match the cause with errors.Is")
	}
	if err.Error() != "could not decrypt: cause" {
		t.Errorf("Error() = %q", err.Error())
	}
}
