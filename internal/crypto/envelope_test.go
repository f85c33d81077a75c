package crypto

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func newTestCodec(t *testing.T, current string, previous ...string) *EnvelopeCodec {
	t.Helper()
	keys, err := NewKeyring(PurposeEnvelope, current, previous)
	if err != nil {
		t.Fatalf("NewKeyring() error: %v", err)
	}
	codec, err := NewEnvelopeCodec(keys)
	if err != nil {
		t.Fatalf("NewEnvelopeCodec() error: %v", err)
	}
	return codec
}

func TestEnvelopeRoundTrip(t *testing.T) {
	codec := newTestCodec(t, "envelope-secret-one")

	payloads := []any{
		map[string]any{"identity": "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"},
		map[string]any{"role": "University", "name": "Acme University", "nested": map[string]any{"n": 1.5}},
		[]string{"a", "b"},
		"plain string",
		map[string]any{},
	}

	for _, payload := range payloads {
		envelope, err := codec.Encrypt(payload)
		if err != nil {
			t.Fatalf("Encrypt() error: %v", err)
		}
		if envelope.Content == "" {
			t.Fatal("Encrypt() returned empty content")
		}
		// compact JWE has five parts, the encrypted key is empty for alg=dir
		if parts := strings.Split(envelope.Content, "."); len(parts) != 5 || parts[1] != "" {
			t.Fatalf("content is not a compact dir JWE: %s", envelope.Content)
		}

		decrypted, err := codec.Decrypt(envelope)
		if err != nil {
			t.Fatalf("Decrypt() error: %v", err)
		}

		want, _ := json.Marshal(payload)
		if string(decrypted) != string(want) {
			t.Errorf("round trip = %s, want %s", decrypted, want)
		}
	}
}

func TestEnvelopeEncryptionIsRandomised(t *testing.T) {
	codec := newTestCodec(t, "envelope-secret-one")

	a, err := codec.Encrypt(map[string]string{"k": "v"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := codec.Encrypt(map[string]string{"k": "v"})
	if err != nil {
		t.Fatal(err)
	}
	if a.Content == b.Content {
		t.Error("two encryptions of the same payload produced identical ciphertext")
	}
}

func TestEnvelopeDecryptFailures(t *testing.T) {
	codec := newTestCodec(t, "envelope-secret-one")
	other := newTestCodec(t, "envelope-secret-two")

	valid, err := codec.Encrypt(map[string]string{"credentialHash": "abc"})
	if err != nil {
		t.Fatal(err)
	}

	parts := strings.Split(valid.Content, ".")
	tamperedCiphertext := []byte(parts[3])
	if tamperedCiphertext[0] == 'A' {
		tamperedCiphertext[0] = 'B'
	} else {
		tamperedCiphertext[0] = 'A'
	}
	parts[3] = string(tamperedCiphertext)
	tampered := strings.Join(parts, ".")

	tests := []struct {
		name     string
		codec    *EnvelopeCodec
		envelope Envelope
	}{
		{"empty content", codec, Envelope{}},
		{"not a JWE", codec, Envelope{Content: "hello"}},
		{"tampered ciphertext", codec, Envelope{Content: tampered}},
		{"truncated", codec, Envelope{Content: valid.Content[:len(valid.Content)-4]}},
		{"wrong key", other, valid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.codec.Decrypt(tt.envelope)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var cryptoErr *CryptoError
			if !errors.As(err, &cryptoErr) || cryptoErr.Code() != ErrCodeEnvelope {
				t.Errorf("expected envelope error, got %v", err)
			}
		})
	}
}

func TestEnvelopeKeyRotation(t *testing.T) {
	old := newTestCodec(t, "envelope-secret-old")
	rotated := newTestCodec(t, "envelope-secret-new", "envelope-secret-old")

	envelope, err := old.Encrypt(map[string]string{"k": "v"})
	if err != nil {
		t.Fatal(err)
	}

	// envelopes created with the previous secret are still accepted
	if _, err := rotated.Decrypt(envelope); err != nil {
		t.Fatalf("rotated codec could not decrypt envelope from previous secret: %v", err)
	}

	// new envelopes use the new secret only
	fresh, err := rotated.Encrypt(map[string]string{"k": "v"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := old.Decrypt(fresh); err == nil {
		t.Error("codec with only the old secret decrypted an envelope made with the new secret")
	}
}

func TestNewEnvelopeCodecRejectsSessionKeyring(t *testing.T) {
	keys, err := NewKeyring(PurposeSession, "session-secret-one", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewEnvelopeCodec(keys); err == nil {
		t.Error("expected error for a session keyring")
	}
}

func TestParseEnvelope(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		wantOK bool
	}{
		{"envelope", `{"content":"abc"}`, true},
		{"envelope with whitespace", " \n{ \"content\" : \"abc\" }\n", true},
		{"plain json", `{"identity":"0xabc"}`, false},
		{"extra fields", `{"content":"abc","identity":"0xabc"}`, false},
		{"content not a string", `{"content":{"a":1}}`, false},
		{"array", `["content"]`, false},
		{"empty", ``, false},
		{"not json", `content=abc`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envelope, ok := ParseEnvelope([]byte(tt.body))
			if ok != tt.wantOK {
				t.Fatalf("ParseEnvelope() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && envelope.Content != "abc" {
				t.Errorf("content = %q, want abc", envelope.Content)
			}
		})
	}
}
