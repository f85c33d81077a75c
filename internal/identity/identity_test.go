package identity

import (
	"strings"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"Student", RoleStudent, false},
		{"university", RoleUniversity, false},
		{"GOV", RoleGov, false},
		{"Government", RoleGov, false},
		{"admin", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseRole(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewAccount(t *testing.T) {
	account, err := NewAccount()
	if err != nil {
		t.Fatalf("NewAccount() error: %v", err)
	}
	if !IsAddress(account.Address) {
		t.Errorf("address %q is not a valid address", account.Address)
	}
	if len(account.PrivateKey) != 66 || !strings.HasPrefix(account.PrivateKey, "0x") {
		t.Errorf("private key %q should be 0x followed by 64 hex characters", account.PrivateKey)
	}

	restored, err := AccountFromPrivateKey(account.PrivateKey)
	if err != nil {
		t.Fatalf("AccountFromPrivateKey() error: %v", err)
	}
	if restored.Address != account.Address {
		t.Errorf("restored address %q, want %q", restored.Address, account.Address)
	}

	other, err := NewAccount()
	if err != nil {
		t.Fatalf("NewAccount() error: %v", err)
	}
	if other.Address == account.Address {
		t.Error("two generated accounts share an address")
	}
}

func TestAccountFromKnownPrivateKey(t *testing.T) {
	// well known hardhat/anvil development account #0
	account, err := AccountFromPrivateKey("0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	if err != nil {
		t.Fatalf("AccountFromPrivateKey() error: %v", err)
	}
	want := "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	if account.Address != want {
		t.Errorf("address = %q, want %q", account.Address, want)
	}
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"lower case", "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", false},
		{"upper case", "0xF39FD6E51AAD88F6F4CE6AB8827279CFFFB92266", "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", false},
		{"surrounding space", " 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266 ", "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", false},
		{"missing prefix", "f39fd6e51aad88f6f4ce6ab8827279cfffb92266", "", true},
		{"too short", "0xf39fd6e5", "", true},
		{"not hex", "0xz39fd6e51aad88f6f4ce6ab8827279cfffb92266", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeAddress(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}
