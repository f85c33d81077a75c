package crypto

import "testing"

func TestCanonicalizeJSON(t *testing.T) {
	// invalid json
	_, err := CanonicalizeJSON([]byte(`{"test": "value"`))
	if err == nil {
		t.Fatalf("CanonicalizeJSON() expected error, got nil")
	}

	got, err := CanonicalizeJSON([]byte(`{ "b": 1, "a": ["x", 2.50] }`))
	if err != nil {
		t.Fatalf("CanonicalizeJSON() error: %v", err)
	}
	if want := `{"a":["x",2.5],"b":1}`; string(got) != want {
		t.Errorf("CanonicalizeJSON() = %s, want %s", got, want)
	}
}
