package security

import (
	"strings"
	"testing"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	encoded, err := HashPassword("Sup3r!Secret")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if parts := strings.Split(encoded, ":"); len(parts) != 2 {
		t.Fatalf("expected salt:hash encoding, got %q", encoded)
	}

	ok, err := VerifyPassword("Sup3r!Secret", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected matching password to verify")
	}

	ok, err = VerifyPassword("Sup3r!Wrong", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if ok {
		t.Fatal("expected mismatching password to fail verification")
	}
}

func TestHashPassword_SaltsAreUnique(t *testing.T) {
	first, err := HashPassword("Sup3r!Secret")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	second, err := HashPassword("Sup3r!Secret")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct salts to produce distinct encodings")
	}
}

func TestVerifyPassword_InvalidFormat(t *testing.T) {
	if _, err := VerifyPassword("anything", "not-a-valid-hash"); err == nil {
		t.Fatal("expected malformed encoding to error")
	}
}

func TestVerifyPassword_EmptyInputs(t *testing.T) {
	ok, err := VerifyPassword("", "salt:hash")
	if err != nil || ok {
		t.Fatalf("expected empty password to fail silently, got ok=%v err=%v", ok, err)
	}

	ok, err = VerifyPassword("password", "")
	if err != nil || ok {
		t.Fatalf("expected empty encoding to fail silently, got ok=%v err=%v", ok, err)
	}
}
