package auth

import "testing"

func TestHashAndVerifyPasswordRoundTrips(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword("correct-horse", hash) {
		t.Fatal("expected matching password to verify")
	}
	if VerifyPassword("wrong-password", hash) {
		t.Fatal("expected mismatched password to fail verification")
	}
}

func TestHashPasswordRejectsBadLength(t *testing.T) {
	if _, err := HashPassword("short"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	long := make([]byte, MaxPasswordLength+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := HashPassword(string(long)); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}
