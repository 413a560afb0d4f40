// internal/auth/auth_test.go
package auth

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "test_secret_key_for_auth_unit_tests_1234567890"

func TestHashAndCheckPassword(t *testing.T) {
	password := "CorrectHorseBatteryStaple1!"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == password {
		t.Fatal("hash must not equal the plaintext password")
	}

	if !CheckPasswordHash(password, hash) {
		t.Error("CheckPasswordHash should accept the original password")
	}
	if CheckPasswordHash("wrong password", hash) {
		t.Error("CheckPasswordHash should reject a wrong password")
	}
	if CheckPasswordHash(password, "not-a-bcrypt-hash") {
		t.Error("CheckPasswordHash should reject a malformed hash")
	}
}

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT("alice", false, testSecret, time.Minute*5)
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	claims, err := ValidateJWT(token, testSecret)
	if err != nil {
		t.Fatalf("ValidateJWT failed for a fresh token: %v", err)
	}
	if claims.Username != "alice" {
		t.Errorf("claims.Username = %q; want %q", claims.Username, "alice")
	}
	if claims.IsAdmin {
		t.Error("claims.IsAdmin = true; want false")
	}
	if claims.Issuer != "pharmap-backend" {
		t.Errorf("claims.Issuer = %q; want pharmap-backend", claims.Issuer)
	}
}

func TestValidateJWTAdminClaim(t *testing.T) {
	token, err := GenerateJWT("admin", true, testSecret, time.Minute*5)
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}
	claims, err := ValidateJWT(token, testSecret)
	if err != nil {
		t.Fatalf("ValidateJWT failed: %v", err)
	}
	if !claims.IsAdmin {
		t.Error("claims.IsAdmin = false; want true")
	}
}

func TestValidateJWTFailures(t *testing.T) {
	t.Run("wrong secret", func(t *testing.T) {
		token, _ := GenerateJWT("alice", false, testSecret, time.Minute)
		_, err := ValidateJWT(token, "a_completely_different_secret")
		if !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("expected ErrTokenInvalid, got %v", err)
		}
	})

	t.Run("malformed token", func(t *testing.T) {
		_, err := ValidateJWT("this.is.nonsense", testSecret)
		if !errors.Is(err, ErrTokenMalformed) {
			t.Errorf("expected ErrTokenMalformed, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		token, _ := GenerateJWT("alice", false, testSecret, -time.Minute)
		_, err := ValidateJWT(token, testSecret)
		if !errors.Is(err, ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := ValidateJWT("", testSecret)
		if err == nil {
			t.Error("expected an error for an empty token")
		}
	})
}
