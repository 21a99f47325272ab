package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func legacy(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func TestHashRoundTrip(t *testing.T) {
	for _, secret := range []string{"pw123", "비밀번호", strings.Repeat("x", MaxSecretLength)} {
		h, err := Hash(secret)
		if err != nil {
			t.Fatalf("Hash(%q) error = %v", secret, err)
		}
		if !strings.HasPrefix(h, "$2a$12$") {
			t.Errorf("Hash(%q) = %q, want a cost 12 bcrypt hash", secret, h)
		}
		if !Verify(secret, h) {
			t.Errorf("Verify(%q, Hash(%q)) = false", secret, secret)
		}
		if Verify(secret+"!", h) {
			t.Errorf("Verify accepted a different secret for %q", secret)
		}
	}
}

func TestHashTooLong(t *testing.T) {
	if _, err := Hash(strings.Repeat("x", MaxSecretLength+1)); err != ErrSecretTooLong {
		t.Errorf("Hash() error = %v, want ErrSecretTooLong", err)
	}
}

func TestVerify(t *testing.T) {
	maxLengthHash, err := Hash(strings.Repeat("x", MaxSecretLength))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name       string
		secret     string
		credential string
		want       bool
	}{
		{"legacy digest matches", "pw123", legacy("pw123"), true},
		{"legacy digest rejects other secret", "pw124", legacy("pw123"), false},
		{"uppercase digest is not legacy", "pw123", strings.ToUpper(legacy("pw123")), false},
		{"short hex is not legacy", "pw123", legacy("pw123")[:63], false},
		{"empty secret", "", legacy(""), false},
		{"empty credential", "pw123", "", false},
		{"garbage credential", "pw123", "not-a-hash", false},
		{"truncated bcrypt", "pw123", "$2a$12$abc", false},
		{"secret past the bcrypt limit", strings.Repeat("x", MaxSecretLength) + "suffix", maxLengthHash, false},
		{"long legacy secret", strings.Repeat("y", 100), legacy(strings.Repeat("y", 100)), true},
		{"secret at the bcrypt limit", strings.Repeat("x", MaxSecretLength), maxLengthHash, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Verify(tt.secret, tt.credential); got != tt.want {
				t.Errorf("Verify(%q, %q) = %v, want %v", tt.secret, tt.credential, got, tt.want)
			}
		})
	}
}

func TestIsLegacy(t *testing.T) {
	if !IsLegacy(legacy("anything")) {
		t.Errorf("IsLegacy() rejected a sha256 hex digest")
	}
	h, _ := Hash("anything")
	if IsLegacy(h) {
		t.Errorf("IsLegacy() accepted a bcrypt hash")
	}
}
