package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"
)

func TestIsValidAuthorityKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"real public key", base64.StdEncoding.EncodeToString(pub), true},
		{"empty", "", false},
		{"not base64", "###not-base64###", false},
		{"wrong length", base64.StdEncoding.EncodeToString(make([]byte, 16)), false},
		{"all 0xff not on curve", base64.StdEncoding.EncodeToString(allFF()), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidAuthorityKey(tt.input); got != tt.want {
				t.Errorf("IsValidAuthorityKey(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func allFF() []byte {
	b := make([]byte, 32)
	for i := range b {
		b[i] = 0xff
	}
	return b
}
