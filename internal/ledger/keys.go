package ledger

import (
	"encoding/base64"

	"filippo.io/edwards25519"
)

// ed25519KeyLen is the byte length of an ed25519 public key.
const ed25519KeyLen = 32

// IsValidAuthorityKey reports whether the base64-encoded key from a
// custody-wallet-created event is a valid ed25519 public key. A key
// that does not decode to a point on the curve cannot sign for the
// escrow, so the wallet reference carrying it is not trusted.
func IsValidAuthorityKey(b64 string) bool {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return false
	}
	return isOnCurve(raw)
}

// isOnCurve checks if a 32-byte value is a valid ed25519 curve point.
func isOnCurve(key []byte) bool {
	if len(key) != ed25519KeyLen {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(key)
	return err == nil
}
