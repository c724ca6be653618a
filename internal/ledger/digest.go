package ledger

import (
	"errors"

	"github.com/mr-tron/base58"
)

// ErrInvalidDigest is returned for malformed transaction digests.
var ErrInvalidDigest = errors.New("invalid transaction digest")

// digestLen is the decoded byte length of a transaction digest.
const digestLen = 32

// IsValidDigest reports whether s is a well-formed base58 transaction
// digest. Creation events carry digests that feed directly into
// tx-block fetches, so they are validated before leaving the process.
func IsValidDigest(s string) bool {
	if s == "" {
		return false
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(raw) == digestLen
}
