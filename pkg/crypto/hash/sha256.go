package hash

import (
	"crypto/sha256"
	"hash"
)

// newSha256 is the one spot in the hash package backed by the standard
// library: SHA-256 is a fixed, non-pluggable primitive and none of this
// package's other dependencies (sha3, btcec, etc.) provide it, so there's
// nothing to adapt from the ecosystem.
func newSha256() hash.Hash {
	return sha256.New()
}
