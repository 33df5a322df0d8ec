// Package crypto holds the cross-cutting cryptographic contracts shared by
// the transaction and block layers.
package crypto

import "github.com/stratachain/strata/pkg/crypto/hash"

// Verifiable represents a signed, content-addressed object that can check
// its own signature given only the network identifier it claims to be
// signed for. The mempool's intrinsic-verification step operates on this
// contract.
type Verifiable interface {
	hash.Hashable
	VerifyMut(networkID uint64) error
}
