package blockchain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/spaolacci/murmur3"
)

// txBloom is a compact Bloom filter over mined-transaction fingerprints,
// consulted by ContainsTxInValidityWindow before the authoritative index
// lookup: a negative from the filter proves absence without touching the
// map at all, which matters since that check runs on every admission and
// every reconciliation walk. It never needs to support deletion: when
// Rebranch removes fingerprints from the authoritative index, the stale
// one-bits they leave in the filter only cost an extra map lookup, never
// a wrong answer.
type txBloom struct {
	bits []uint64
	k    uint
}

const bloomSeed1 = 0x5bd1e995
const bloomSeed2 = 0x9e3779b9

func newTxBloom(bits uint, k uint) *txBloom {
	if bits == 0 {
		bits = 1 << 20
	}
	if k == 0 {
		k = 3
	}
	return &txBloom{bits: make([]uint64, (bits+63)/64), k: k}
}

// indices derives k bit positions from hash via double hashing: h1 + i*h2,
// the standard Kirsch-Mitzenmacher construction that needs only two
// underlying hashes to simulate k independent ones.
func (b *txBloom) indices(hash common.Hash) []uint64 {
	h1 := murmur3.Sum64WithSeed(hash[:], bloomSeed1)
	h2 := murmur3.Sum64WithSeed(hash[:], bloomSeed2)
	n := uint64(len(b.bits) * 64)
	out := make([]uint64, b.k)
	for i := uint(0); i < b.k; i++ {
		out[i] = (h1 + uint64(i)*h2) % n
	}
	return out
}

func (b *txBloom) add(hash common.Hash) {
	for _, idx := range b.indices(hash) {
		b.bits[idx/64] |= 1 << (idx % 64)
	}
}

// mightContain reports whether hash could have been added. False means
// definitely not added; true means maybe.
func (b *txBloom) mightContain(hash common.Hash) bool {
	for _, idx := range b.indices(hash) {
		if b.bits[idx/64]&(1<<(idx%64)) == 0 {
			return false
		}
	}
	return true
}
