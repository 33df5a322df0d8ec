// Package hash collects the hash primitives used across the node: Keccak-256
// for transaction fingerprints and Merkle roots, and a streaming SHA-256
// wrapper for callers that only need a plain content hash.
package hash

import (
	"encoding/hex"
	"hash"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Hashable is implemented by values that can be identified by a single hash.
type Hashable interface {
	Hash() common.Hash
}

// Keccak256 computes the 32-byte Keccak-256 digest of b.
func Keccak256(b []byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	var out common.Hash
	h.Sum(out[:0])
	return out
}

// Hash160 computes Keccak-256 and returns the low 20 bytes as an address.
func Hash160(b []byte) common.Address {
	full := Keccak256(b)
	var addr common.Address
	copy(addr[:], full[common.HashLength-common.AddressLength:])
	return addr
}

// CalcMerkleRoot computes a binary Merkle tree root over hashes, duplicating
// the last element on odd-sized levels.
func CalcMerkleRoot(hashes []common.Hash) common.Hash {
	if len(hashes) == 0 {
		return common.Hash{}
	}
	level := make([]common.Hash, len(hashes))
	copy(level, hashes)
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]common.Hash, len(level)/2)
		for i := range next {
			buf := make([]byte, 0, common.HashLength*2)
			buf = append(buf, level[2*i][:]...)
			buf = append(buf, level[2*i+1][:]...)
			next[i] = Keccak256(buf)
		}
		level = next
	}
	return level[0]
}

// Sha256Hash is a 32-byte SHA-256 digest, printable as lowercase hex.
type Sha256Hash [32]byte

// String renders the digest as lowercase hex.
func (h Sha256Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Sha256HashFromHex parses a hex-encoded SHA-256 digest.
func Sha256HashFromHex(s string) (Sha256Hash, error) {
	var h Sha256Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	copy(h[:], b)
	return h, nil
}

// Sha256Hasher is a streaming SHA-256 hasher: Write repeatedly, then Finish
// once. Sha256Digest is the one-shot equivalent.
type Sha256Hasher struct {
	h hash.Hash
}

// NewSha256Hasher returns a ready-to-use streaming hasher.
func NewSha256Hasher() *Sha256Hasher {
	return &Sha256Hasher{h: newSha256()}
}

// Write implements io.Writer; it never returns an error.
func (s *Sha256Hasher) Write(p []byte) (int, error) {
	return s.h.Write(p)
}

// Finish returns the digest of everything written so far.
func (s *Sha256Hasher) Finish() Sha256Hash {
	var out Sha256Hash
	s.h.Sum(out[:0])
	return out
}

// Sha256Digest is the one-shot equivalent of Write+Finish.
func Sha256Digest(b []byte) Sha256Hash {
	s := NewSha256Hasher()
	_, _ = s.Write(b)
	return s.Finish()
}
