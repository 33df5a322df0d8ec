// Package block defines the minimal block shape the mempool's reconciler
// reacts to: a height, a timestamp, and the transactions it carries.
package block

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/stratachain/strata/pkg/core/transaction"
	"github.com/stratachain/strata/pkg/crypto/hash"
)

// Header carries a block's fields apart from its transaction list; the
// chain's Extend and Rebranch read the new head's height/timestamp from it.
type Header struct {
	PrevHash   common.Hash
	Index      uint64
	Timestamp  uint64
	MerkleRoot common.Hash
}

// Block is one block in the chain: a header plus the transactions it
// contains.
type Block struct {
	Header
	Transactions []*transaction.Transaction
}

// New creates a blank block at the given height/timestamp atop prev.
func New(prev common.Hash, index, timestamp uint64) *Block {
	return &Block{Header: Header{PrevHash: prev, Index: index, Timestamp: timestamp}}
}

// ComputeMerkleRoot computes the Merkle root over the block's transaction
// hashes.
func (b *Block) ComputeMerkleRoot() common.Hash {
	hashes := make([]common.Hash, len(b.Transactions))
	for i, tx := range b.Transactions {
		hashes[i] = tx.Hash()
	}
	return hash.CalcMerkleRoot(hashes)
}

// RebuildMerkleRoot recomputes and stores the block's Merkle root.
func (b *Block) RebuildMerkleRoot() {
	b.MerkleRoot = b.ComputeMerkleRoot()
}

// Hash identifies the block by hashing its header.
func (b *Block) Hash() common.Hash {
	buf := make([]byte, 0, common.HashLength+8+8+common.HashLength)
	buf = append(buf, b.PrevHash[:]...)
	buf = append(buf, uint64ToBytes(b.Index)...)
	buf = append(buf, uint64ToBytes(b.Timestamp)...)
	buf = append(buf, b.MerkleRoot[:]...)
	return hash.Keccak256(buf)
}

func uint64ToBytes(v uint64) []byte {
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(v >> (8 * (7 - i)))
	}
	return out
}

// ContainsTx reports whether tx's fingerprint appears in this block.
func (b *Block) ContainsTx(hash common.Hash) bool {
	for _, tx := range b.Transactions {
		if tx.Hash() == hash {
			return true
		}
	}
	return false
}
