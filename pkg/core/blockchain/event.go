// Package blockchain models the external collaborator the mempool
// reconciles against: a read-only head/account query surface, a scoped
// write-transaction overlay borrowed from the accounts trie, and an event
// stream of Extended/Finalized/EpochFinalized/Rebranched notifications.
// Everything else a real node needs (consensus, networking, block
// production) lives outside this package.
package blockchain

import "github.com/stratachain/strata/pkg/core/block"

// EventKind enumerates the chain events the mempool's reconciler reacts
// to.
type EventKind byte

const (
	// Extended fires when a new block is appended to the current chain.
	Extended EventKind = iota
	// Finalized fires when a block becomes irreversible.
	Finalized
	// EpochFinalized fires on an epoch boundary finalization.
	EpochFinalized
	// Rebranched fires when the chain adopts a competing branch, carrying
	// the blocks that were reverted and the ones that replaced them.
	Rebranched
)

func (k EventKind) String() string {
	switch k {
	case Extended:
		return "Extended"
	case Finalized:
		return "Finalized"
	case EpochFinalized:
		return "EpochFinalized"
	case Rebranched:
		return "Rebranched"
	default:
		return "Unknown"
	}
}

// Event is one notification in the blockchain's event stream.
type Event struct {
	Kind EventKind
	// Block is the newly appended/finalized block for Extended, Finalized
	// and EpochFinalized. It's nil for Rebranched.
	Block *block.Block
	// Reverted and Adopted are populated only for Rebranched: the blocks
	// that left the canonical chain and the ones that replaced them.
	Reverted []*block.Block
	Adopted  []*block.Block
}
