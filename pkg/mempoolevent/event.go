// Package mempoolevent defines the event stream the mempool publishes to
// its subscribers as transactions are added, evicted, mined or restored.
package mempoolevent

import "github.com/stratachain/strata/pkg/core/transaction"

// Type enumerates the four mempool event kinds.
type Type byte

const (
	// Added fires when push_transaction admits a new transaction.
	Added Type = iota
	// Evicted fires when a transaction leaves the pool for any reason
	// other than being mined: invalidated by a new head, displaced by a
	// higher-fee transaction, or dropped to enforce a capacity cap.
	Evicted
	// Mined fires when the reconciler observes a pooled transaction's
	// fingerprint inside a newly-extended or finalized block.
	Mined
	// Restored fires when a rebranch re-admits a transaction from a
	// reverted block.
	Restored
)

func (t Type) String() string {
	switch t {
	case Added:
		return "Added"
	case Evicted:
		return "Evicted"
	case Mined:
		return "Mined"
	case Restored:
		return "Restored"
	default:
		return "Unknown"
	}
}

// Event is one notification in the mempool's event stream. Data is an
// optional payload slot; the mempool leaves it nil on every event it emits.
type Event struct {
	Type Type
	Tx   *transaction.Transaction
	Data interface{}
}
