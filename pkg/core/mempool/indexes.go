package mempool

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stratachain/strata/pkg/core/transaction"
)

// feeSet is an ordered set of transactions under the total fee ordering
// (ascending fee-per-byte, ties broken by hash). It backs by_sender,
// by_recipient and sorted_fee alike: one sorted-slice shape generalized to
// every bucket the pool needs.
//
// Insertion and removal are O(n) via a shifted slice rather than a
// balanced tree; sender/recipient buckets are capped at
// TransactionsPerSenderMax, so the shift cost stays small in practice.
type feeSet struct {
	txs []*transaction.Transaction
}

func (s *feeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.txs)
}

// add inserts t keeping s.txs sorted ascending by transaction.Compare.
func (s *feeSet) add(t *transaction.Transaction) {
	n := sort.Search(len(s.txs), func(i int) bool {
		return transaction.Compare(s.txs[i], t) >= 0
	})
	s.txs = append(s.txs, nil)
	copy(s.txs[n+1:], s.txs[n:])
	s.txs[n] = t
}

// remove deletes the transaction with the given hash, reporting whether
// it was present.
func (s *feeSet) remove(hash common.Hash) bool {
	for i, t := range s.txs {
		if t.Hash() == hash {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			return true
		}
	}
	return false
}

// descend calls f for every transaction from highest fee-per-byte to
// lowest, stopping early if f returns false. Every per-sender walk the
// admission engine and reconciler perform relies on this direction: a
// higher-fee predecessor must be simulated before the successors that
// depend on its effect on the account.
func (s *feeSet) descend(f func(*transaction.Transaction) bool) {
	for i := len(s.txs) - 1; i >= 0; i-- {
		if !f(s.txs[i]) {
			return
		}
	}
}

// lowest returns the set's lowest-fee transaction, or nil if empty.
func (s *feeSet) lowest() *transaction.Transaction {
	if len(s.txs) == 0 {
		return nil
	}
	return s.txs[0]
}

// highest returns the set's highest-fee transaction, or nil if empty.
func (s *feeSet) highest() *transaction.Transaction {
	if len(s.txs) == 0 {
		return nil
	}
	return s.txs[len(s.txs)-1]
}

// indexes bundles the pool's four co-indexed views over one set of
// transaction handles, shared by fingerprint, sender, recipient and global
// fee order. add and remove are the only mutators and are atomic with
// respect to whatever lock the caller holds; neither touches the filter.
type indexes struct {
	byHash      map[common.Hash]*transaction.Transaction
	bySender    map[common.Address]*feeSet
	byRecipient map[common.Address]*feeSet
	sortedFee   feeSet
}

func newIndexes() *indexes {
	return &indexes{
		byHash:      make(map[common.Hash]*transaction.Transaction),
		bySender:    make(map[common.Address]*feeSet),
		byRecipient: make(map[common.Address]*feeSet),
	}
}

func (idx *indexes) add(t *transaction.Transaction) {
	h := t.Hash()
	idx.byHash[h] = t
	idx.sortedFee.add(t)

	sender := idx.bySender[t.Sender()]
	if sender == nil {
		sender = &feeSet{}
		idx.bySender[t.Sender()] = sender
	}
	sender.add(t)

	recipient := idx.byRecipient[t.Recipient()]
	if recipient == nil {
		recipient = &feeSet{}
		idx.byRecipient[t.Recipient()] = recipient
	}
	recipient.add(t)
}

func (idx *indexes) remove(t *transaction.Transaction) {
	h := t.Hash()
	delete(idx.byHash, h)
	idx.sortedFee.remove(h)

	if s := idx.bySender[t.Sender()]; s != nil {
		s.remove(h)
		if s.Len() == 0 {
			delete(idx.bySender, t.Sender())
		}
	}
	if s := idx.byRecipient[t.Recipient()]; s != nil {
		s.remove(h)
		if s.Len() == 0 {
			delete(idx.byRecipient, t.Recipient())
		}
	}
}

func (idx *indexes) count() int { return len(idx.byHash) }

// senderCount returns the number of transactions currently pooled from
// addr, without allocating a bucket that doesn't exist.
func (idx *indexes) senderCount(addr common.Address) int {
	return idx.bySender[addr].Len()
}
