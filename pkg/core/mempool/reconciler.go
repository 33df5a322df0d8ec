package mempool

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stratachain/strata/pkg/core/block"
	"github.com/stratachain/strata/pkg/core/blockchain"
	"github.com/stratachain/strata/pkg/core/state"
	"github.com/stratachain/strata/pkg/core/transaction"
	"github.com/stratachain/strata/pkg/mempoolevent"
	"go.uber.org/zap"
)

// reconcileLoop reacts to the blockchain's own event stream for as long as
// the pool exists. Extended, Finalized and EpochFinalized all trigger
// evictTransactions; Rebranched triggers restoreTransactions over the
// reverted blocks, then evictTransactions.
func (p *Pool) reconcileLoop() {
	for ev := range p.chainEvents {
		switch ev.Kind {
		case blockchain.Extended, blockchain.Finalized, blockchain.EpochFinalized:
			p.evictTransactions()
		case blockchain.Rebranched:
			p.restoreTransactions(ev.Reverted)
			p.evictTransactions()
		}
	}
}

// evictTransactions runs under the mutation lock: it walks every sender's
// bucket from highest fee to lowest, simulating each transaction against
// the new head. The direction matters: a failing higher-fee predecessor
// leaves the simulation overlay in the post-predecessor state its
// successors need, whether or not the predecessor itself survives.
func (p *Pool) evictTransactions() {
	mined, evicted := p.evictTransactionsLocked()

	evs := make([]mempoolevent.Event, 0, len(mined)+len(evicted))
	for _, t := range mined {
		evs = append(evs, mempoolevent.Event{Type: mempoolevent.Mined, Tx: t})
	}
	for _, t := range evicted {
		evs = append(evs, mempoolevent.Event{Type: mempoolevent.Evicted, Tx: t})
	}
	updateReconciliationMetrics(len(mined), len(evicted), 0)
	updatePoolSizeMetric(p.Count())
	p.emit(evs...)

	if p.log != nil && (len(mined) > 0 || len(evicted) > 0) {
		p.log.Debug("reconciled pool against new head", zap.Int("mined", len(mined)), zap.Int("evicted", len(evicted)))
	}
}

func (p *Pool) evictTransactionsLocked() (mined, evicted []*transaction.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()

	head, ts := p.bc.HeadSnapshot()
	h := head + 1

	wtx := p.bc.OpenWriteTransaction()
	defer wtx.Discard()

	p.stateMu.RLock()
	senders := make([]common.Address, 0, len(p.idx.bySender))
	for addr := range p.idx.bySender {
		senders = append(senders, addr)
	}
	buckets := make(map[common.Address][]*transaction.Transaction, len(senders))
	for _, addr := range senders {
		bucket := p.idx.bySender[addr]
		txs := make([]*transaction.Transaction, len(bucket.txs))
		copy(txs, bucket.txs)
		buckets[addr] = txs
	}
	p.stateMu.RUnlock()

	for _, addr := range senders {
		txs := buckets[addr]
		for i := len(txs) - 1; i >= 0; i-- {
			t := txs[i]
			switch {
			case !t.IsValidAt(h):
				evicted = append(evicted, t)
			case p.bc.ContainsTxInValidityWindow(t.Hash()):
				mined = append(mined, t)
			default:
				var err error
				if t.IsContractCreation() {
					_, err = state.Create(wtx, t.Recipient(), h, ts)
				} else {
					_, err = state.CommitIncoming(wtx, t, h, ts)
				}
				if err == nil {
					_, err = state.CommitOutgoing(wtx, t, h, ts)
				}
				if err != nil {
					evicted = append(evicted, t)
				}
			}
		}
	}

	p.stateMu.Lock()
	for _, t := range evicted {
		p.idx.remove(t)
	}
	for _, t := range mined {
		p.idx.remove(t)
	}
	p.stateMu.Unlock()

	return mined, evicted
}

// restoreTransactions stages every transaction from the reverted blocks
// that's still valid at the new head and not already mined in the new
// chain, then merges each sender's staged set against the pool's existing
// entries via a two-pointer descent.
func (p *Pool) restoreTransactions(reverted []*block.Block) {
	toAdd, toRemove := p.restoreTransactionsLocked(reverted)

	evs := make([]mempoolevent.Event, 0, len(toRemove)+len(toAdd))
	for _, t := range toRemove {
		evs = append(evs, mempoolevent.Event{Type: mempoolevent.Evicted, Tx: t})
	}
	for _, t := range toAdd {
		evs = append(evs, mempoolevent.Event{Type: mempoolevent.Restored, Tx: t})
	}
	updateReconciliationMetrics(0, len(toRemove), len(toAdd))
	updateLostOnRebranchMetric(p.lostOnRebranch.Load())
	updatePoolSizeMetric(p.Count())
	p.emit(evs...)
}

func (p *Pool) restoreTransactionsLocked(reverted []*block.Block) (toAdd, toRemove []*transaction.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()

	head, ts := p.bc.HeadSnapshot()
	h := head + 1

	wtx := p.bc.OpenWriteTransaction()
	defer wtx.Discard()

	restoredBySender := make(map[common.Address][]*transaction.Transaction)
	for _, b := range reverted {
		for _, t := range b.Transactions {
			if !t.IsValidAt(h) || p.bc.ContainsTxInValidityWindow(t.Hash()) {
				p.lostOnRebranch.Inc()
				if p.log != nil {
					p.log.Warn("dropping reverted transaction that no longer validates", zap.Stringer("tx", t))
				}
				continue
			}
			var err error
			if t.IsContractCreation() {
				_, err = state.Create(wtx, t.Recipient(), h, ts)
			} else {
				_, err = state.CommitIncoming(wtx, t, h, ts)
			}
			if err != nil {
				p.lostOnRebranch.Inc()
				if p.log != nil {
					p.log.Warn("dropping reverted transaction whose incoming side no longer applies", zap.Stringer("tx", t))
				}
				continue
			}
			restoredBySender[t.Sender()] = append(restoredBySender[t.Sender()], t)
		}
	}

	p.stateMu.RLock()
	for sender, restored := range restoredBySender {
		// restored was built in reverted-block/transaction iteration
		// order, which carries no relation to the fee ordering;
		// mergeSenderTransactions requires its input sorted ascending,
		// the same invariant a BTreeSet would give for free.
		sort.Slice(restored, func(i, j int) bool {
			return transaction.Compare(restored[i], restored[j]) < 0
		})
		var existing []*transaction.Transaction
		if bucket := p.idx.bySender[sender]; bucket != nil {
			existing = make([]*transaction.Transaction, len(bucket.txs))
			copy(existing, bucket.txs)
		}
		add, remove := mergeSenderTransactions(wtx, restored, existing, h, ts, p.cfg.TransactionsPerSenderMax)
		toAdd = append(toAdd, add...)
		toRemove = append(toRemove, remove...)
	}
	p.stateMu.RUnlock()

	p.stateMu.Lock()
	for _, t := range toRemove {
		p.idx.remove(t)
	}
	for _, t := range toAdd {
		p.idx.add(t)
	}
	for p.idx.sortedFee.Len() > p.cfg.SizeMax {
		victim := p.idx.sortedFee.lowest()
		p.idx.remove(victim)
		toRemove = append(toRemove, victim)
	}
	p.stateMu.Unlock()

	return toAdd, toRemove
}

// mergeSenderTransactions is the per-sender merge algorithm: a two-pointer
// descent over restored and existing, both in fee-descending order, both
// already sorted ascending on entry (the natural order of a feeSet's
// backing slice). New wins ties against old per the total order. It
// returns the restored transactions to add and the existing transactions
// to evict to stay within cap.
func mergeSenderTransactions(wtx *state.WriteTransaction, restored, existing []*transaction.Transaction, height, timestamp uint64, senderCap int) (toAdd, toRemove []*transaction.Transaction) {
	i, j := len(restored)-1, len(existing)-1 // descend from the highest-fee end of each
	k := 0
	for i >= 0 || j >= 0 {
		var pickNew bool
		switch {
		case i < 0:
			pickNew = false
		case j < 0:
			pickNew = true
		default:
			pickNew = transaction.Compare(restored[i], existing[j]) >= 0
		}

		if pickNew {
			t := restored[i]
			i--
			if k < senderCap {
				if _, err := state.CommitOutgoing(wtx, t, height, timestamp); err == nil {
					toAdd = append(toAdd, t)
					k++
					continue
				}
			}
			// Dropped silently: the restored transaction is lost, same as
			// any other simulation failure during reconciliation.
			continue
		}

		t := existing[j]
		j--
		if k < senderCap {
			if _, err := state.CommitOutgoing(wtx, t, height, timestamp); err == nil {
				k++
				continue
			}
		}
		toRemove = append(toRemove, t)
	}
	return toAdd, toRemove
}
