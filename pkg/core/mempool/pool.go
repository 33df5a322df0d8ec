// Package mempool implements the transaction mempool: the in-memory
// staging area between a transaction's arrival and its inclusion in a
// block. It admits only transactions that could legally execute at the
// next block height against the current account state, keeps them
// fee-ordered for block assembly, and reconciles its contents with
// the blockchain head as blocks are appended, finalized or rebranched.
package mempool

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stratachain/strata/pkg/core/blockchain"
	"github.com/stratachain/strata/pkg/core/state"
	"github.com/stratachain/strata/pkg/core/transaction"
	"github.com/stratachain/strata/pkg/mempoolevent"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// ReturnCode is push_transaction's outcome. Admission never panics or
// returns a bare error to its caller; every path here resolves to one of
// these five codes.
type ReturnCode byte

const (
	// Accepted means every check passed and the transaction is now
	// pooled.
	Accepted ReturnCode = iota
	// Known means the transaction's fingerprint is already pooled.
	Known
	// Invalid covers intrinsic-verify failure, height invalidity,
	// already-mined, account-kind mismatch, and simulation failure.
	Invalid
	// FeeTooLow covers the free-transaction quota and the per-sender cap.
	FeeTooLow
	// Filtered covers blacklist membership and rule rejection.
	Filtered
)

func (c ReturnCode) String() string {
	switch c {
	case Accepted:
		return "Accepted"
	case Known:
		return "Known"
	case Invalid:
		return "Invalid"
	case FeeTooLow:
		return "FeeTooLow"
	case Filtered:
		return "Filtered"
	default:
		return "Unknown"
	}
}

// Blockchain is the read-only query plus scoped write-transaction surface
// the mempool consumes. The concrete implementation lives in
// pkg/core/blockchain; the interface is declared here so this package
// never depends on blockchain's event-dispatch machinery beyond the event
// type itself.
type Blockchain interface {
	// HeadSnapshot returns the head height and timestamp as one
	// consistent pair, read under the chain's own read lock. Every
	// mutating mempool operation takes exactly one snapshot and works
	// against it throughout.
	HeadSnapshot() (height, timestamp uint64)
	NetworkID() uint64
	ContainsTxInValidityWindow(hash common.Hash) bool
	GetAccount(addr common.Address) (*state.Account, bool, error)
	OpenWriteTransaction() *state.WriteTransaction
	StakingContractAddress() common.Address
	RegisterListener(ch chan<- blockchain.Event)
}

// Pool is the mempool itself: the four co-indexed views over one set of
// transactions, the admission filter, and the concurrency discipline of a
// coarse mutation lock serializing push_transaction, evict_transactions
// and restore_transactions, plus a state lock guarding the indexes for
// concurrent readers.
//
// Go's standard library has no upgradable-read mode for sync.RWMutex.
// Since the mutation lock already forbids any other mutator from running
// concurrently, admission approximates an upgradable read by taking
// stateMu.RLock for its inspection reads, releasing it, and then taking
// stateMu.Lock only for the final commit. No other writer can have
// slipped in between, because the mutation lock still holds. See
// DESIGN.md.
type Pool struct {
	cfg Config
	bc  Blockchain
	log *zap.Logger

	mu      sync.Mutex   // the mutation lock: push_transaction / evict / restore
	stateMu sync.RWMutex // guards idx and the filter's blacklist

	idx    *indexes
	filter *filter

	lostOnRebranch atomic.Uint64

	subscriptionsOn atomic.Bool
	stopCh          chan struct{}
	chainEvents     chan blockchain.Event
	events          chan mempoolevent.Event
	subCh           chan chan<- mempoolevent.Event
	unsubCh         chan chan<- mempoolevent.Event
}

// New builds a Pool over bc with cfg, and subscribes it to bc's event
// stream so blockchain extension, finalization and rebranch events are
// reconciled automatically.
func New(bc Blockchain, cfg Config, log *zap.Logger) *Pool {
	p := &Pool{
		cfg:         cfg,
		bc:          bc,
		log:         log,
		idx:         newIndexes(),
		filter:      newFilter(cfg.FilterRules),
		stopCh:      make(chan struct{}),
		chainEvents: make(chan blockchain.Event, 64),
		events:      make(chan mempoolevent.Event),
		subCh:       make(chan chan<- mempoolevent.Event),
		unsubCh:     make(chan chan<- mempoolevent.Event),
	}
	bc.RegisterListener(p.chainEvents)
	go p.reconcileLoop()
	return p
}

func (p *Pool) belowRelayFee(t *transaction.Transaction) bool {
	return t.FeePerByte() < p.cfg.TransactionRelayFeeMin
}

// emit sends evs to the event dispatcher in order, after the mutation
// lock has already been released by the caller: Added precedes any
// Evicted it triggers, and notification happens outside the lock so
// listeners may safely call back into read-only Pool methods.
func (p *Pool) emit(evs ...mempoolevent.Event) {
	if !p.subscriptionsOn.Load() {
		return
	}
	for _, ev := range evs {
		p.events <- ev
	}
}

// PushTransaction runs the admission pipeline and returns one of the five
// ReturnCodes. Notification is deliberately split from the locked
// pipeline below: events are only published once the mutation lock has
// been released, so a listener reacting synchronously to Added/Evicted
// can safely call back into the pool's read-only query surface without
// deadlocking against this call.
func (p *Pool) PushTransaction(t *transaction.Transaction) ReturnCode {
	code, evs := p.pushTransactionLocked(t)
	updateAdmissionMetric(code)
	updatePoolSizeMetric(p.Count())
	p.emit(evs...)
	return code
}

func (p *Pool) pushTransactionLocked(t *transaction.Transaction) (ReturnCode, []mempoolevent.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	hash := t.Hash()

	// Step 1: filter / blacklist.
	p.stateMu.RLock()
	blacklisted := p.filter.blacklisted(hash)
	p.stateMu.RUnlock()
	if blacklisted || !p.filter.acceptsTransaction(t) {
		p.stateMu.Lock()
		p.filter.blacklistHash(hash)
		p.stateMu.Unlock()
		return Filtered, nil
	}

	// Step 2: duplicate check.
	p.stateMu.RLock()
	_, known := p.idx.byHash[hash]
	p.stateMu.RUnlock()
	if known {
		return Known, nil
	}

	// Step 3: intrinsic verification.
	if err := t.VerifyMut(p.bc.NetworkID()); err != nil {
		if p.log != nil {
			p.log.Debug("rejecting transaction failing intrinsic verification", zap.Stringer("tx", t), zap.Error(err))
		}
		return Invalid, nil
	}

	// Step 4: free-transaction quota.
	if p.belowRelayFee(t) {
		free := 0
		capped := false
		p.stateMu.RLock()
		if bucket := p.idx.bySender[t.Sender()]; bucket != nil {
			bucket.descend(func(existing *transaction.Transaction) bool {
				if !p.belowRelayFee(existing) {
					return false
				}
				free++
				if free >= p.cfg.FreeTransactionsPerSenderMax {
					capped = true
					return false
				}
				return true
			})
		}
		p.stateMu.RUnlock()
		if capped {
			return FeeTooLow, nil
		}
	}

	// Step 5: height validity, against one consistent head snapshot
	// used for the rest of the pipeline.
	head, ts := p.bc.HeadSnapshot()
	h := head + 1
	if !t.IsValidAt(h) {
		return Invalid, nil
	}

	// Step 6: already mined.
	if p.bc.ContainsTxInValidityWindow(hash) {
		return Invalid, nil
	}

	// Step 7: recipient-side simulation.
	wtx := p.bc.OpenWriteTransaction()
	defer wtx.Discard()

	recipientBefore, err := wtx.GetAccount(t.Recipient())
	if err != nil {
		return Invalid, nil
	}
	oldRecipientBalance := recipientBefore.Balance.Clone()
	needsCreation := recipientBefore.Kind != t.RecipientType()
	if t.IsContractCreation() != needsCreation {
		return Invalid, nil
	}
	if t.IsContractCreation() {
		if _, err := state.Create(wtx, t.Recipient(), h, ts); err != nil {
			return Invalid, nil
		}
	} else {
		if _, err := state.CommitIncoming(wtx, t, h, ts); err != nil {
			return Invalid, nil
		}
	}
	recipientAfter, err := wtx.GetAccount(t.Recipient())
	if err != nil {
		return Invalid, nil
	}

	// Step 8: recipient balance policy.
	if !p.filter.acceptsRecipientBalance(t, oldRecipientBalance, recipientAfter.Balance) {
		p.stateMu.Lock()
		p.filter.blacklistHash(hash)
		p.stateMu.Unlock()
		return Filtered, nil
	}

	// Step 9: sender account. Unlike the recipient, the sender is never
	// defaulted into being; ErrAccountNotFound lands here.
	senderBefore, err := wtx.GetExistingAccount(t.Sender())
	if err != nil {
		if p.log != nil {
			p.log.Debug("rejecting transaction without a usable sender account", zap.Stringer("tx", t), zap.Error(err))
		}
		return Invalid, nil
	}
	if senderBefore.Kind != t.SenderType() {
		return Invalid, nil
	}

	// Step 10: per-sender serial replay, from highest fee-per-byte
	// downward, over every existing transaction strictly ahead of t.
	p.stateMu.RLock()
	bucket := p.idx.bySender[t.Sender()]
	var senderTxs []*transaction.Transaction
	if bucket != nil {
		senderTxs = make([]*transaction.Transaction, len(bucket.txs))
		copy(senderTxs, bucket.txs)
	}
	p.stateMu.RUnlock()

	k := 0
	i := len(senderTxs) - 1
	for ; i >= 0; i-- {
		existing := senderTxs[i]
		if transaction.Compare(existing, t) <= 0 {
			break
		}
		if _, err := state.CommitOutgoing(wtx, existing, h, ts); err != nil {
			return Invalid, nil
		}
		k++
	}
	if k >= p.cfg.TransactionsPerSenderMax {
		return FeeTooLow, nil
	}

	// Step 11: the new transaction's own outgoing side.
	if _, err := state.CommitOutgoing(wtx, t, h, ts); err != nil {
		return Invalid, nil
	}
	senderAfter, err := wtx.GetAccount(t.Sender())
	if err != nil {
		return Invalid, nil
	}
	if !p.filter.acceptsSenderBalance(t, senderBefore.Balance, senderAfter.Balance) {
		p.stateMu.Lock()
		p.filter.blacklistHash(hash)
		p.stateMu.Unlock()
		return Filtered, nil
	}
	k++ // the new transaction occupies a slot of its own

	// Step 12: tail eviction, continuing the walk over the sender's
	// remaining, lower-fee transactions.
	var toEvict []*transaction.Transaction
	for ; i >= 0; i-- {
		existing := senderTxs[i]
		kept := false
		if k < p.cfg.TransactionsPerSenderMax {
			if _, err := state.CommitOutgoing(wtx, existing, h, ts); err == nil {
				k++
				kept = true
			}
		}
		if !kept {
			toEvict = append(toEvict, existing)
		}
	}

	// Step 13: commit to indexes under the exclusive state lock.
	p.stateMu.Lock()
	p.idx.add(t)
	for _, v := range toEvict {
		p.idx.remove(v)
	}
	for p.idx.sortedFee.Len() > p.cfg.SizeMax {
		victim := p.idx.sortedFee.lowest()
		p.idx.remove(victim)
		toEvict = append(toEvict, victim)
	}
	p.stateMu.Unlock()

	// Step 14: notify, Added before any Evicted it triggered. The caller
	// emits these only after this function, and with it the mutation
	// lock, has returned.
	evs := make([]mempoolevent.Event, 0, 1+len(toEvict))
	evs = append(evs, mempoolevent.Event{Type: mempoolevent.Added, Tx: t})
	for _, v := range toEvict {
		evs = append(evs, mempoolevent.Event{Type: mempoolevent.Evicted, Tx: v})
	}

	return Accepted, evs
}

// Contains reports whether hash is currently pooled.
func (p *Pool) Contains(hash common.Hash) bool {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	_, ok := p.idx.byHash[hash]
	return ok
}

// Get returns the pooled transaction with the given fingerprint, if any.
func (p *Pool) Get(hash common.Hash) (*transaction.Transaction, bool) {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	t, ok := p.idx.byHash[hash]
	return t, ok
}

// IsFiltered reports whether hash is currently blacklisted.
func (p *Pool) IsFiltered(hash common.Hash) bool {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.filter.blacklisted(hash)
}

// Count returns the number of pooled transactions.
func (p *Pool) Count() int {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.idx.count()
}

// LostOnRebranch returns the running count of reverted-block transactions
// that restore_transactions could not re-admit because they no longer
// validated at the new head, a telemetry counter kept in place of silent
// loss.
func (p *Pool) LostOnRebranch() uint64 {
	return p.lostOnRebranch.Load()
}

// Top returns up to maxCount pooled transactions from the highest-fee
// end, excluding any below minFeePerByte.
func (p *Pool) Top(maxCount int, minFeePerByte float64) []*transaction.Transaction {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	out := make([]*transaction.Transaction, 0, maxCount)
	p.idx.sortedFee.descend(func(t *transaction.Transaction) bool {
		if len(out) >= maxCount {
			return false
		}
		if t.FeePerByte() < minFeePerByte {
			return false
		}
		out = append(out, t)
		return true
	})
	return out
}

// ByAddresses returns up to maxCount transactions touching any of addrs:
// for each address, the highest-fee entries from by_sender, then the
// highest-fee entries from by_recipient, until the overall budget is
// spent.
func (p *Pool) ByAddresses(addrs []common.Address, maxCount int) []*transaction.Transaction {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	out := make([]*transaction.Transaction, 0, maxCount)
	take := func(s *feeSet) {
		if s == nil {
			return
		}
		s.descend(func(t *transaction.Transaction) bool {
			if len(out) >= maxCount {
				return false
			}
			out = append(out, t)
			return true
		})
	}
	for _, addr := range addrs {
		if len(out) >= maxCount {
			break
		}
		take(p.idx.bySender[addr])
		if len(out) >= maxCount {
			break
		}
		take(p.idx.byRecipient[addr])
	}
	return out
}

// GetTransactionsForBlock walks the pool from highest fee to lowest,
// greedily packing transactions into a block of at most maxSize
// serialized bytes. The staking contract is the only account whose
// validity depends on recipient state, so it alone needs in-walk
// simulation; every other pooled transaction was already guaranteed
// executable against the current head by admission.
func (p *Pool) GetTransactionsForBlock(maxSize int) []*transaction.Transaction {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()

	wtx := p.bc.OpenWriteTransaction()
	defer wtx.Discard()

	head, ts := p.bc.HeadSnapshot()
	h := head + 1
	staking := p.bc.StakingContractAddress()

	var result []*transaction.Transaction
	size := 0
	p.idx.sortedFee.descend(func(t *transaction.Transaction) bool {
		outgoingApplied := false
		if t.Sender() == staking {
			if _, err := state.CommitOutgoing(wtx, t, h, ts); err != nil {
				return true // skip, keep walking
			}
			outgoingApplied = true
		}
		if t.Recipient() == staking {
			var err error
			if t.IsContractCreation() {
				_, err = state.Create(wtx, t.Recipient(), h, ts)
			} else {
				_, err = state.CommitIncoming(wtx, t, h, ts)
			}
			if err != nil {
				// A self-send to the staking contract touches both
				// sides; the debit already committed above must not
				// leak into later transactions sharing wtx.
				if outgoingApplied {
					_, _ = state.RevertOutgoing(wtx, t, h, ts)
				}
				return true // skip, keep walking
			}
		}

		if size+t.SerializedSize() <= maxSize {
			result = append(result, t)
			size += t.SerializedSize()
			return true
		}
		if maxSize-size < transaction.MinSize {
			return false // nothing left could possibly fit
		}
		return true // a smaller transaction later might still fit
	})
	return result
}
