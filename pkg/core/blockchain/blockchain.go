package blockchain

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stratachain/strata/pkg/core/block"
	"github.com/stratachain/strata/pkg/core/state"
	"go.uber.org/zap"
)

// Config parameterizes a Chain: network identity and the one
// distinguished account address the mempool's block assembly treats
// specially.
type Config struct {
	NetworkID              uint64
	StakingContractAddress common.Address
}

// Chain is a minimal, in-process blockchain: a committed accounts trie,
// the current head, and a mined-transaction validity-window index,
// wrapped with the event stream the mempool's reconciler subscribes to.
// It satisfies mempool.Blockchain.
type Chain struct {
	cfg Config
	log *zap.Logger

	trie *state.Trie

	// mtx is the chain's read lock: it guards the head pair and the
	// mined-transaction index together, so a reader holding it observes
	// one consistent chain state. Each query holds it only for its own
	// duration, and Extend/Rebranch release it before publishing, so it
	// is never held while a mempool lock is being taken.
	mtx           sync.RWMutex
	headHeight    uint64
	headTimestamp uint64
	minedTxs      map[common.Hash]minedEntry
	bloom         *txBloom

	listenersMtx sync.Mutex
	listeners    []chan<- Event
}

// minedEntry records the validity window a mined transaction was admitted
// under, so a long-finalized transaction's fingerprint can eventually be
// pruned once every block that could reference it has itself been
// pruned. Pruning itself is left to the archive layer; the mempool only
// ever reads this index.
type minedEntry struct {
	validUntil uint64
}

// New builds a Chain over store at genesis, with head at height 0.
func New(cfg Config, store *state.Trie, log *zap.Logger) *Chain {
	return &Chain{
		cfg:      cfg,
		log:      log,
		trie:     store,
		minedTxs: make(map[common.Hash]minedEntry),
		bloom:    newTxBloom(1<<20, 3),
	}
}

// BlockNumber returns the current head height.
func (c *Chain) BlockNumber() uint64 {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.headHeight
}

// Timestamp returns the current head's timestamp.
func (c *Chain) Timestamp() uint64 {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.headTimestamp
}

// HeadSnapshot returns the head height and timestamp as one consistent
// pair. Mempool admission and reconciliation read the head exactly once
// through this, so a concurrent Extend or Rebranch can never hand them a
// height from one block and a timestamp from another.
func (c *Chain) HeadSnapshot() (height, timestamp uint64) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.headHeight, c.headTimestamp
}

// NetworkID returns the network identifier transactions must be signed
// for.
func (c *Chain) NetworkID() uint64 { return c.cfg.NetworkID }

// StakingContractAddress returns the one account address whose
// transaction validity depends on recipient state.
func (c *Chain) StakingContractAddress() common.Address { return c.cfg.StakingContractAddress }

// ContainsTxInValidityWindow reports whether hash was mined in a block of
// the current chain. An entry leaves the index only when Rebranch reverts
// its block; the validUntil recorded with it is not consulted here. The
// Bloom filter precheck lets a negative answer skip the map lookup entirely.
func (c *Chain) ContainsTxInValidityWindow(hash common.Hash) bool {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if !c.bloom.mightContain(hash) {
		return false
	}
	_, ok := c.minedTxs[hash]
	return ok
}

// GetAccount returns the committed account at addr.
func (c *Chain) GetAccount(addr common.Address) (*state.Account, bool, error) {
	return c.trie.GetAccount(addr)
}

// OpenWriteTransaction opens a scoped, discard-only simulation overlay
// over the committed trie, the only way admission and reconciliation
// ever touch account state.
func (c *Chain) OpenWriteTransaction() *state.WriteTransaction {
	return c.trie.OpenWriteTransaction()
}

// RegisterListener subscribes ch to the chain's event stream. The channel
// is owned by the caller (the mempool's reconciler); Chain holds only the
// send end, so no reference cycle back to the mempool is ever formed.
// This stands in for a runtime weak pointer, which Go's standard library
// didn't expose at this module's go.mod version. See DESIGN.md.
func (c *Chain) RegisterListener(ch chan<- Event) {
	c.listenersMtx.Lock()
	defer c.listenersMtx.Unlock()
	c.listeners = append(c.listeners, ch)
}

func (c *Chain) publish(ev Event) {
	c.listenersMtx.Lock()
	subs := make([]chan<- Event, len(c.listeners))
	copy(subs, c.listeners)
	c.listenersMtx.Unlock()
	for _, ch := range subs {
		ch <- ev
	}
}

// Extend appends b as the new head and indexes its transactions as mined,
// then emits Extended.
func (c *Chain) Extend(b *block.Block) {
	c.mtx.Lock()
	for _, tx := range b.Transactions {
		h := tx.Hash()
		c.minedTxs[h] = minedEntry{validUntil: tx.ValidUntil}
		c.bloom.add(h)
	}
	c.headHeight = b.Index
	c.headTimestamp = b.Timestamp
	c.mtx.Unlock()
	if c.log != nil {
		c.log.Debug("chain extended", zap.Uint64("height", b.Index), zap.Int("txs", len(b.Transactions)))
	}
	c.publish(Event{Kind: Extended, Block: b})
}

// Finalize emits Finalized for b (already part of the chain). The chain
// keeps no finality state of its own.
func (c *Chain) Finalize(b *block.Block) {
	c.publish(Event{Kind: Finalized, Block: b})
}

// EpochFinalize emits EpochFinalized for the epoch boundary at b.
func (c *Chain) EpochFinalize(b *block.Block) {
	c.publish(Event{Kind: EpochFinalized, Block: b})
}

// Rebranch moves the head from a chain containing reverted to one
// containing adopted instead, un-indexing reverted's transactions, then
// emits Rebranched.
func (c *Chain) Rebranch(reverted, adopted []*block.Block) {
	c.mtx.Lock()
	for _, b := range reverted {
		for _, tx := range b.Transactions {
			delete(c.minedTxs, tx.Hash())
		}
	}
	for _, b := range adopted {
		for _, tx := range b.Transactions {
			h := tx.Hash()
			c.minedTxs[h] = minedEntry{validUntil: tx.ValidUntil}
			c.bloom.add(h)
		}
	}
	if len(adopted) > 0 {
		last := adopted[len(adopted)-1]
		c.headHeight = last.Index
		c.headTimestamp = last.Timestamp
	}
	c.mtx.Unlock()
	if c.log != nil {
		c.log.Info("chain rebranched", zap.Int("reverted", len(reverted)), zap.Int("adopted", len(adopted)))
	}
	c.publish(Event{Kind: Rebranched, Reverted: reverted, Adopted: adopted})
}
