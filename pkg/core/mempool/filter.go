package mempool

import (
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
	"github.com/stratachain/strata/pkg/core/transaction"
)

// FilterConfig carries the rule thresholds the filter evaluates at
// admission, plus the blacklist's capacity, so admission policy can be
// tuned without a rebuild. Monetary thresholds are plain integers so the
// struct round-trips through a YAML config file.
type FilterConfig struct {
	// MinFee rejects any transaction paying less than this flat fee.
	MinFee uint64 `yaml:"MinFee"`
	// MinFeePerByte rejects any transaction below this fee-per-byte,
	// independent of the free-transaction quota in the admission
	// pipeline's step 4 (TransactionRelayFeeMin).
	MinFeePerByte float64 `yaml:"MinFeePerByte"`
	// MinValue rejects any transaction transferring less than this amount.
	MinValue uint64 `yaml:"MinValue"`
	// MaxContractCreationSize rejects a CONTRACT_CREATION transaction
	// whose serialized size exceeds this ceiling.
	MaxContractCreationSize int `yaml:"MaxContractCreationSize"`
	// MinSenderBalanceAfter rejects a transaction that would leave the
	// sender below this balance.
	MinSenderBalanceAfter uint64 `yaml:"MinSenderBalanceAfter"`
	// MinRecipientBalanceAfter rejects a transaction that would leave the
	// recipient below this balance.
	MinRecipientBalanceAfter uint64 `yaml:"MinRecipientBalanceAfter"`
	// BlacklistCapacity bounds the FIFO ring of rejected fingerprints;
	// the oldest entry is displaced once it's full.
	BlacklistCapacity int `yaml:"BlacklistCapacity"`
}

// DefaultFilterConfig returns permissive rule thresholds suitable for a
// mempool that otherwise relies on TransactionRelayFeeMin for spam
// control.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MaxContractCreationSize: 16 * 1024,
		BlacklistCapacity:       10000,
	}
}

// filter is the stateless rule evaluator plus the bounded FIFO blacklist
// of fingerprints rejected at admission. The blacklist is backed by an LRU
// cache rather than a hand-rolled ring buffer: a golang-lru Cache with a
// hard Add-eviction-on-full capacity gives the "oldest entry displaced
// when full" behavior a FIFO needs.
type filter struct {
	cfg FilterConfig

	// The configured thresholds widened once, so the hot path compares
	// against them without re-allocating per transaction.
	minFee            *uint256.Int
	minValue          *uint256.Int
	minSenderAfter    *uint256.Int
	minRecipientAfter *uint256.Int

	blacklist *lru.Cache
}

func newFilter(cfg FilterConfig) *filter {
	capacity := cfg.BlacklistCapacity
	if capacity <= 0 {
		capacity = 1
	}
	cache, err := lru.New(capacity)
	if err != nil {
		// Only returns an error for a non-positive size, already guarded
		// above.
		panic(err)
	}
	return &filter{
		cfg:               cfg,
		minFee:            uint256.NewInt(cfg.MinFee),
		minValue:          uint256.NewInt(cfg.MinValue),
		minSenderAfter:    uint256.NewInt(cfg.MinSenderBalanceAfter),
		minRecipientAfter: uint256.NewInt(cfg.MinRecipientBalanceAfter),
		blacklist:         cache,
	}
}

// acceptsTransaction inspects only t: flat fee, fee-per-byte and value
// floors, and a size ceiling on contract-creation transactions.
func (f *filter) acceptsTransaction(t *transaction.Transaction) bool {
	if t.Fee().Cmp(f.minFee) < 0 {
		return false
	}
	if t.FeePerByte() < f.cfg.MinFeePerByte {
		return false
	}
	if t.Value().Cmp(f.minValue) < 0 {
		return false
	}
	if t.IsContractCreation() && f.cfg.MaxContractCreationSize > 0 && t.SerializedSize() > f.cfg.MaxContractCreationSize {
		return false
	}
	return true
}

// acceptsSenderBalance rejects a transaction that would leave the sender
// below the configured floor. old is unused by the default policy but is
// accepted so a richer policy (e.g. "balance must not drop by more than
// X%") has what it needs without changing the call site.
func (f *filter) acceptsSenderBalance(t *transaction.Transaction, old, new *uint256.Int) bool {
	return new.Cmp(f.minSenderAfter) >= 0
}

// acceptsRecipientBalance rejects a transaction that would leave the
// recipient below the configured floor.
func (f *filter) acceptsRecipientBalance(t *transaction.Transaction, old, new *uint256.Int) bool {
	return new.Cmp(f.minRecipientAfter) >= 0
}

// blacklisted reports whether hash was previously rejected and has not
// yet been displaced from the ring.
func (f *filter) blacklisted(hash common.Hash) bool {
	return f.blacklist.Contains(hash)
}

// blacklistHash records hash as rejected, displacing the oldest entry if
// the ring is full. A hash already present keeps its place in the ring.
func (f *filter) blacklistHash(hash common.Hash) {
	f.blacklist.ContainsOrAdd(hash, struct{}{})
}
