package mempool

import (
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stratachain/strata/pkg/core/block"
	"github.com/stratachain/strata/pkg/core/blockchain"
	"github.com/stratachain/strata/pkg/core/state"
	"github.com/stratachain/strata/pkg/core/storage"
	"github.com/stratachain/strata/pkg/core/transaction"
	"github.com/stratachain/strata/pkg/crypto/hash"
	"github.com/stretchr/testify/require"
)

const testNetworkID = 7

// newSigner returns a fresh signer and the address it signs as.
func newSigner(t *testing.T) (*btcec.PrivateKey, common.Address) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	addr := hash.Hash160(priv.PubKey().SerializeUncompressed())
	return priv, addr
}

func signedTx(t *testing.T, priv *btcec.PrivateKey, sender, recipient common.Address, value, fee uint64, validFrom, validUntil uint64) *transaction.Transaction {
	tx := transaction.New(sender, recipient, transaction.KindBasic, transaction.KindBasic, uint256.NewInt(value), uint256.NewInt(fee), validFrom, validUntil, testNetworkID)
	require.NoError(t, tx.Sign(priv, testNetworkID))
	return tx
}

// fakeChain is a minimal implementation of the Blockchain interface,
// backed by an in-memory trie, for exercising the pool without a real
// node.
type fakeChain struct {
	mu        sync.Mutex
	trie      *state.Trie
	height    uint64
	timestamp uint64
	staking   common.Address
	mined     map[common.Hash]bool
	listeners []chan<- blockchain.Event
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		trie:  state.NewTrie(storage.NewMemoryStore()),
		mined: make(map[common.Hash]bool),
	}
}

func (c *fakeChain) HeadSnapshot() (height, timestamp uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height, c.timestamp
}

func (c *fakeChain) NetworkID() uint64 { return testNetworkID }

func (c *fakeChain) ContainsTxInValidityWindow(hash common.Hash) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mined[hash]
}

func (c *fakeChain) GetAccount(addr common.Address) (*state.Account, bool, error) {
	return c.trie.GetAccount(addr)
}

func (c *fakeChain) OpenWriteTransaction() *state.WriteTransaction {
	return c.trie.OpenWriteTransaction()
}

func (c *fakeChain) StakingContractAddress() common.Address { return c.staking }

func (c *fakeChain) RegisterListener(ch chan<- blockchain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, ch)
}

func (c *fakeChain) publish(ev blockchain.Event) {
	c.mu.Lock()
	ls := make([]chan<- blockchain.Event, len(c.listeners))
	copy(ls, c.listeners)
	c.mu.Unlock()
	for _, ch := range ls {
		ch <- ev
	}
}

// extend advances the head and marks markMined as already included, then
// publishes Extended.
func (c *fakeChain) extend(height, timestamp uint64, markMined ...common.Hash) {
	c.mu.Lock()
	c.height = height
	c.timestamp = timestamp
	for _, h := range markMined {
		c.mined[h] = true
	}
	c.mu.Unlock()
	c.publish(blockchain.Event{Kind: blockchain.Extended})
}

// rebranch advances the head, un-marks reverted's transactions as mined,
// and publishes Rebranched carrying reverted.
func (c *fakeChain) rebranch(reverted []*block.Block, newHeight, newTimestamp uint64) {
	c.mu.Lock()
	for _, b := range reverted {
		for _, tx := range b.Transactions {
			delete(c.mined, tx.Hash())
		}
	}
	c.height = newHeight
	c.timestamp = newTimestamp
	c.mu.Unlock()
	c.publish(blockchain.Event{Kind: blockchain.Rebranched, Reverted: reverted})
}

func fund(t *testing.T, c *fakeChain, addr common.Address, balance uint64) {
	require.NoError(t, c.trie.PutAccount(addr, &state.Account{Kind: transaction.KindBasic, Balance: uint256.NewInt(balance)}))
}
