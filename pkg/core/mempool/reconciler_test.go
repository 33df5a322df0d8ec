package mempool

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stratachain/strata/pkg/core/block"
	"github.com/stratachain/strata/pkg/core/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvictTransactionsRemovesExpired(t *testing.T) {
	p, bc := newTestPool()
	priv, sender := newSigner(t)
	fund(t, bc, sender, 100000)
	recipient := common.BytesToAddress([]byte{0x01})

	tx := signedTx(t, priv, sender, recipient, 1, 10, 0, 50)
	require.Equal(t, Accepted, p.PushTransaction(tx))

	bc.height = 100 // now beyond tx's ValidUntil

	p.evictTransactions()
	assert.Equal(t, 0, p.Count())
	assert.False(t, p.Contains(tx.Hash()))
}

func TestEvictTransactionsRemovesMined(t *testing.T) {
	p, bc := newTestPool()
	priv, sender := newSigner(t)
	fund(t, bc, sender, 100000)
	recipient := common.BytesToAddress([]byte{0x02})

	tx := signedTx(t, priv, sender, recipient, 1, 10, 0, 100)
	require.Equal(t, Accepted, p.PushTransaction(tx))

	bc.mined[tx.Hash()] = true

	p.evictTransactions()
	assert.Equal(t, 0, p.Count())
}

func TestEvictTransactionsKeepsStillValidTransaction(t *testing.T) {
	p, bc := newTestPool()
	priv, sender := newSigner(t)
	fund(t, bc, sender, 100000)
	recipient := common.BytesToAddress([]byte{0x03})

	tx := signedTx(t, priv, sender, recipient, 1, 10, 0, 100)
	require.Equal(t, Accepted, p.PushTransaction(tx))

	bc.height = 1 // still well within the validity window

	p.evictTransactions()
	assert.Equal(t, 1, p.Count())
	assert.True(t, p.Contains(tx.Hash()))
}

func TestRestoreTransactionsReinstatesValidTransaction(t *testing.T) {
	p, bc := newTestPool()
	priv, sender := newSigner(t)
	fund(t, bc, sender, 100000)
	recipient := common.BytesToAddress([]byte{0x04})

	tx := signedTx(t, priv, sender, recipient, 1, 10, 0, 100)
	blk := block.New(common.Hash{}, 5, 1000)
	blk.Transactions = []*transaction.Transaction{tx}

	p.restoreTransactions([]*block.Block{blk})

	assert.Equal(t, 1, p.Count())
	assert.True(t, p.Contains(tx.Hash()))
	assert.Equal(t, uint64(0), p.LostOnRebranch())
}

func TestRestoreTransactionsDropsTransactionNoLongerValid(t *testing.T) {
	p, bc := newTestPool()
	priv, sender := newSigner(t)
	fund(t, bc, sender, 100000)
	recipient := common.BytesToAddress([]byte{0x05})

	tx := signedTx(t, priv, sender, recipient, 1, 10, 0, 5)
	bc.height = 100 // the new head is already past tx's ValidUntil

	blk := block.New(common.Hash{}, 5, 1000)
	blk.Transactions = []*transaction.Transaction{tx}

	p.restoreTransactions([]*block.Block{blk})

	assert.Equal(t, 0, p.Count())
	assert.Equal(t, uint64(1), p.LostOnRebranch())
}

func TestRestoreTransactionsDropsTransactionAlreadyMinedOnNewChain(t *testing.T) {
	p, bc := newTestPool()
	priv, sender := newSigner(t)
	fund(t, bc, sender, 100000)
	recipient := common.BytesToAddress([]byte{0x06})

	tx := signedTx(t, priv, sender, recipient, 1, 10, 0, 100)
	bc.mined[tx.Hash()] = true

	blk := block.New(common.Hash{}, 5, 1000)
	blk.Transactions = []*transaction.Transaction{tx}

	p.restoreTransactions([]*block.Block{blk})

	assert.Equal(t, 0, p.Count())
	assert.Equal(t, uint64(1), p.LostOnRebranch())
}

// TestRestoreTransactionsOrdersRevertedTransactionsBySenderFeeRegardlessOfBlockOrder
// covers two same-sender transactions from a reverted block listed out of
// fee order: nothing about block.Block's transaction list guarantees fee
// ordering, so restoreTransactions must sort each sender's restored set
// itself before merging, rather than trusting reverted-block iteration
// order the way mergeSenderTransactions's own two-pointer descent assumes.
func TestRestoreTransactionsOrdersRevertedTransactionsBySenderFeeRegardlessOfBlockOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TransactionsPerSenderMax = 1
	bc := newFakeChain()
	p := New(bc, cfg, nil)

	priv, sender := newSigner(t)
	fund(t, bc, sender, 1000000)
	recipient := common.BytesToAddress([]byte{0x09})

	low := signedTx(t, priv, sender, recipient, 1, 10, 0, 100)
	high := signedTx(t, priv, sender, recipient, 1, 1000, 0, 100)

	blk := block.New(common.Hash{}, 5, 1000)
	blk.Transactions = []*transaction.Transaction{high, low} // descending, not ascending

	p.restoreTransactions([]*block.Block{blk})

	assert.Equal(t, 1, p.Count())
	assert.True(t, p.Contains(high.Hash()), "the higher-fee restored transaction must survive the sender cap")
	assert.False(t, p.Contains(low.Hash()))
}

func TestMergeSenderTransactionsInterleavesByFeeAndRespectsCap(t *testing.T) {
	bc := newFakeChain()
	priv, sender := newSigner(t)
	fund(t, bc, sender, 1000000)
	recipient := common.BytesToAddress([]byte{0x07})

	existingLow := signedTx(t, priv, sender, recipient, 1, 10, 0, 100)
	existingHigh := signedTx(t, priv, sender, recipient, 1, 1000, 0, 100)
	restoredMid := signedTx(t, priv, sender, recipient, 1, 500, 0, 100)

	wtx := bc.trie.OpenWriteTransaction()
	defer wtx.Discard()

	toAdd, toRemove := mergeSenderTransactions(
		wtx,
		[]*transaction.Transaction{restoredMid},
		[]*transaction.Transaction{existingLow, existingHigh},
		1, 1000,
		2,
	)

	require.Len(t, toAdd, 1)
	assert.Equal(t, restoredMid.Hash(), toAdd[0].Hash())
	require.Len(t, toRemove, 1)
	assert.Equal(t, existingLow.Hash(), toRemove[0].Hash())
}

func TestMergeSenderTransactionsDropsWhenSimulationFails(t *testing.T) {
	bc := newFakeChain()
	priv, sender := newSigner(t)
	fund(t, bc, sender, 5) // not enough to cover even one transaction
	recipient := common.BytesToAddress([]byte{0x08})

	restored := signedTx(t, priv, sender, recipient, 1, 10, 0, 100)

	wtx := bc.trie.OpenWriteTransaction()
	defer wtx.Discard()

	toAdd, toRemove := mergeSenderTransactions(
		wtx,
		[]*transaction.Transaction{restored},
		nil,
		1, 1000,
		10,
	)

	assert.Empty(t, toAdd)
	assert.Empty(t, toRemove)
}
