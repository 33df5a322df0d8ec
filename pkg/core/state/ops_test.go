package state

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stratachain/strata/pkg/core/storage"
	"github.com/stratachain/strata/pkg/core/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTrie() *Trie {
	return NewTrie(storage.NewMemoryStore())
}

func fundedTx(from, to common.Address, value, fee uint64) *transaction.Transaction {
	return transaction.New(from, to, transaction.KindBasic, transaction.KindBasic, uint256.NewInt(value), uint256.NewInt(fee), 0, 1000, 1)
}

func TestCommitOutgoingInsufficientBalance(t *testing.T) {
	trie := newTestTrie()
	wtx := trie.OpenWriteTransaction()
	from := common.BytesToAddress([]byte{1})
	to := common.BytesToAddress([]byte{2})
	tx := fundedTx(from, to, 100, 1)

	_, err := CommitOutgoing(wtx, tx, 1, 0)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestCommitOutgoingThenIncomingBalancesMove(t *testing.T) {
	trie := newTestTrie()
	wtx := trie.OpenWriteTransaction()
	from := common.BytesToAddress([]byte{1})
	to := common.BytesToAddress([]byte{2})

	require.NoError(t, wtx.PutAccount(from, &Account{Kind: transaction.KindBasic, Balance: uint256.NewInt(1000)}))

	tx := fundedTx(from, to, 100, 1)
	_, err := CommitOutgoing(wtx, tx, 1, 0)
	require.NoError(t, err)
	_, err = CommitIncoming(wtx, tx, 1, 0)
	require.NoError(t, err)

	sender, err := wtx.GetAccount(from)
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(899), sender.Balance)

	recipient, err := wtx.GetAccount(to)
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(100), recipient.Balance)

	// Discarding the scope never touches the backing trie.
	wtx.Discard()
	_, ok, err := trie.GetAccount(from)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRevertOutgoingUndoesCommitOutgoing(t *testing.T) {
	trie := newTestTrie()
	wtx := trie.OpenWriteTransaction()
	from := common.BytesToAddress([]byte{1})
	to := common.BytesToAddress([]byte{2})
	require.NoError(t, wtx.PutAccount(from, &Account{Kind: transaction.KindBasic, Balance: uint256.NewInt(1000)}))

	tx := fundedTx(from, to, 100, 1)
	_, err := CommitOutgoing(wtx, tx, 1, 0)
	require.NoError(t, err)
	_, err = RevertOutgoing(wtx, tx, 1, 0)
	require.NoError(t, err)

	sender, err := wtx.GetAccount(from)
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(1000), sender.Balance)
}
