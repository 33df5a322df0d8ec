package mempool

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stratachain/strata/pkg/core/block"
	"github.com/stratachain/strata/pkg/core/transaction"
	"github.com/stratachain/strata/pkg/mempoolevent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextEvent(t *testing.T, ch <-chan mempoolevent.Event) mempoolevent.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for mempool event")
		return mempoolevent.Event{}
	}
}

func newSubscribedPool(t *testing.T) (*Pool, *fakeChain, chan mempoolevent.Event) {
	p, bc := newTestPool()
	p.RunSubscriptions()
	t.Cleanup(p.StopSubscriptions)
	ch := make(chan mempoolevent.Event, 16)
	p.SubscribeForTransactions(ch)
	return p, bc, ch
}

func TestAdmitThenMine(t *testing.T) {
	p, bc, ch := newSubscribedPool(t)
	priv, sender := newSigner(t)
	fund(t, bc, sender, 100000)
	recipient := common.BytesToAddress([]byte{0x01})

	tx := signedTx(t, priv, sender, recipient, 1, 10, 0, 100)
	require.Equal(t, Accepted, p.PushTransaction(tx))

	ev := nextEvent(t, ch)
	require.Equal(t, mempoolevent.Added, ev.Type)
	assert.Equal(t, tx.Hash(), ev.Tx.Hash())

	bc.extend(1, 10, tx.Hash())

	ev = nextEvent(t, ch)
	require.Equal(t, mempoolevent.Mined, ev.Type)
	assert.Equal(t, tx.Hash(), ev.Tx.Hash())
	assert.Equal(t, 0, p.Count())
}

func TestAdmitThenExpire(t *testing.T) {
	p, bc, ch := newSubscribedPool(t)
	priv, sender := newSigner(t)
	fund(t, bc, sender, 100000)
	recipient := common.BytesToAddress([]byte{0x02})

	tx := signedTx(t, priv, sender, recipient, 1, 10, 0, 50)
	require.Equal(t, Accepted, p.PushTransaction(tx))
	require.Equal(t, mempoolevent.Added, nextEvent(t, ch).Type)

	bc.extend(100, 10) // carries the head past tx's validity window

	ev := nextEvent(t, ch)
	require.Equal(t, mempoolevent.Evicted, ev.Type)
	assert.Equal(t, tx.Hash(), ev.Tx.Hash())
	assert.Equal(t, 0, p.Count())
}

// TestRebranchPreservesUnminedTransactions admits t1 and t2, then rebranches
// away from a block carrying t3: t1 and t2 revalidate and stay pooled, t3 is
// restored from the reverted block.
func TestRebranchPreservesUnminedTransactions(t *testing.T) {
	p, bc, ch := newSubscribedPool(t)
	priv1, sender1 := newSigner(t)
	priv2, sender2 := newSigner(t)
	priv3, sender3 := newSigner(t)
	fund(t, bc, sender1, 100000)
	fund(t, bc, sender2, 100000)
	fund(t, bc, sender3, 100000)
	recipient := common.BytesToAddress([]byte{0x03})

	t1 := signedTx(t, priv1, sender1, recipient, 1, 10, 0, 100)
	t2 := signedTx(t, priv2, sender2, recipient, 1, 20, 0, 100)
	require.Equal(t, Accepted, p.PushTransaction(t1))
	require.Equal(t, Accepted, p.PushTransaction(t2))
	require.Equal(t, mempoolevent.Added, nextEvent(t, ch).Type)
	require.Equal(t, mempoolevent.Added, nextEvent(t, ch).Type)

	t3 := signedTx(t, priv3, sender3, recipient, 1, 30, 0, 100)
	reverted := block.New(common.Hash{}, 5, 1000)
	reverted.Transactions = []*transaction.Transaction{t3}

	bc.rebranch([]*block.Block{reverted}, 6, 1100)

	ev := nextEvent(t, ch)
	require.Equal(t, mempoolevent.Restored, ev.Type)
	assert.Equal(t, t3.Hash(), ev.Tx.Hash())

	assert.Equal(t, 3, p.Count())
	assert.True(t, p.Contains(t1.Hash()))
	assert.True(t, p.Contains(t2.Hash()))
	assert.True(t, p.Contains(t3.Hash()))
}
