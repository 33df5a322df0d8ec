package mempool

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterAcceptsTransactionRejectsBelowMinFee(t *testing.T) {
	cfg := DefaultFilterConfig()
	cfg.MinFee = 100
	f := newFilter(cfg)

	priv, sender := newSigner(t)
	recipient := common.BytesToAddress([]byte{0x01})
	tx := signedTx(t, priv, sender, recipient, 1, 10, 0, 100)

	assert.False(t, f.acceptsTransaction(tx))
}

func TestFilterAcceptsTransactionRejectsBelowMinFeePerByte(t *testing.T) {
	cfg := DefaultFilterConfig()
	cfg.MinFeePerByte = 1e9
	f := newFilter(cfg)

	priv, sender := newSigner(t)
	recipient := common.BytesToAddress([]byte{0x02})
	tx := signedTx(t, priv, sender, recipient, 1, 10, 0, 100)

	assert.False(t, f.acceptsTransaction(tx))
}

func TestFilterAcceptsTransactionRejectsBelowMinValue(t *testing.T) {
	cfg := DefaultFilterConfig()
	cfg.MinValue = 1000
	f := newFilter(cfg)

	priv, sender := newSigner(t)
	recipient := common.BytesToAddress([]byte{0x03})
	tx := signedTx(t, priv, sender, recipient, 1, 10, 0, 100)

	assert.False(t, f.acceptsTransaction(tx))
}

func TestFilterAcceptsTransactionPassesDefaults(t *testing.T) {
	f := newFilter(DefaultFilterConfig())

	priv, sender := newSigner(t)
	recipient := common.BytesToAddress([]byte{0x04})
	tx := signedTx(t, priv, sender, recipient, 1, 10, 0, 100)

	assert.True(t, f.acceptsTransaction(tx))
}

func TestFilterAcceptsSenderBalance(t *testing.T) {
	cfg := DefaultFilterConfig()
	cfg.MinSenderBalanceAfter = 50
	f := newFilter(cfg)

	priv, sender := newSigner(t)
	recipient := common.BytesToAddress([]byte{0x05})
	tx := signedTx(t, priv, sender, recipient, 1, 10, 0, 100)

	assert.True(t, f.acceptsSenderBalance(tx, uint256.NewInt(200), uint256.NewInt(100)))
	assert.False(t, f.acceptsSenderBalance(tx, uint256.NewInt(200), uint256.NewInt(10)))
}

func TestFilterAcceptsRecipientBalance(t *testing.T) {
	cfg := DefaultFilterConfig()
	cfg.MinRecipientBalanceAfter = 50
	f := newFilter(cfg)

	priv, sender := newSigner(t)
	recipient := common.BytesToAddress([]byte{0x06})
	tx := signedTx(t, priv, sender, recipient, 1, 10, 0, 100)

	assert.True(t, f.acceptsRecipientBalance(tx, uint256.NewInt(0), uint256.NewInt(100)))
	assert.False(t, f.acceptsRecipientBalance(tx, uint256.NewInt(0), uint256.NewInt(10)))
}

func TestFilterBlacklistRoundTrip(t *testing.T) {
	f := newFilter(DefaultFilterConfig())

	var h common.Hash
	h[0] = 0xaa
	assert.False(t, f.blacklisted(h))
	f.blacklistHash(h)
	assert.True(t, f.blacklisted(h))
}

func TestFilterBlacklistEvictsOldestWhenFull(t *testing.T) {
	cfg := DefaultFilterConfig()
	cfg.BlacklistCapacity = 2
	f := newFilter(cfg)

	var h1, h2, h3 common.Hash
	h1[0], h2[0], h3[0] = 0x01, 0x02, 0x03

	f.blacklistHash(h1)
	f.blacklistHash(h2)
	f.blacklistHash(h3)

	require.False(t, f.blacklisted(h1))
	assert.True(t, f.blacklisted(h2))
	assert.True(t, f.blacklisted(h3))
}
