package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/stratachain/strata/pkg/core/storage"
	"github.com/stratachain/strata/pkg/core/transaction"
)

// accountKey returns the storage key an address's account record lives
// under.
func accountKey(addr common.Address) []byte {
	key := make([]byte, 0, 1+common.AddressLength)
	key = append(key, byte(storage.AccountPrefix))
	key = append(key, addr.Bytes()...)
	return key
}

// rlpAccount is Account's wire shape.
type rlpAccount struct {
	Kind    uint8
	Balance []byte
}

func encodeAccount(a *Account) ([]byte, error) {
	return rlp.EncodeToBytes(&rlpAccount{Kind: uint8(a.Kind), Balance: a.Balance.Bytes()})
}

func decodeAccount(b []byte) (*Account, error) {
	var aux rlpAccount
	if err := rlp.DecodeBytes(b, &aux); err != nil {
		return nil, err
	}
	return &Account{
		Kind:    transaction.AccountKind(aux.Kind),
		Balance: new(uint256.Int).SetBytes(aux.Balance),
	}, nil
}

// Trie is the authoritative, committed view of every account, backed by a
// storage.Store. The mempool never mutates a Trie directly: it opens a
// WriteTransaction overlay and discards it when done.
type Trie struct {
	store storage.Store
}

// NewTrie wraps a committed backing store.
func NewTrie(store storage.Store) *Trie {
	return &Trie{store: store}
}

// GetAccount returns the committed account at addr, or (nil, false) if
// none exists.
func (t *Trie) GetAccount(addr common.Address) (*Account, bool, error) {
	b, err := t.store.Get(accountKey(addr))
	if err == storage.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	acc, err := decodeAccount(b)
	if err != nil {
		return nil, false, err
	}
	return acc, true, nil
}

// PutAccount commits an account directly to the backing store. The
// mempool never calls it; it only ever writes into a WriteTransaction
// overlay.
func (t *Trie) PutAccount(addr common.Address, acc *Account) error {
	b, err := encodeAccount(acc)
	if err != nil {
		return err
	}
	return t.store.Put(accountKey(addr), b)
}

// OpenWriteTransaction opens a scoped, copy-on-write overlay over the
// trie's backing store. Every read/write during admission or
// reconciliation goes through this overlay; it is always discarded, never
// persisted back into the Trie.
func (t *Trie) OpenWriteTransaction() *WriteTransaction {
	return &WriteTransaction{overlay: storage.NewMemCachedStore(t.store)}
}

// WriteTransaction is a scoped, rollback-only simulation overlay: writes
// are visible to reads within the scope but never escape it.
type WriteTransaction struct {
	overlay *storage.MemCachedStore
}

// GetAccount returns the account at addr as this scope currently sees it,
// defaulting to a fresh zero-balance basic account if none exists, the
// default needed when simulating a payment to an address that hasn't been
// used yet.
func (w *WriteTransaction) GetAccount(addr common.Address) (*Account, error) {
	b, err := w.overlay.Get(accountKey(addr))
	if err == storage.ErrKeyNotFound {
		return NewBasicAccount(), nil
	}
	if err != nil {
		return nil, err
	}
	return decodeAccount(b)
}

// PutAccount stages an account write in this scope only.
func (w *WriteTransaction) PutAccount(addr common.Address, acc *Account) error {
	b, err := encodeAccount(acc)
	if err != nil {
		return err
	}
	return w.overlay.Put(accountKey(addr), b)
}

// GetExistingAccount returns the account at addr, failing with
// ErrAccountNotFound if none exists as this scope sees it (its staged
// writes over the committed trie), unlike
// GetAccount, which defaults silently to a fresh basic account. Admission
// needs the distinction: a sender must already exist, where a recipient
// is allowed to be defaulted into being.
func (w *WriteTransaction) GetExistingAccount(addr common.Address) (*Account, error) {
	b, err := w.overlay.Get(accountKey(addr))
	if err == storage.ErrKeyNotFound {
		return nil, newAccountError("not_found", ErrAccountNotFound)
	}
	if err != nil {
		return nil, err
	}
	return decodeAccount(b)
}

// Discard drops every write made through this scope. This is the only
// way admission and reconciliation ever end a WriteTransaction: the scope
// exists purely to borrow the trie's mutation semantics for simulation.
func (w *WriteTransaction) Discard() {
	w.overlay.Discard()
}
