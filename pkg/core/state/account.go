// Package state models accounts and the trie that holds them, plus the
// scoped write-transaction overlay the mempool uses as a pure simulation
// device: every write made through a WriteTransaction is visible to
// subsequent reads within that scope but is discarded, never persisted,
// when admission or reconciliation finishes with it.
package state

import (
	"github.com/holiman/uint256"
	"github.com/stratachain/strata/pkg/core/transaction"
)

// Account is the per-address state the mempool simulates transactions
// against: a balance and the kind of account (basic, contract, the
// staking contract).
type Account struct {
	Kind    transaction.AccountKind
	Balance *uint256.Int
}

// NewBasicAccount returns a freshly-created, zero-balance basic account,
// the default used whenever a recipient doesn't exist yet.
func NewBasicAccount() *Account {
	return &Account{Kind: transaction.KindBasic, Balance: uint256.NewInt(0)}
}

// AccountType returns the account's kind.
func (a *Account) AccountType() transaction.AccountKind { return a.Kind }

// AccountBalance returns the account's current balance.
func (a *Account) AccountBalance() *uint256.Int { return a.Balance }

// Clone returns an independent copy, so callers simulating against it
// never mutate a value another reader might be holding.
func (a *Account) Clone() *Account {
	return &Account{Kind: a.Kind, Balance: new(uint256.Int).Set(a.Balance)}
}
