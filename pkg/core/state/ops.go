package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stratachain/strata/pkg/core/transaction"
)

// Create materializes a fresh contract account at addr within wtx's
// scope, failing if one already exists there. Used by admission step 7
// when a transaction's CONTRACT_CREATION flag is set.
func Create(wtx *WriteTransaction, addr common.Address, height, timestamp uint64) ([]byte, error) {
	existing, err := wtx.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if existing.Balance.Sign() != 0 || existing.Kind != transaction.KindBasic {
		return nil, newAccountError("already_exists", ErrAlreadyExists)
	}
	acc := &Account{Kind: transaction.KindContract, Balance: uint256.NewInt(0)}
	if err := wtx.PutAccount(addr, acc); err != nil {
		return nil, err
	}
	return encodeReceipt(height, timestamp, acc.Balance.Bytes())
}

// CommitIncoming credits tx's value to its recipient within wtx's scope.
// The staking contract is credited directly: unlike a basic or contract
// account it has no CONTRACT_CREATION path, so its kind is never checked
// against the transaction's declared recipient kind.
func CommitIncoming(wtx *WriteTransaction, tx *transaction.Transaction, height, timestamp uint64) ([]byte, error) {
	acc, err := wtx.GetAccount(tx.Recipient())
	if err != nil {
		return nil, err
	}
	if acc.Kind != transaction.KindStaking {
		if acc.Kind != tx.RecipientType() {
			return nil, newAccountError("kind_mismatch", ErrAccountKindMismatch)
		}
	}
	newBalance, overflow := new(uint256.Int).AddOverflow(acc.Balance, tx.Value())
	if overflow {
		return nil, newAccountError("overflow", ErrInsufficientBalance)
	}
	acc.Balance = newBalance
	if err := wtx.PutAccount(tx.Recipient(), acc); err != nil {
		return nil, err
	}
	return encodeReceipt(height, timestamp, acc.Balance.Bytes())
}

// CommitOutgoing debits tx's value and fee from its sender within wtx's
// scope, failing if the sender is the wrong kind or can't afford it. A
// sender with no account is read as a fresh zero-balance basic account,
// so it fails the balance check unless the transaction costs nothing.
func CommitOutgoing(wtx *WriteTransaction, tx *transaction.Transaction, height, timestamp uint64) ([]byte, error) {
	acc, err := wtx.GetAccount(tx.Sender())
	if err != nil {
		return nil, err
	}
	if acc.Kind != tx.SenderType() {
		return nil, newAccountError("kind_mismatch", ErrAccountKindMismatch)
	}
	cost, overflow := new(uint256.Int).AddOverflow(tx.Value(), tx.Fee())
	if overflow {
		return nil, newAccountError("overflow", ErrInsufficientBalance)
	}
	if acc.Balance.Cmp(cost) < 0 {
		return nil, newAccountError("insufficient_balance", ErrInsufficientBalance)
	}
	acc.Balance = new(uint256.Int).Sub(acc.Balance, cost)
	if err := wtx.PutAccount(tx.Sender(), acc); err != nil {
		return nil, err
	}
	return encodeReceipt(height, timestamp, acc.Balance.Bytes())
}

// RevertOutgoing credits tx's value and fee back to its sender within
// wtx's scope, undoing a prior CommitOutgoing. Block assembly uses this
// to back out the staking contract's outgoing side when applying its
// incoming side then fails.
func RevertOutgoing(wtx *WriteTransaction, tx *transaction.Transaction, height, timestamp uint64) ([]byte, error) {
	acc, err := wtx.GetAccount(tx.Sender())
	if err != nil {
		return nil, err
	}
	cost, overflow := new(uint256.Int).AddOverflow(tx.Value(), tx.Fee())
	if overflow {
		return nil, newAccountError("overflow", ErrInsufficientBalance)
	}
	acc.Balance = new(uint256.Int).Add(acc.Balance, cost)
	if err := wtx.PutAccount(tx.Sender(), acc); err != nil {
		return nil, err
	}
	return encodeReceipt(height, timestamp, acc.Balance.Bytes())
}
