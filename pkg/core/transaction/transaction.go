// Package transaction defines the wire-level transaction the mempool
// stores: an immutable, content-addressed value with a sender, a
// recipient, a fee, a validity window and a contract-creation flag.
package transaction

import (
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stratachain/strata/pkg/crypto/hash"
)

// AccountKind distinguishes the handful of account shapes the chain knows
// about. The staking contract is singled out because, uniquely, whether a
// transaction to it is valid depends on the recipient's state.
type AccountKind uint8

const (
	// KindBasic is a plain externally-owned account.
	KindBasic AccountKind = iota
	// KindContract is a deployed smart contract account.
	KindContract
	// KindStaking is the one distinguished staking-contract account.
	KindStaking
)

func (k AccountKind) String() string {
	switch k {
	case KindBasic:
		return "basic"
	case KindContract:
		return "contract"
	case KindStaking:
		return "staking"
	default:
		return "unknown"
	}
}

// MinSize is the smallest possible serialized transaction: below this, no
// transaction (however small its payload) can fit a remaining block
// budget, so block assembly can stop scanning once free space drops below it.
const MinSize = 64

// Flag bits carried on Transaction.Flags.
const (
	// FlagContractCreation marks a transaction whose recipient does not
	// exist yet and must be created as a contract account on admission.
	FlagContractCreation uint8 = 1 << iota
)

// Transaction is an immutable, signed transfer from Sender to Recipient.
// Once constructed and hashed, none of its fields may change; the mempool
// relies on this to share one handle across its four indexes.
type Transaction struct {
	SenderAddr    common.Address
	RecipientAddr common.Address
	SenderKind    AccountKind
	RecipientKind AccountKind
	TxValue       *uint256.Int
	TxFee         *uint256.Int
	Data          []byte
	ValidFrom     uint64
	ValidUntil    uint64
	Flags         uint8
	NetworkID     uint64
	Sig           Signature

	hash atomic.Value // common.Hash
	size atomic.Value // int
}

// Signature is a recoverable secp256k1 signature over a transaction's
// hashable fields.
type Signature struct {
	R, S *big.Int
	V    byte
}

// rlpTransaction is the on-the-wire shape. It carries no sender field:
// the sender is recoverable from the signature, which is how VerifyMut
// checks it, as Ethereum-style transactions do.
type rlpTransaction struct {
	Recipient     common.Address
	SenderKind    uint8
	RecipientKind uint8
	Value         []byte
	Fee           []byte
	Data          []byte
	ValidFrom     uint64
	ValidUntil    uint64
	Flags         uint8
	NetworkID     uint64
	R, S          *big.Int
	V             uint8
}

// New builds an unsigned transaction ready for a caller to sign with Sign.
func New(sender, recipient common.Address, senderKind, recipientKind AccountKind, value, fee *uint256.Int, validFrom, validUntil uint64, networkID uint64) *Transaction {
	return &Transaction{
		SenderAddr:    sender,
		RecipientAddr: recipient,
		SenderKind:    senderKind,
		RecipientKind: recipientKind,
		TxValue:       value,
		TxFee:         fee,
		ValidFrom:     validFrom,
		ValidUntil:    validUntil,
		NetworkID:     networkID,
	}
}

// Sender returns the paying account's address.
func (t *Transaction) Sender() common.Address { return t.SenderAddr }

// Recipient returns the receiving account's address.
func (t *Transaction) Recipient() common.Address { return t.RecipientAddr }

// SenderType returns the sender's expected account kind.
func (t *Transaction) SenderType() AccountKind { return t.SenderKind }

// RecipientType returns the recipient's expected account kind.
func (t *Transaction) RecipientType() AccountKind { return t.RecipientKind }

// Value returns the amount transferred from sender to recipient.
func (t *Transaction) Value() *uint256.Int { return t.TxValue }

// Fee returns the fee paid to the block producer.
func (t *Transaction) Fee() *uint256.Int { return t.TxFee }

// IsContractCreation reports whether FlagContractCreation is set.
func (t *Transaction) IsContractCreation() bool {
	return t.Flags&FlagContractCreation != 0
}

// SerializedSize returns the transaction's wire size in bytes, computed
// once and cached.
func (t *Transaction) SerializedSize() int {
	if v := t.size.Load(); v != nil {
		return v.(int)
	}
	b, err := t.Bytes()
	n := MinSize
	if err == nil {
		n = len(b)
	}
	t.size.Store(n)
	return n
}

// FeePerByte returns fee divided by serialized size, the priority metric
// used for threshold checks (e.g. against TRANSACTION_RELAY_FEE_MIN).
// Ordering decisions should prefer Compare, which avoids the rounding
// this division introduces.
func (t *Transaction) FeePerByte() float64 {
	sz := t.SerializedSize()
	if sz == 0 {
		return 0
	}
	feeF := new(big.Float).SetInt(t.TxFee.ToBig())
	return mustFloat64(new(big.Float).Quo(feeF, big.NewFloat(float64(sz))))
}

func mustFloat64(f *big.Float) float64 {
	v, _ := f.Float64()
	return v
}

// IsValidAt reports whether the transaction may be included at block
// height h.
func (t *Transaction) IsValidAt(h uint64) bool {
	return h >= t.ValidFrom && h <= t.ValidUntil
}

// Hash returns the transaction's fingerprint, computed once and cached.
// It is the content address used as the mempool key in every index.
func (t *Transaction) Hash() common.Hash {
	if v := t.hash.Load(); v != nil {
		return v.(common.Hash)
	}
	b, err := t.hashableBytes()
	if err != nil {
		panic(errors.Wrap(err, "encoding transaction for hashing"))
	}
	h := hash.Keccak256(b)
	t.hash.Store(h)
	return h
}

// String renders the fingerprint as base58, the convention used for
// human-facing hash/address display.
func (t *Transaction) String() string {
	h := t.Hash()
	return base58.Encode(h[:])
}

func (t *Transaction) hashableBytes() ([]byte, error) {
	aux := rlpTransaction{
		Recipient:     t.RecipientAddr,
		SenderKind:    uint8(t.SenderKind),
		RecipientKind: uint8(t.RecipientKind),
		Value:         t.TxValue.Bytes(),
		Fee:           t.TxFee.Bytes(),
		Data:          t.Data,
		ValidFrom:     t.ValidFrom,
		ValidUntil:    t.ValidUntil,
		Flags:         t.Flags,
		NetworkID:     t.NetworkID,
	}
	return rlp.EncodeToBytes(&aux)
}

// Bytes returns the full wire encoding, including the signature.
func (t *Transaction) Bytes() ([]byte, error) {
	aux := rlpTransaction{
		Recipient:     t.RecipientAddr,
		SenderKind:    uint8(t.SenderKind),
		RecipientKind: uint8(t.RecipientKind),
		Value:         t.TxValue.Bytes(),
		Fee:           t.TxFee.Bytes(),
		Data:          t.Data,
		ValidFrom:     t.ValidFrom,
		ValidUntil:    t.ValidUntil,
		Flags:         t.Flags,
		NetworkID:     t.NetworkID,
		R:             t.Sig.R,
		S:             t.Sig.S,
		V:             t.Sig.V,
	}
	return rlp.EncodeToBytes(&aux)
}

// Compare implements a total fee ordering: fee-per-byte ascending, ties
// broken by the transaction's own hash so the order is total and agreed
// across replicas. It cross-multiplies rather than dividing, so it never
// disagrees with FeePerByte's rounding.
func Compare(a, b *Transaction) int {
	lhs := new(big.Int).Mul(a.TxFee.ToBig(), big.NewInt(int64(b.SerializedSize())))
	rhs := new(big.Int).Mul(b.TxFee.ToBig(), big.NewInt(int64(a.SerializedSize())))
	if c := lhs.Cmp(rhs); c != 0 {
		return c
	}
	ah, bh := a.Hash(), b.Hash()
	return ah.Big().Cmp(bh.Big())
}

// Less reports whether a sorts strictly before b under Compare.
func Less(a, b *Transaction) bool {
	return Compare(a, b) < 0
}
