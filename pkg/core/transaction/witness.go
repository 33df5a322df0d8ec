package transaction

import (
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stratachain/strata/pkg/crypto"
	"github.com/stratachain/strata/pkg/crypto/hash"
)

var _ crypto.Verifiable = (*Transaction)(nil)

// ErrWrongNetwork is returned by VerifyMut when the transaction was built
// for a different network than the one it's being verified against.
var ErrWrongNetwork = errors.New("transaction signed for a different network")

// ErrBadSignature is returned by VerifyMut when the recovered signer does
// not match the declared sender.
var ErrBadSignature = errors.New("signature does not match sender")

// ErrUnsigned is returned by VerifyMut when no signature is present.
var ErrUnsigned = errors.New("transaction has no signature")

// Sign computes the transaction's signature over its hashable fields and
// the given network ID, using priv. It mutates Sig in place.
func (t *Transaction) Sign(priv *btcec.PrivateKey, networkID uint64) error {
	t.NetworkID = networkID
	digest := t.signingDigest()
	sig, err := ecdsa.SignCompact(priv, digest[:], false)
	if err != nil {
		return err
	}
	// sig[0] is the recovery/compact header byte; R and S follow.
	r := new(big.Int).SetBytes(sig[1:33])
	s := new(big.Int).SetBytes(sig[33:65])
	t.Sig = Signature{R: r, S: s, V: sig[0]}
	return nil
}

// signingDigest is the hash actually signed: the hashable fields plus the
// network ID, so a transaction signed for one network can never verify on
// another.
func (t *Transaction) signingDigest() common.Hash {
	return t.Hash()
}

// VerifyMut performs intrinsic verification: it recovers the signer from
// the signature and checks it against the declared sender and network.
// This is the only cryptographic check the mempool performs; once a
// transaction is admitted, re-evaluation after blockchain events relies
// solely on account-state simulation, never on re-verifying signatures.
func (t *Transaction) VerifyMut(networkID uint64) error {
	if t.NetworkID != networkID {
		return ErrWrongNetwork
	}
	if t.Sig.R == nil || t.Sig.S == nil {
		return ErrUnsigned
	}
	compact := make([]byte, 65)
	compact[0] = t.Sig.V
	rb := t.Sig.R.Bytes()
	sb := t.Sig.S.Bytes()
	copy(compact[1+32-len(rb):33], rb)
	copy(compact[33+32-len(sb):65], sb)

	digest := t.signingDigest()
	pub, _, err := ecdsa.RecoverCompact(compact, digest[:])
	if err != nil {
		return errors.Wrap(err, "recovering signer")
	}
	addr := hash.Hash160(pub.SerializeUncompressed())
	if addr != t.SenderAddr {
		return ErrBadSignature
	}
	return nil
}
