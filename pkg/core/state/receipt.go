package state

import (
	"bytes"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pierrec/lz4"
)

// receipt is the small audit record every successful account operation
// produces: the height/timestamp it was applied at and the resulting
// balance. It's compressed before being handed back, since receipts are
// generated in bulk during reconciliation's per-sender replay and mostly
// never looked at.
type receipt struct {
	Height      uint64
	Timestamp   uint64
	BalanceByte []byte
}

func encodeReceipt(height, timestamp uint64, balance []byte) ([]byte, error) {
	raw, err := rlp.EncodeToBytes(&receipt{Height: height, Timestamp: timestamp, BalanceByte: balance})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeReceipt reverses encodeReceipt, for callers that want to inspect
// the audit trail of an applied operation.
func DecodeReceipt(b []byte) (height, timestamp uint64, balance []byte, err error) {
	r := lz4.NewReader(bytes.NewReader(b))
	var buf bytes.Buffer
	if _, err = buf.ReadFrom(r); err != nil {
		return
	}
	var rec receipt
	if err = rlp.DecodeBytes(buf.Bytes(), &rec); err != nil {
		return
	}
	return rec.Height, rec.Timestamp, rec.BalanceByte, nil
}
