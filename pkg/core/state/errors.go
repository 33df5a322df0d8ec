package state

import "github.com/pkg/errors"

// AccountError is the typed failure every account operation
// (Create/CommitIncoming/CommitOutgoing/RevertOutgoing) returns instead
// of a bare error, so callers can distinguish "this transaction can never
// apply" categories without string-matching.
type AccountError struct {
	Code string
	Err  error
}

func (e *AccountError) Error() string { return e.Err.Error() }

// Unwrap lets errors.Is/errors.As see through to the underlying cause.
func (e *AccountError) Unwrap() error { return e.Err }

func newAccountError(code string, err error) *AccountError {
	return &AccountError{Code: code, Err: err}
}

// Sentinel causes wrapped by AccountError.
var (
	ErrAccountNotFound     = errors.New("sender account does not exist")
	ErrAccountKindMismatch = errors.New("account kind does not match transaction's declared kind")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadyExists       = errors.New("account already exists")
)
