package transaction

import "github.com/pkg/errors"

// ErrNegativeValue reports a negative value or fee. No function in this
// package currently returns it.
var ErrNegativeValue = errors.New("negative value or fee")
