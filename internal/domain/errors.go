package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnknownAsset asset is not listed on the market.
	ErrUnknownAsset = errors.New("unknown asset")
	// ErrBorrowNotAllowed asset cannot be borrowed on this market.
	ErrBorrowNotAllowed = errors.New("asset cannot be borrowed on this market")
)

// InvariantError is the panic payload for programming errors such as reading
// the single selected entry when the selection is not single.
type InvariantError struct {
	Op     string
	Reason string
}

func (e InvariantError) Error() string {
	return fmt.Sprintf("invariant violated in %s: %s", e.Op, e.Reason)
}
