// Package asset defines the boundary to the fungible asset held in custody by the ledger.
package asset

import (
	"errors"
	"math/big"

	"github.com/flexa/capacity-smart-contracts/types"
)

var (
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInsufficientBalance   = errors.New("insufficient balance")
)

// Transfer moves the asset between participants and the ledger's custody. Implementations must
// either move the full amount or return an error and leave balances untouched.
type Transfer interface {
	// Pull moves amount from the from account into custody.
	Pull(from types.Address, amount *big.Int) error
	// Push moves amount out of custody to the to account.
	Push(to types.Address, amount *big.Int) error
}
