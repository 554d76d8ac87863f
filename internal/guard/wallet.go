package guard

import (
	"context"
	"math/big"

	"github.com/wizzybrown/Drosera/internal/evm"
)

// RedeemResult reports the underlying assets returned by a pool redemption.
type RedeemResult struct {
	TokenA  evm.Address
	TokenB  evm.Address
	AmountA *big.Int
	AmountB *big.Int
}

// Wallet is the guard's external call surface. A deployment implements it
// against the host ledger; tests use fakes. Both calls in EmergencyWithdraw
// happen before any state is committed, so a failing wallet leaves the
// guard untouched.
type Wallet interface {
	// Transfer moves amount of token from the guard's custody to the
	// recipient.
	Transfer(ctx context.Context, token, to evm.Address, amount *big.Int) error
	// Redeem invokes the pool's redemption and returns the underlying
	// assets received back by the guard.
	Redeem(ctx context.Context, pool evm.Address) (RedeemResult, error)
	// TransferNative moves native currency out of the guard's custody.
	TransferNative(ctx context.Context, to evm.Address, amount *big.Int) error
}
