// Package vault defines the escrow boundary between the stream ledger and
// the settlement substrate that actually holds value.
//
// Wallet and key management, transaction signing and broadcast, and the
// substrate's consensus are all collaborator concerns; the ledger only needs
// the two escrow movements below. The Memory implementation is a full
// in-process token vault for tests, docs, and single-process deployments.
package vault

import (
	"context"
	"errors"

	"github.com/xraph/flowstream/types"
)

// Sentinel errors surfaced by vault implementations.
var (
	ErrInsufficientAllowance = errors.New("vault: insufficient allowance")
	ErrInsufficientBalance   = errors.New("vault: insufficient balance")
	ErrUnderflow             = errors.New("vault: release exceeds escrowed balance")
)

// Vault moves value between accounts and the escrow pool.
type Vault interface {
	// Escrow moves amount from the account into the escrow pool. Fails when
	// the account has not authorized (or does not hold) at least amount.
	Escrow(ctx context.Context, from types.Address, amount types.Amount) error

	// Release moves amount from the escrow pool to the account.
	Release(ctx context.Context, to types.Address, amount types.Amount) error
}

// Unbounded returns a Vault that accepts every movement without
// accounting. Use it when escrow is enforced by an external substrate and
// the ledger only needs the bookkeeping side.
func Unbounded() Vault { return unbounded{} }

type unbounded struct{}

func (unbounded) Escrow(context.Context, types.Address, types.Amount) error  { return nil }
func (unbounded) Release(context.Context, types.Address, types.Amount) error { return nil }
