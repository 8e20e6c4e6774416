package flowstream

import "github.com/xraph/flowstream/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Address is re-exported from types package.
type Address = types.Address

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Amount constructors
var (
	MNEE     = types.MNEE
	USDC     = types.USDC
	USDT     = types.USDT
	DAI      = types.DAI
	WETH     = types.WETH
	NewUnits = types.NewUnits
	Zero     = types.Zero
	Sum      = types.Sum
)

// Re-export parsers and entity constructor
var (
	ParseDecimal     = types.ParseDecimal
	NormalizeAddress = types.NormalizeAddress
	NewEntity        = types.NewEntity
)
