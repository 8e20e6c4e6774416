package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/flowstream/types"
)

// Memory is an in-process token vault. It keeps per-token balances and
// allowances and a single escrow pool, mirroring the approve/transferFrom
// discipline of ERC20-style tokens: an account must both hold and authorize
// value before the ledger may escrow it.
type Memory struct {
	mu         sync.Mutex
	balances   map[string]map[types.Address]int64 // token -> account -> units
	allowances map[string]map[types.Address]int64 // token -> account -> authorized units
	escrowed   map[string]int64                   // token -> units held in the pool
}

// NewMemory creates an empty in-memory vault.
func NewMemory() *Memory {
	return &Memory{
		balances:   make(map[string]map[types.Address]int64),
		allowances: make(map[string]map[types.Address]int64),
		escrowed:   make(map[string]int64),
	}
}

// Mint credits the account with amount out of thin air. Test and bootstrap
// helper; real substrates acquire balances elsewhere.
func (m *Memory) Mint(account types.Address, amount types.Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bucket(m.balances, amount.Token)[account.Normalize()] += amount.Units
}

// Approve authorizes the vault to escrow up to amount from the account.
// Replaces any prior allowance for the token, it does not accumulate.
func (m *Memory) Approve(account types.Address, amount types.Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bucket(m.allowances, amount.Token)[account.Normalize()] = amount.Units
}

// BalanceOf returns the account's free (non-escrowed) balance in the token.
func (m *Memory) BalanceOf(account types.Address, token string) types.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()

	return types.NewUnits(token, m.bucket(m.balances, token)[account.Normalize()])
}

// AllowanceOf returns the remaining escrow authorization for the account.
func (m *Memory) AllowanceOf(account types.Address, token string) types.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()

	return types.NewUnits(token, m.bucket(m.allowances, token)[account.Normalize()])
}

// Escrowed returns the total units held in the escrow pool for the token.
func (m *Memory) Escrowed(token string) types.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()

	return types.NewUnits(token, m.escrowed[token])
}

// Escrow implements Vault. The allowance is consumed as it is used.
func (m *Memory) Escrow(_ context.Context, from types.Address, amount types.Amount) error {
	if !amount.IsPositive() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := from.Normalize()

	allowance := m.bucket(m.allowances, amount.Token)
	if allowance[key] < amount.Units {
		return fmt.Errorf("%w: %s authorized %d, need %d %s",
			ErrInsufficientAllowance, from, allowance[key], amount.Units, amount.Token)
	}

	balance := m.bucket(m.balances, amount.Token)
	if balance[key] < amount.Units {
		return fmt.Errorf("%w: %s holds %d, need %d %s",
			ErrInsufficientBalance, from, balance[key], amount.Units, amount.Token)
	}

	allowance[key] -= amount.Units
	balance[key] -= amount.Units
	m.escrowed[amount.Token] += amount.Units

	return nil
}

// Release implements Vault.
func (m *Memory) Release(_ context.Context, to types.Address, amount types.Amount) error {
	if !amount.IsPositive() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.escrowed[amount.Token] < amount.Units {
		return fmt.Errorf("%w: pool holds %d, releasing %d %s",
			ErrUnderflow, m.escrowed[amount.Token], amount.Units, amount.Token)
	}

	m.escrowed[amount.Token] -= amount.Units
	m.bucket(m.balances, amount.Token)[to.Normalize()] += amount.Units

	return nil
}

func (m *Memory) bucket(table map[string]map[types.Address]int64, token string) map[types.Address]int64 {
	b, ok := table[token]
	if !ok {
		b = make(map[types.Address]int64)
		table[token] = b
	}

	return b
}
