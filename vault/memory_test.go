package vault

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/flowstream/types"
)

func TestEscrowRequiresAllowanceAndBalance(t *testing.T) {
	ctx := context.Background()
	alice := types.Address("0xalice")

	tests := []struct {
		name    string
		mint    int64
		approve int64
		escrow  int64
		wantErr error
	}{
		{"funded and authorized", 1000, 1000, 500, nil},
		{"no allowance", 1000, 0, 500, ErrInsufficientAllowance},
		{"allowance too small", 1000, 400, 500, ErrInsufficientAllowance},
		{"authorized but broke", 100, 1000, 500, ErrInsufficientBalance},
		{"zero escrow is a no-op", 0, 0, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewMemory()
			v.Mint(alice, types.USDC(tt.mint))
			v.Approve(alice, types.USDC(tt.approve))

			err := v.Escrow(ctx, alice, types.USDC(tt.escrow))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEscrowConsumesAllowance(t *testing.T) {
	ctx := context.Background()
	alice := types.Address("0xalice")

	v := NewMemory()
	v.Mint(alice, types.USDC(1000))
	v.Approve(alice, types.USDC(600))

	if err := v.Escrow(ctx, alice, types.USDC(400)); err != nil {
		t.Fatalf("first escrow: %v", err)
	}
	if got := v.AllowanceOf(alice, "usdc"); !got.Equal(types.USDC(200)) {
		t.Errorf("allowance after escrow: got %v, want 200", got)
	}

	// Second escrow exceeds the remaining allowance even though the balance
	// could cover it.
	err := v.Escrow(ctx, alice, types.USDC(300))
	if !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("got %v, want ErrInsufficientAllowance", err)
	}
}

func TestApproveReplaces(t *testing.T) {
	alice := types.Address("0xalice")

	v := NewMemory()
	v.Approve(alice, types.USDC(100))
	v.Approve(alice, types.USDC(50))

	if got := v.AllowanceOf(alice, "usdc"); !got.Equal(types.USDC(50)) {
		t.Errorf("allowance: got %v, want 50 (approve must replace, not accumulate)", got)
	}
}

func TestReleaseConservation(t *testing.T) {
	ctx := context.Background()
	alice := types.Address("0xalice")
	bob := types.Address("0xbob")

	v := NewMemory()
	v.Mint(alice, types.USDC(1000))
	v.Approve(alice, types.USDC(1000))

	if err := v.Escrow(ctx, alice, types.USDC(1000)); err != nil {
		t.Fatal(err)
	}
	if err := v.Release(ctx, bob, types.USDC(600)); err != nil {
		t.Fatal(err)
	}
	if err := v.Release(ctx, alice, types.USDC(400)); err != nil {
		t.Fatal(err)
	}

	// Every unit is accounted for: pool drained, value split between parties.
	if got := v.Escrowed("usdc"); !got.IsZero() {
		t.Errorf("pool not drained: %v", got)
	}
	if got := v.BalanceOf(bob, "usdc"); !got.Equal(types.USDC(600)) {
		t.Errorf("bob balance: got %v, want 600", got)
	}
	if got := v.BalanceOf(alice, "usdc"); !got.Equal(types.USDC(400)) {
		t.Errorf("alice balance: got %v, want 400", got)
	}
}

func TestReleaseUnderflow(t *testing.T) {
	ctx := context.Background()
	bob := types.Address("0xbob")

	v := NewMemory()
	err := v.Release(ctx, bob, types.USDC(1))
	if !errors.Is(err, ErrUnderflow) {
		t.Fatalf("got %v, want ErrUnderflow", err)
	}
}

func TestTokensAreIsolated(t *testing.T) {
	ctx := context.Background()
	alice := types.Address("0xalice")

	v := NewMemory()
	v.Mint(alice, types.USDC(1000))
	v.Approve(alice, types.USDC(1000))

	// MNEE was never minted or approved.
	err := v.Escrow(ctx, alice, types.MNEE(1))
	if !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("got %v, want ErrInsufficientAllowance", err)
	}
}

func TestAddressNormalization(t *testing.T) {
	alice := types.Address("0xAlice")

	v := NewMemory()
	v.Mint(alice, types.USDC(100))

	if got := v.BalanceOf("0xalice", "usdc"); !got.Equal(types.USDC(100)) {
		t.Errorf("balance via lowercase address: got %v, want 100", got)
	}
}

func TestUnbounded(t *testing.T) {
	ctx := context.Background()
	v := Unbounded()

	if err := v.Escrow(ctx, "0xanyone", types.USDC(1<<40)); err != nil {
		t.Fatalf("Escrow: %v", err)
	}
	if err := v.Release(ctx, "0xanyone", types.USDC(1<<40)); err != nil {
		t.Fatalf("Release: %v", err)
	}
}
