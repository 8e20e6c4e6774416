// Package flowstream provides a composable stream-payment ledger for Go applications.
//
// FlowStream is designed as a library, not a service. Import it directly into your
// Go application to open funded payment streams that accrue to a recipient over
// time, and to pay for HTTP resources that demand streaming payment. It provides:
//
//   - Time-proportional payment streams with integer per-second flow rates
//   - Escrowed deposits with withdraw and cancel settlement
//   - HTTP 402 payment negotiation for clients (X-Payment-Stream)
//   - Provider middleware that demands and verifies stream payment
//   - Pluggable hooks for audit and metrics
//   - Memory, SQLite, Postgres, and MongoDB stores via Grove
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    "github.com/xraph/flowstream"
//	    "github.com/xraph/flowstream/store/memory"
//	    "github.com/xraph/flowstream/vault"
//	)
//
//	// Initialize store and escrow vault
//	v := vault.NewMemory()
//	l := flowstream.New(memory.New(), flowstream.WithVault(v))
//
//	// Start the ledger (runs store migrations)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Core Concepts
//
// Streams move a deposit from a sender to a recipient at a fixed rate per
// second over a funding window:
//
//	st, err := l.CreateStream(ctx, flowstream.StreamRequest{
//	    Sender:    "0xAlice",
//	    Recipient: "0xBob",
//	    Deposit:   flowstream.USDC(3600),
//	    Duration:  time.Hour,
//	})
//
// The recipient withdraws whatever has streamed so far:
//
//	got, err := l.Withdraw(ctx, st.ID, "0xBob")
//
// Either party cancels; the recipient keeps what streamed, the sender gets
// the rest back:
//
//	refund, settlement, err := l.Cancel(ctx, st.ID, "0xAlice")
//
// Clients negotiate payment for HTTP resources automatically:
//
//	c := negotiator.New(l, "0xAlice")
//	resp, err := c.Get(ctx, "https://api.example.com/data")
//
// # Amounts
//
// All monetary calculations use integer arithmetic to avoid floating-point
// precision issues. The Amount type represents token quantities in the
// smallest unit (6 decimals for USDC/USDT, 18 for most others).
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	strm_01h2xcejqtf2nbrexx3vqjhp41  // Stream ID
//	sess_01h2xcejqtf2nbrexx3vqjhp41  // Negotiation session ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package flowstream
