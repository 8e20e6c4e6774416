// Package stream defines the payment stream record and its accrual math.
//
// A stream authorizes a continuous, time-proportional transfer of escrowed
// value from a sender to a recipient. Accrual is computed on demand from
// wall-clock seconds; nothing is pre-materialized.
package stream

import (
	"time"

	"github.com/xraph/flowstream/id"
	"github.com/xraph/flowstream/types"
)

// Stream is the unit of continuous payment.
//
// Sender, Recipient, Deposit, FlowRate, StartTime and StopTime never change
// after creation. Withdrawn is monotonically non-decreasing. Active is set
// false exactly once, by cancellation; natural expiry does NOT flip it.
// Callers needing "still streaming funds" semantics must also check that the
// current time is before StopTime.
type Stream struct {
	types.Entity
	ID          id.StreamID   `json:"id"`
	Sender      types.Address `json:"sender"`
	Recipient   types.Address `json:"recipient"`
	Deposit     types.Amount  `json:"deposit"`   // escrowed total, fixed at creation
	FlowRate    types.Amount  `json:"flow_rate"` // units per second, truncating division
	StartTime   time.Time     `json:"start_time"`
	StopTime    time.Time     `json:"stop_time"`
	Withdrawn   types.Amount  `json:"withdrawn"`
	Active      bool          `json:"active"`
	CancelledAt *time.Time    `json:"cancelled_at,omitempty"`
	Metadata    string        `json:"metadata,omitempty"`
}

// Token returns the token symbol the stream is denominated in.
func (s *Stream) Token() string { return s.Deposit.Token }

// Duration returns the funded streaming window.
func (s *Stream) Duration() time.Duration {
	return s.StopTime.Sub(s.StartTime)
}

// DurationSeconds returns the funded streaming window in whole seconds.
func (s *Stream) DurationSeconds() int64 {
	return s.StopTime.Unix() - s.StartTime.Unix()
}

// Expired reports whether the stream is past its stop time. Independent of
// Active: an expired stream that was never cancelled still reports Active.
func (s *Stream) Expired(now time.Time) bool {
	return !now.Before(s.StopTime)
}

// effectiveTime clamps accrual time to the streaming window. For a
// cancelled stream the accrual clock froze at the cancellation snapshot, so
// claimable amounts are stable afterwards.
func (s *Stream) effectiveTime(now time.Time) time.Time {
	if s.CancelledAt != nil && s.CancelledAt.Before(now) {
		now = *s.CancelledAt
	}
	if now.After(s.StopTime) {
		return s.StopTime
	}
	return now
}

// StreamedAt returns the total value accrued to the recipient at the given
// time: elapsed whole seconds times the flow rate, capped at the deposit.
// The flow rate truncates, so accrual undercounts the deposit by the
// division remainder; that remainder goes back to the sender on
// cancellation, or stays unclaimed at natural expiry.
func (s *Stream) StreamedAt(now time.Time) types.Amount {
	elapsed := s.effectiveTime(now).Unix() - s.StartTime.Unix()
	if elapsed < 0 {
		elapsed = 0
	}
	return s.FlowRate.Multiply(elapsed).Min(s.Deposit)
}

// ClaimableAt returns the value accrued but not yet withdrawn at the given
// time. Zero for cancelled streams (cancellation settles the accrued
// balance and freezes withdrawals).
func (s *Stream) ClaimableAt(now time.Time) types.Amount {
	streamed := s.StreamedAt(now)
	if streamed.GreaterThan(s.Withdrawn) {
		return streamed.Subtract(s.Withdrawn)
	}
	return types.Zero(s.Token())
}

// Remainder returns the truncation residue of the flow-rate division:
// deposit minus flowRate*duration. Always owed to the sender.
func (s *Stream) Remainder() types.Amount {
	return s.Deposit.Subtract(s.FlowRate.Multiply(s.DurationSeconds()))
}

// Role selects which side of a stream an identity query matches.
type Role string

const (
	RoleAny       Role = ""
	RoleSender    Role = "sender"
	RoleRecipient Role = "recipient"
)

// ListOpts are filter options for listing streams.
type ListOpts struct {
	Role       Role
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Matches reports whether the stream involves the given identity in the
// requested role. Used by stores to answer ListStreams queries.
func (s *Stream) Matches(identity types.Address, opts ListOpts) bool {
	switch opts.Role {
	case RoleSender:
		if !s.Sender.Equal(identity) {
			return false
		}
	case RoleRecipient:
		if !s.Recipient.Equal(identity) {
			return false
		}
	default:
		if !s.Sender.Equal(identity) && !s.Recipient.Equal(identity) {
			return false
		}
	}
	if opts.ActiveOnly && !s.Active {
		return false
	}
	return true
}

// Clone returns a deep copy of the stream record.
func (s *Stream) Clone() *Stream {
	c := *s
	if s.CancelledAt != nil {
		t := *s.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}
