package flowstream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/im7mortal/kmutex"
	"github.com/juju/clock"

	"github.com/xraph/flowstream/id"
	"github.com/xraph/flowstream/plugin"
	"github.com/xraph/flowstream/store"
	"github.com/xraph/flowstream/stream"
	"github.com/xraph/flowstream/types"
	"github.com/xraph/flowstream/vault"
)

// Ledger is the stream-payment engine. It opens streams against escrowed
// deposits, computes time-proportional accrual on demand, and settles
// withdrawals and cancellations through the configured Vault.
//
// All accrual math runs at query time from the injected clock; there are no
// background workers advancing stream state.
type Ledger struct {
	store   store.Store
	vault   vault.Vault
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   clock.Clock

	// Per-stream locks serialize Withdraw and Cancel so the
	// read-compute-write cycle on a stream record stays atomic.
	locks *kmutex.Kmutex
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:   s,
		vault:   vault.Unbounded(),
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		clock:   clock.WallClock,
		locks:   kmutex.New(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithClock sets the time source. Tests inject a testclock to drive accrual
// deterministically.
func WithClock(c clock.Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// WithVault sets the escrow vault.
func WithVault(v vault.Vault) Option {
	return func(l *Ledger) {
		l.vault = v
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("flowstream ledger started",
		"plugins", l.plugins.Count(),
	)

	return nil
}

// Stop shuts down the Ledger.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())
	return l.store.Close()
}

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Clock returns the ledger's time source.
func (l *Ledger) Clock() clock.Clock { return l.clock }

// ──────────────────────────────────────────────────
// Stream Lifecycle
// ──────────────────────────────────────────────────

// StreamRequest carries the parameters for opening a new payment stream.
type StreamRequest struct {
	Sender    types.Address
	Recipient types.Address
	Deposit   types.Amount
	Duration  time.Duration
	Metadata  string
}

func (r StreamRequest) validate() error {
	switch {
	case r.Sender.IsZero():
		return fmt.Errorf("%w: sender is required", ErrInvalidTerms)
	case r.Recipient.IsZero():
		return fmt.Errorf("%w: recipient is required", ErrInvalidTerms)
	case r.Sender.Equal(r.Recipient):
		return fmt.Errorf("%w: sender and recipient must differ", ErrInvalidTerms)
	case !r.Deposit.IsPositive():
		return fmt.Errorf("%w: deposit must be positive", ErrInvalidTerms)
	case r.Duration < time.Second:
		return fmt.Errorf("%w: duration must be at least one second", ErrInvalidTerms)
	}
	return nil
}

// CreateStream escrows the deposit and opens a stream from sender to
// recipient over the given duration.
//
// The flow rate is the deposit divided by the duration in whole seconds,
// truncated. The truncation remainder stays escrowed and returns to the
// sender on cancellation.
func (l *Ledger) CreateStream(ctx context.Context, req StreamRequest) (*stream.Stream, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	if err := l.vault.Escrow(ctx, req.Sender, req.Deposit); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientAuthorization, err)
	}

	now := l.clock.Now()
	seconds := int64(req.Duration / time.Second)

	st := &stream.Stream{
		Entity:    types.NewEntityAt(now),
		ID:        id.NewStreamID(),
		Sender:    req.Sender,
		Recipient: req.Recipient,
		Deposit:   req.Deposit,
		FlowRate:  req.Deposit.Divide(seconds),
		StartTime: now,
		StopTime:  now.Add(time.Duration(seconds) * time.Second),
		Withdrawn: types.Zero(req.Deposit.Token),
		Active:    true,
		Metadata:  req.Metadata,
	}

	if err := l.store.CreateStream(ctx, st); err != nil {
		// Deposit is already escrowed; hand it back before failing.
		if rerr := l.vault.Release(ctx, req.Sender, req.Deposit); rerr != nil {
			l.logger.Error("failed to return escrow after create failure",
				"stream_id", st.ID,
				"error", rerr,
			)
		}
		return nil, err
	}

	l.logger.Info("stream created",
		"stream_id", st.ID,
		"sender", st.Sender,
		"recipient", st.Recipient,
		"deposit", st.Deposit,
		"flow_rate", st.FlowRate,
		"stop_time", st.StopTime,
	)

	l.plugins.EmitStreamCreated(ctx, st)
	return st, nil
}

// GetStream retrieves a stream by ID.
func (l *Ledger) GetStream(ctx context.Context, streamID id.StreamID) (*stream.Stream, error) {
	return l.store.GetStream(ctx, streamID)
}

// ListStreamsFor lists streams involving the given identity.
func (l *Ledger) ListStreamsFor(ctx context.Context, identity types.Address, opts stream.ListOpts) ([]*stream.Stream, error) {
	return l.store.ListStreams(ctx, identity, opts)
}

// ClaimableBalance returns the value accrued to the recipient but not yet
// withdrawn, as of the ledger clock.
func (l *Ledger) ClaimableBalance(ctx context.Context, streamID id.StreamID) (types.Amount, error) {
	st, err := l.store.GetStream(ctx, streamID)
	if err != nil {
		return types.Amount{}, err
	}

	return st.ClaimableAt(l.clock.Now()), nil
}

// IsStreamActive reports the stream's stored active flag. The flag tracks
// cancellation only: a stream past its stop time that was never cancelled
// still reports true. Compare the clock against StopTime to ask whether
// value is still accruing.
func (l *Ledger) IsStreamActive(ctx context.Context, streamID id.StreamID) (bool, error) {
	st, err := l.store.GetStream(ctx, streamID)
	if err != nil {
		return false, err
	}

	return st.Active, nil
}

// Withdraw pays the full claimable balance out to the recipient. Only the
// recipient may withdraw. A zero claimable balance is not an error; the
// call is a no-op returning a zero amount.
func (l *Ledger) Withdraw(ctx context.Context, streamID id.StreamID, caller types.Address) (types.Amount, error) {
	l.locks.Lock(streamID.String())
	defer l.locks.Unlock(streamID.String())

	st, err := l.store.GetStream(ctx, streamID)
	if err != nil {
		return types.Amount{}, err
	}

	if !st.Recipient.Equal(caller) {
		return types.Amount{}, fmt.Errorf("%w: only the recipient may withdraw", ErrUnauthorized)
	}

	claimable := st.ClaimableAt(l.clock.Now())
	if claimable.IsZero() {
		return types.Zero(st.Token()), nil
	}

	// Persist before releasing: a failed update leaves the accrual
	// claimable, while a payout without a matching record would be paid
	// again on retry.
	prev := st.Clone()
	st.Withdrawn = st.Withdrawn.Add(claimable)
	st.TouchAt(l.clock.Now())

	if err := l.store.UpdateStream(ctx, st); err != nil {
		return types.Amount{}, err
	}

	if err := l.vault.Release(ctx, st.Recipient, claimable); err != nil {
		// Roll the record back so the accrual stays claimable.
		if rerr := l.store.UpdateStream(ctx, prev); rerr != nil {
			l.logger.Error("failed to revert withdrawal after release failure",
				"stream_id", st.ID,
				"amount", claimable,
				"error", rerr,
			)
		}
		return types.Amount{}, fmt.Errorf("%w: %v", ErrEscrowUnderflow, err)
	}

	l.logger.Info("stream withdrawal",
		"stream_id", st.ID,
		"recipient", st.Recipient,
		"amount", claimable,
		"total_withdrawn", st.Withdrawn,
	)

	l.plugins.EmitStreamWithdrawn(ctx, st, claimable)
	return claimable, nil
}

// Cancel terminates a stream. Either party may cancel. The accrued balance
// as of now settles to the recipient; everything else (the unstreamed
// deposit plus the flow-rate truncation remainder) refunds to the sender.
// Cancelling an already-cancelled stream fails with ErrStreamCancelled.
func (l *Ledger) Cancel(ctx context.Context, streamID id.StreamID, caller types.Address) (refund, settlement types.Amount, err error) {
	l.locks.Lock(streamID.String())
	defer l.locks.Unlock(streamID.String())

	st, err := l.store.GetStream(ctx, streamID)
	if err != nil {
		return types.Amount{}, types.Amount{}, err
	}

	if !st.Sender.Equal(caller) && !st.Recipient.Equal(caller) {
		return types.Amount{}, types.Amount{}, fmt.Errorf("%w: only a stream party may cancel", ErrUnauthorized)
	}

	if !st.Active {
		return types.Amount{}, types.Amount{}, ErrStreamCancelled
	}

	now := l.clock.Now()
	streamed := st.StreamedAt(now)
	settlement = streamed.Subtract(st.Withdrawn)
	refund = st.Deposit.Subtract(streamed)

	// Persist before releasing: a failed update leaves the stream active
	// and cancellable again, while payouts without a matching record would
	// be paid again on retry.
	prev := st.Clone()
	st.Withdrawn = streamed
	st.Active = false
	st.CancelledAt = &now
	st.TouchAt(now)

	if err := l.store.UpdateStream(ctx, st); err != nil {
		return types.Amount{}, types.Amount{}, err
	}

	if settlement.IsPositive() {
		if err := l.vault.Release(ctx, st.Recipient, settlement); err != nil {
			// Nothing has been paid out yet; roll the record back so the
			// stream stays active and cancellation can be retried.
			if rerr := l.store.UpdateStream(ctx, prev); rerr != nil {
				l.logger.Error("failed to revert cancellation after release failure",
					"stream_id", st.ID,
					"settlement", settlement,
					"error", rerr,
				)
			}
			return types.Amount{}, types.Amount{}, fmt.Errorf("%w: %v", ErrEscrowUnderflow, err)
		}
	}
	if refund.IsPositive() {
		if err := l.vault.Release(ctx, st.Sender, refund); err != nil {
			// The settlement is already paid, so the record must stay
			// cancelled; surface the stuck refund instead of re-settling.
			l.logger.Error("refund release failed after settlement",
				"stream_id", st.ID,
				"refund", refund,
				"error", err,
			)
			return types.Amount{}, types.Amount{}, fmt.Errorf("%w: %v", ErrEscrowUnderflow, err)
		}
	}

	l.logger.Info("stream cancelled",
		"stream_id", st.ID,
		"caller", caller,
		"settlement", settlement,
		"refund", refund,
	)

	l.plugins.EmitStreamCanceled(ctx, st, refund, settlement)
	return refund, settlement, nil
}
