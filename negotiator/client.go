// Package negotiator implements the client side of the payment-required
// handshake.
//
// A Client wraps an HTTP client. When a provider answers 402, the Client
// reads the advertised terms, funds a payment stream through the ledger,
// and retries the original request exactly once with the stream reference
// attached. Later requests to the same host reuse the cached stream without
// touching the ledger, which is the point: many requests, few
// authorizations.
package negotiator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/im7mortal/kmutex"

	"github.com/xraph/flowstream"
	"github.com/xraph/flowstream/types"
)

const (
	// DefaultStreamDuration is the funding window opened per negotiation.
	// Deposit = advertised per-second rate times this duration.
	DefaultStreamDuration = time.Hour

	// DefaultToken is assumed when the provider does not name one.
	DefaultToken = "mnee"
)

// Metrics are the negotiator's monotonic efficiency counters.
// RequestsSent counts caller-initiated requests (a negotiated retry is part
// of the same request). SignersTriggered counts stream creations, the
// costly authorization events. RequestsSent - SignersTriggered is the
// number of requests served by stream reuse.
type Metrics struct {
	RequestsSent     uint64
	SignersTriggered uint64
}

// Client is a payment-negotiating HTTP client. Safe for concurrent use.
type Client struct {
	ledger *flowstream.Ledger
	sender types.Address
	http   *http.Client
	logger *slog.Logger

	duration     time.Duration
	defaultToken string

	sessions *sessionCache

	// Serializes negotiation per target so concurrent first-time requests
	// to one host fund a single stream, not one each.
	locks *kmutex.Kmutex

	requestsSent     atomic.Uint64
	signersTriggered atomic.Uint64
}

// New creates a negotiating client that funds streams from sender through
// the given ledger.
func New(ledger *flowstream.Ledger, sender types.Address, opts ...Option) *Client {
	c := &Client{
		ledger:       ledger,
		sender:       sender,
		http:         http.DefaultClient,
		logger:       slog.Default(),
		duration:     DefaultStreamDuration,
		defaultToken: DefaultToken,
		sessions:     newSessionCache(),
		locks:        kmutex.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithStreamDuration sets the funding window per negotiated stream.
func WithStreamDuration(d time.Duration) Option {
	return func(c *Client) { c.duration = d }
}

// WithDefaultToken sets the token assumed when terms omit one.
func WithDefaultToken(token string) Option {
	return func(c *Client) { c.defaultToken = token }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Metrics returns a snapshot of the efficiency counters.
func (c *Client) Metrics() Metrics {
	return Metrics{
		RequestsSent:     c.requestsSent.Load(),
		SignersTriggered: c.signersTriggered.Load(),
	}
}

// Get issues a GET request through the negotiator.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	return c.Do(req)
}

// Do issues the request, negotiating payment if the provider demands it.
//
// A non-402 response is returned as-is, transport errors propagate
// unchanged. On 402 the client parses the terms, opens a stream, and
// retries exactly once; the retried response is returned verbatim whatever
// its status. Negotiation failures are terminal typed errors and clear any
// cached stream for the target.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.requestsSent.Add(1)

	target := targetKey(req.URL)
	var priorRef string
	if s, ok := c.sessions.get(target); ok {
		priorRef = s.streamID.String()
		req.Header.Set(HeaderStream, priorRef)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusPaymentRequired {
		return resp, nil
	}

	ctx := req.Context()
	terms := resp.Header.Clone()
	drain(resp)

	streamID, err := c.negotiate(ctx, target, terms, priorRef)
	if err != nil {
		c.sessions.clear(target)
		return nil, err
	}

	retry, err := cloneRequest(req)
	if err != nil {
		return nil, err
	}
	retry.Header.Set(HeaderStream, streamID)

	return c.http.Do(retry)
}

// negotiate turns advertised terms into a funded stream bound to the
// target. The per-target lock is held across parse, create, and cache-set
// so a concurrent request either waits and reuses the new stream or wins
// the race itself. priorRef is the stream reference this request carried
// when it drew the 402, empty when it carried none.
func (c *Client) negotiate(ctx context.Context, target string, h http.Header, priorRef string) (string, error) {
	c.locks.Lock(target)
	defer c.locks.Unlock(target)

	// Another request may have finished negotiating while we waited for
	// the lock. Reuse its stream unless it is the one the provider just
	// refused.
	if s, ok := c.sessions.get(target); ok && s.streamID.String() != priorRef {
		return s.streamID.String(), nil
	}

	terms, err := ParseTerms(h, c.defaultToken)
	if err != nil {
		return "", err
	}

	c.ledger.Plugins().EmitPaymentRequired(ctx, target, terms)

	if err := c.ledger.Plugins().ValidateTerms(ctx, terms); err != nil {
		return "", fmt.Errorf("%w: %v", flowstream.ErrInvalidTerms, err)
	}

	seconds := int64(c.duration / time.Second)
	deposit := terms.Rate.Multiply(seconds)

	st, err := c.ledger.CreateStream(ctx, flowstream.StreamRequest{
		Sender:    c.sender,
		Recipient: terms.Recipient,
		Deposit:   deposit,
		Duration:  c.duration,
		Metadata:  "negotiated:" + target,
	})
	if err != nil {
		return "", err
	}
	c.signersTriggered.Add(1)

	c.sessions.set(target, session{streamID: st.ID, mode: terms.Mode})

	c.logger.Info("payment negotiated",
		"target", target,
		"stream_id", st.ID,
		"deposit", deposit,
		"rate", terms.Rate,
		"duration", c.duration,
	)

	c.ledger.Plugins().EmitPaymentNegotiated(ctx, target, st.ID.String())
	return st.ID.String(), nil
}

// targetKey derives the cache key for a request destination. Streams are
// negotiated per host; paths on the same host share the stream.
func targetKey(u *url.URL) string {
	return u.Host
}

// cloneRequest prepares the retry. Requests with a consumed one-shot body
// and no GetBody cannot be retried.
func cloneRequest(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return retry, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("%w: request body is not replayable", flowstream.ErrInvalidInput)
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	retry.Body = body

	return retry, nil
}

// drain consumes and closes a response body so the underlying connection
// can be reused for the retry.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain
	_ = resp.Body.Close()                 //nolint:errcheck // best-effort close
}
