package negotiator_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/xraph/flowstream"
	"github.com/xraph/flowstream/negotiator"
	"github.com/xraph/flowstream/store/memory"
	"github.com/xraph/flowstream/stream"
	"github.com/xraph/flowstream/types"
)

const payer = types.Address("0xpayer")

func newTestClient(t *testing.T, opts ...negotiator.Option) (*flowstream.Ledger, *negotiator.Client) {
	t.Helper()

	l := flowstream.New(memory.New())
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = l.Stop() })

	return l, negotiator.New(l, payer, opts...)
}

// paymentProvider is a test server that demands streaming payment. Requests
// without a stream reference (or with a revoked one) get 402 plus terms;
// everything else gets 200.
type paymentProvider struct {
	mu       sync.Mutex
	rate     string
	mode     string
	headers  []string // stream reference seen per request, "" when absent
	revoked  map[string]bool
	demanded int
}

func newPaymentProvider(mode, rate string) *paymentProvider {
	return &paymentProvider{mode: mode, rate: rate, revoked: make(map[string]bool)}
}

func (p *paymentProvider) revoke(streamID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked[streamID] = true
}

func (p *paymentProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ref := r.Header.Get(negotiator.HeaderStream)
	p.headers = append(p.headers, ref)

	if ref == "" || p.revoked[ref] {
		p.demanded++
		if p.mode != "" {
			w.Header().Set(negotiator.HeaderMode, p.mode)
		}
		if p.rate != "" {
			w.Header().Set(negotiator.HeaderRate, p.rate)
		}
		w.Header().Set(negotiator.HeaderRecipient, "0xprovider")
		w.Header().Set(negotiator.HeaderToken, "usdc")
		http.Error(w, "payment required", http.StatusPaymentRequired)
		return
	}

	_, _ = w.Write([]byte("ok"))
}

func TestNegotiateOnceThenReuse(t *testing.T) {
	ctx := context.Background()
	provider := newPaymentProvider("streaming", "0.000001")
	srv := httptest.NewServer(provider)
	defer srv.Close()

	l, c := newTestClient(t)

	// Five requests to the same provider: one negotiation, four cache hits.
	for i := 0; i < 5; i++ {
		resp, err := c.Get(ctx, srv.URL)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: status %d", i, resp.StatusCode)
		}
		resp.Body.Close()
	}

	m := c.Metrics()
	if m.RequestsSent != 5 {
		t.Errorf("RequestsSent: got %d, want 5", m.RequestsSent)
	}
	if m.SignersTriggered != 1 {
		t.Errorf("SignersTriggered: got %d, want 1", m.SignersTriggered)
	}
	if provider.demanded != 1 {
		t.Errorf("provider demanded payment %d times, want 1", provider.demanded)
	}

	// Exactly one stream funds all five requests.
	streams, err := l.ListStreamsFor(ctx, payer, stream.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(streams) != 1 {
		t.Fatalf("got %d streams, want 1", len(streams))
	}
	st := streams[0]

	// Deposit = rate x default window, recipient from the terms.
	if !st.Deposit.Equal(types.USDC(3600)) {
		t.Errorf("deposit: got %v, want 3600 units", st.Deposit)
	}
	if !st.Recipient.Equal("0xprovider") {
		t.Errorf("recipient: got %q, want 0xprovider", st.Recipient)
	}

	// Every request after the first carried the stream reference.
	for i, ref := range provider.headers[1:] {
		if ref != st.ID.String() {
			t.Errorf("request %d: stream header %q, want %q", i+1, ref, st.ID.String())
		}
	}
}

func TestUnsupportedModeFailsFast(t *testing.T) {
	ctx := context.Background()
	provider := newPaymentProvider("one-time", "0.000001")
	srv := httptest.NewServer(provider)
	defer srv.Close()

	l, c := newTestClient(t)

	_, err := c.Get(ctx, srv.URL)
	if !errors.Is(err, flowstream.ErrUnsupportedPaymentMode) {
		t.Fatalf("got %v, want ErrUnsupportedPaymentMode", err)
	}

	// No stream was funded for terms the client cannot honor.
	streams, listErr := l.ListStreamsFor(ctx, payer, stream.ListOpts{})
	if listErr != nil {
		t.Fatal(listErr)
	}
	if len(streams) != 0 {
		t.Errorf("got %d streams, want 0", len(streams))
	}
	if m := c.Metrics(); m.SignersTriggered != 0 {
		t.Errorf("SignersTriggered: got %d, want 0", m.SignersTriggered)
	}
}

func TestMalformedTerms(t *testing.T) {
	tests := []struct {
		name string
		mode string
		rate string
	}{
		{"missing mode", "", "0.000001"},
		{"missing rate", "streaming", ""},
		{"garbage rate", "streaming", "free"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			provider := newPaymentProvider(tt.mode, tt.rate)
			srv := httptest.NewServer(provider)
			defer srv.Close()

			_, c := newTestClient(t)

			_, err := c.Get(ctx, srv.URL)
			if !errors.Is(err, flowstream.ErrMalformedPaymentTerms) {
				t.Fatalf("got %v, want ErrMalformedPaymentTerms", err)
			}

			// Failed negotiation leaves no cached session: the next attempt
			// reaches the provider without a stream reference.
			_, _ = c.Get(ctx, srv.URL)
			for i, ref := range provider.headers {
				if ref != "" {
					t.Errorf("request %d carried stale stream header %q", i, ref)
				}
			}
		})
	}
}

func TestNonPaymentResponsesPassThrough(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, c := newTestClient(t)

	resp, err := c.Get(ctx, srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
	if m := c.Metrics(); m.SignersTriggered != 0 {
		t.Errorf("SignersTriggered: got %d, want 0", m.SignersTriggered)
	}
}

func TestRenegotiatesWhenProviderRejectsStream(t *testing.T) {
	ctx := context.Background()
	provider := newPaymentProvider("streaming", "0.000001")
	srv := httptest.NewServer(provider)
	defer srv.Close()

	l, c := newTestClient(t)

	resp, err := c.Get(ctx, srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	streams, err := l.ListStreamsFor(ctx, payer, stream.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(streams) != 1 {
		t.Fatalf("got %d streams, want 1", len(streams))
	}
	provider.revoke(streams[0].ID.String())

	// The provider no longer honors the cached stream; the client funds a
	// fresh one inside the same call and succeeds.
	resp, err = c.Get(ctx, srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status after revocation: got %d, want 200", resp.StatusCode)
	}

	if m := c.Metrics(); m.SignersTriggered != 2 {
		t.Errorf("SignersTriggered: got %d, want 2", m.SignersTriggered)
	}
}

func TestRetriesExactlyOnce(t *testing.T) {
	ctx := context.Background()

	// A provider that answers 402 to everything, valid terms included.
	var hits int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.Header().Set(negotiator.HeaderMode, "streaming")
		w.Header().Set(negotiator.HeaderRate, "0.000001")
		w.Header().Set(negotiator.HeaderRecipient, "0xprovider")
		w.Header().Set(negotiator.HeaderToken, "usdc")
		http.Error(w, "payment required", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	_, c := newTestClient(t, negotiator.WithStreamDuration(time.Minute))

	// The retried response comes back verbatim; the client never loops.
	resp, err := c.Get(ctx, srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Errorf("status: got %d, want 402", resp.StatusCode)
	}

	mu.Lock()
	defer mu.Unlock()
	if hits != 2 {
		t.Errorf("provider hit %d times, want 2 (original + single retry)", hits)
	}
}

// Two first-time requests racing to the same provider must share one
// stream: the loser of the negotiation lock reuses the winner's.
func TestConcurrentFirstRequestsShareOneStream(t *testing.T) {
	ctx := context.Background()

	// Hold every unpaid request at the provider until both have arrived, so
	// both observe the 402 before either negotiates.
	var unpaid sync.WaitGroup
	unpaid.Add(2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(negotiator.HeaderStream) == "" {
			unpaid.Done()
			unpaid.Wait()
			w.Header().Set(negotiator.HeaderMode, "streaming")
			w.Header().Set(negotiator.HeaderRate, "0.000001")
			w.Header().Set(negotiator.HeaderRecipient, "0xprovider")
			w.Header().Set(negotiator.HeaderToken, "usdc")
			http.Error(w, "payment required", http.StatusPaymentRequired)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	l, c := newTestClient(t)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Get(ctx, srv.URL)
			if err != nil {
				results <- err
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				results <- fmt.Errorf("status %d, want 200", resp.StatusCode)
				return
			}
			results <- nil
		}()
	}
	wg.Wait()
	close(results)
	for err := range results {
		if err != nil {
			t.Fatal(err)
		}
	}

	streams, err := l.ListStreamsFor(ctx, payer, stream.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(streams) != 1 {
		t.Fatalf("got %d streams for one target, want 1", len(streams))
	}
	if m := c.Metrics(); m.SignersTriggered != 1 {
		t.Errorf("SignersTriggered: got %d, want 1", m.SignersTriggered)
	}
}
