package provider_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/juju/clock/testclock"

	"github.com/xraph/flowstream"
	"github.com/xraph/flowstream/id"
	"github.com/xraph/flowstream/provider"
	"github.com/xraph/flowstream/store/memory"
	"github.com/xraph/flowstream/types"
)

var (
	payer     = types.Address("0xpayer")
	recipient = types.Address("0xprovider")
	t0        = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
)

func newGatedServer(t *testing.T) (*flowstream.Ledger, *testclock.Clock, *httptest.Server) {
	t.Helper()

	clk := testclock.NewClock(t0)
	l := flowstream.New(memory.New(), flowstream.WithClock(clk))
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = l.Stop() })

	m := provider.New(l, provider.Terms{
		Rate:      types.USDC(1),
		Recipient: recipient,
	})

	srv := httptest.NewServer(m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, ok := provider.StreamFromContext(r.Context())
		if !ok {
			t.Error("paid request missing stream ID in context")
		}
		_, _ = w.Write([]byte(sid.String()))
	})))
	t.Cleanup(srv.Close)

	return l, clk, srv
}

func get(t *testing.T, srv *httptest.Server, streamRef string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	if streamRef != "" {
		req.Header.Set(flowstream.HeaderStream, streamRef)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func openStream(t *testing.T, l *flowstream.Ledger, to types.Address) id.StreamID {
	t.Helper()

	st, err := l.CreateStream(context.Background(), flowstream.StreamRequest{
		Sender:    payer,
		Recipient: to,
		Deposit:   types.USDC(3600),
		Duration:  time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}
	return st.ID
}

func TestDemandsPaymentWithoutStream(t *testing.T) {
	_, _, srv := newGatedServer(t)

	resp := get(t, srv, "")
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("status: got %d, want 402", resp.StatusCode)
	}

	// The 402 advertises complete terms.
	if got := resp.Header.Get(flowstream.HeaderMode); got != flowstream.ModeStreaming {
		t.Errorf("mode header: got %q, want streaming", got)
	}
	if got := resp.Header.Get(flowstream.HeaderRate); got != "0.000001" {
		t.Errorf("rate header: got %q, want 0.000001", got)
	}
	if got := resp.Header.Get(flowstream.HeaderRecipient); got != recipient.String() {
		t.Errorf("recipient header: got %q, want %q", got, recipient)
	}
	if got := resp.Header.Get(flowstream.HeaderToken); got != "usdc" {
		t.Errorf("token header: got %q, want usdc", got)
	}
}

func TestValidStreamPassesThrough(t *testing.T) {
	l, _, srv := newGatedServer(t)
	sid := openStream(t, l, recipient)

	resp := get(t, srv, sid.String())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestRejectsBadReferences(t *testing.T) {
	l, _, srv := newGatedServer(t)

	tests := []struct {
		name string
		ref  func() string
	}{
		{"garbage", func() string { return "not-a-stream-id" }},
		{"wrong prefix", func() string { return id.NewSessionID().String() }},
		{"unknown stream", func() string { return id.NewStreamID().String() }},
		{"wrong recipient", func() string { return openStream(t, l, "0xsomeoneelse").String() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, srv, tt.ref())
			if resp.StatusCode != http.StatusPaymentRequired {
				t.Errorf("status: got %d, want 402", resp.StatusCode)
			}
		})
	}
}

func TestRejectsCancelledStream(t *testing.T) {
	l, _, srv := newGatedServer(t)
	sid := openStream(t, l, recipient)

	if _, _, err := l.Cancel(context.Background(), sid, payer); err != nil {
		t.Fatal(err)
	}

	resp := get(t, srv, sid.String())
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Errorf("status: got %d, want 402", resp.StatusCode)
	}
}

// A stream past its stop time still reports active, but it no longer pays
// for anything. The middleware checks the clock, not just the flag.
func TestRejectsExpiredStream(t *testing.T) {
	l, clk, srv := newGatedServer(t)
	sid := openStream(t, l, recipient)

	resp := get(t, srv, sid.String())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fresh stream: got %d, want 200", resp.StatusCode)
	}

	clk.Advance(2 * time.Hour)

	active, err := l.IsStreamActive(context.Background(), sid)
	if err != nil {
		t.Fatal(err)
	}
	if !active {
		t.Fatal("expired stream should still report active")
	}

	resp = get(t, srv, sid.String())
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Errorf("expired stream: got %d, want 402", resp.StatusCode)
	}
}
