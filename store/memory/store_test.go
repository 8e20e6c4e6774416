package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/flowstream"
	"github.com/xraph/flowstream/id"
	"github.com/xraph/flowstream/stream"
	"github.com/xraph/flowstream/types"
)

func newStream(sender, recipient types.Address) *stream.Stream {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &stream.Stream{
		Entity:    types.NewEntityAt(t0),
		ID:        id.NewStreamID(),
		Sender:    sender,
		Recipient: recipient,
		Deposit:   types.USDC(3600),
		FlowRate:  types.USDC(1),
		StartTime: t0,
		StopTime:  t0.Add(time.Hour),
		Withdrawn: types.Zero("usdc"),
		Active:    true,
	}
}

func TestCreateGetStream(t *testing.T) {
	ctx := context.Background()
	s := New()

	st := newStream("0xalice", "0xbob")
	if err := s.CreateStream(ctx, st); err != nil {
		t.Fatalf("CreateStream: %v", err)
	}

	got, err := s.GetStream(ctx, st.ID)
	if err != nil {
		t.Fatalf("GetStream: %v", err)
	}
	if got.ID.String() != st.ID.String() {
		t.Errorf("ID mismatch: %q != %q", got.ID.String(), st.ID.String())
	}
	if !got.Deposit.Equal(st.Deposit) {
		t.Errorf("Deposit mismatch: %v != %v", got.Deposit, st.Deposit)
	}

	// Duplicate create is rejected.
	if err := s.CreateStream(ctx, st); !errors.Is(err, flowstream.ErrAlreadyExists) {
		t.Errorf("duplicate create: got %v, want ErrAlreadyExists", err)
	}
}

func TestGetStreamNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.GetStream(ctx, id.NewStreamID())
	if !errors.Is(err, flowstream.ErrStreamNotFound) {
		t.Errorf("got %v, want ErrStreamNotFound", err)
	}
}

func TestUpdateStream(t *testing.T) {
	ctx := context.Background()
	s := New()

	st := newStream("0xalice", "0xbob")
	if err := s.CreateStream(ctx, st); err != nil {
		t.Fatal(err)
	}

	st.Withdrawn = types.USDC(100)
	if err := s.UpdateStream(ctx, st); err != nil {
		t.Fatalf("UpdateStream: %v", err)
	}

	got, err := s.GetStream(ctx, st.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Withdrawn.Equal(types.USDC(100)) {
		t.Errorf("Withdrawn: got %v, want 100", got.Withdrawn)
	}

	// Updating an unknown stream fails.
	other := newStream("0xalice", "0xbob")
	if err := s.UpdateStream(ctx, other); !errors.Is(err, flowstream.ErrStreamNotFound) {
		t.Errorf("got %v, want ErrStreamNotFound", err)
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	st := newStream("0xalice", "0xbob")
	if err := s.CreateStream(ctx, st); err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's struct after create must not affect the store.
	st.Withdrawn = types.USDC(999)

	got, err := s.GetStream(ctx, st.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Withdrawn.IsZero() {
		t.Errorf("store leaked caller mutation: %v", got.Withdrawn)
	}

	// Mutating a returned struct must not affect the store either.
	got.Active = false
	again, err := s.GetStream(ctx, st.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Active {
		t.Error("store leaked mutation of a returned stream")
	}
}

func TestListStreams(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i := 0; i < 3; i++ {
		if err := s.CreateStream(ctx, newStream("0xalice", "0xbob")); err != nil {
			t.Fatal(err)
		}
	}
	cancelled := newStream("0xalice", "0xcarol")
	cancelled.Active = false
	if err := s.CreateStream(ctx, cancelled); err != nil {
		t.Fatal(err)
	}
	unrelated := newStream("0xdave", "0xerin")
	if err := s.CreateStream(ctx, unrelated); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		identity types.Address
		opts     stream.ListOpts
		want     int
	}{
		{"all for alice", "0xalice", stream.ListOpts{}, 4},
		{"alice as sender", "0xalice", stream.ListOpts{Role: stream.RoleSender}, 4},
		{"alice as recipient", "0xalice", stream.ListOpts{Role: stream.RoleRecipient}, 0},
		{"bob as recipient", "0xbob", stream.ListOpts{Role: stream.RoleRecipient}, 3},
		{"active only", "0xalice", stream.ListOpts{ActiveOnly: true}, 3},
		{"limit", "0xalice", stream.ListOpts{Limit: 2}, 2},
		{"offset past end", "0xalice", stream.ListOpts{Offset: 10}, 0},
		{"stranger", "0xnobody", stream.ListOpts{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListStreams(ctx, tt.identity, tt.opts)
			if err != nil {
				t.Fatalf("ListStreams: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d streams, want %d", len(got), tt.want)
			}
		})
	}
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	st := newStream("0xalice", "0xbob")
	if err := s.CreateStream(ctx, st); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if err := s.CreateStream(ctx, newStream("0xa", "0xb")); !errors.Is(err, flowstream.ErrStoreClosed) {
		t.Errorf("CreateStream: got %v, want ErrStoreClosed", err)
	}
	if _, err := s.GetStream(ctx, st.ID); !errors.Is(err, flowstream.ErrStoreClosed) {
		t.Errorf("GetStream: got %v, want ErrStoreClosed", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, flowstream.ErrStoreClosed) {
		t.Errorf("Ping: got %v, want ErrStoreClosed", err)
	}
}
