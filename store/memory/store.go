// Package memory provides an in-memory Store implementation for tests and
// embedded single-process use.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/flowstream"
	"github.com/xraph/flowstream/id"
	"github.com/xraph/flowstream/stream"
	"github.com/xraph/flowstream/types"
)

type Store struct {
	mu sync.RWMutex

	// Stream storage, keyed by ID string. Values are private copies;
	// callers always get clones so concurrent mutation stays impossible.
	streams map[string]*stream.Stream

	closed bool
}

func New() *Store {
	return &Store{
		streams: make(map[string]*stream.Stream),
	}
}

// Stream Store implementation
func (s *Store) CreateStream(_ context.Context, st *stream.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return flowstream.ErrStoreClosed
	}
	if _, exists := s.streams[st.ID.String()]; exists {
		return flowstream.ErrAlreadyExists
	}
	s.streams[st.ID.String()] = st.Clone()
	return nil
}

func (s *Store) GetStream(_ context.Context, streamID id.StreamID) (*stream.Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, flowstream.ErrStoreClosed
	}
	if st, ok := s.streams[streamID.String()]; ok {
		return st.Clone(), nil
	}
	return nil, flowstream.ErrStreamNotFound
}

func (s *Store) UpdateStream(_ context.Context, st *stream.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return flowstream.ErrStoreClosed
	}
	if _, exists := s.streams[st.ID.String()]; !exists {
		return flowstream.ErrStreamNotFound
	}
	s.streams[st.ID.String()] = st.Clone()
	return nil
}

func (s *Store) ListStreams(_ context.Context, identity types.Address, opts stream.ListOpts) ([]*stream.Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, flowstream.ErrStoreClosed
	}

	result := make([]*stream.Stream, 0)
	for _, st := range s.streams {
		if st.Matches(identity, opts) {
			result = append(result, st.Clone())
		}
	}

	// TypeIDs are K-sortable, so ID order is creation order.
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID.String() < result[j].ID.String()
	})

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return flowstream.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
