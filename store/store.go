// Package store defines the unified storage interface for FlowStream.
//
// Implementations live in sub-packages: memory (zero-dependency, for tests
// and embedded use), sqlite, postgres, and mongo (grove-backed).
package store

import (
	"context"

	"github.com/xraph/flowstream/id"
	"github.com/xraph/flowstream/stream"
	"github.com/xraph/flowstream/types"
)

// Store is the unified storage interface for all FlowStream entities.
type Store interface {
	// Stream methods
	CreateStream(ctx context.Context, s *stream.Stream) error
	GetStream(ctx context.Context, streamID id.StreamID) (*stream.Stream, error)
	UpdateStream(ctx context.Context, s *stream.Stream) error
	ListStreams(ctx context.Context, identity types.Address, opts stream.ListOpts) ([]*stream.Stream, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
