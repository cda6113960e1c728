package indexer

import (
	"context"

	"github.com/gaze-network/ord-indexer/core/types"
)

type Input interface {
	BlockHeader() types.BlockHeader
}

type Processor[T Input] interface {
	Name() string

	// Process stages the changes of a single input. Nothing is durable until Commit.
	Process(ctx context.Context, input T) error

	// Commit atomically applies the staged changes together with the block cursor.
	Commit(ctx context.Context) error

	// Discard drops the staged changes.
	Discard()

	// CurrentBlock returns the latest indexed block header.
	CurrentBlock(ctx context.Context) (types.BlockHeader, error)

	// GetIndexedBlock returns the indexed block header by the specified block height.
	GetIndexedBlock(ctx context.Context, height int64) (types.BlockHeader, error)

	// RevertData reverts synced data down to the specified block height, keeping it, for re-indexing.
	RevertData(ctx context.Context, to int64) error

	// VerifyStates verifies the states of the indexed data and the indexer
	// to ensure the last shutdown was graceful and no missing data.
	VerifyStates(ctx context.Context) error

	// Shutdown gracefully stops the processor. Database connections, network calls, leftover states, etc. should be closed and cleaned up here.
	Shutdown(ctx context.Context) error
}
