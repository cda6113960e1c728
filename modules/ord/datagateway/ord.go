package datagateway

import (
	"context"

	"github.com/btcsuite/btcd/wire"
	"github.com/gaze-network/ord-indexer/core/types"
	"github.com/gaze-network/ord-indexer/modules/ord/internal/entity"
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
	"github.com/gaze-network/ord-indexer/modules/ord/runes"
)

type OrdDataGateway interface {
	OrdReaderDataGateway
	OrdWriterDataGateway

	// Snapshot returns a reader pinned to the last committed block. Staged writes are never visible through it.
	Snapshot(ctx context.Context) (OrdSnapshot, error)
}

type OrdSnapshot interface {
	OrdReaderDataGateway
	Release()
}

type OrdReaderDataGateway interface {
	// GetLatestBlock returns the header of the last committed block. Returns errs.NotFound if nothing is indexed yet.
	GetLatestBlock(ctx context.Context) (types.BlockHeader, error)
	GetIndexedBlockByHeight(ctx context.Context, height int64) (*entity.IndexedBlock, error)
	GetStats(ctx context.Context) (*entity.Stats, error)

	// GetOutputEntry returns the entry of an output, spent or not. Returns errs.NotFound if the output was never indexed.
	GetOutputEntry(ctx context.Context, outPoint wire.OutPoint) (*entity.OutputEntry, error)
	// GetSatPoint returns where sat currently is. Returns errs.NotFound if the sat is not mined yet.
	GetSatPoint(ctx context.Context, sat ordinals.Sat) (ordinals.SatPoint, error)

	GetInscriptionEntryById(ctx context.Context, id ordinals.InscriptionId) (*entity.InscriptionEntry, error)
	GetInscriptionEntryBySequenceNumber(ctx context.Context, sequenceNumber uint64) (*entity.InscriptionEntry, error)
	GetInscriptionContent(ctx context.Context, id ordinals.InscriptionId) ([]byte, error)
	// GetLatestInscriptionEntries returns inscriptions by sequence number descending.
	GetLatestInscriptionEntries(ctx context.Context, limit int, offset int) ([]*entity.InscriptionEntry, error)
	// GetInscriptionIdsBySat returns the inscriptions on sat in inscribing order.
	GetInscriptionIdsBySat(ctx context.Context, sat ordinals.Sat) ([]ordinals.InscriptionId, error)

	// GetRuneEntryByRuneId returns errs.NotFound if the rune entry is not found.
	GetRuneEntryByRuneId(ctx context.Context, runeId runes.RuneId) (*runes.RuneEntry, error)
	// GetRuneIdFromRune returns errs.NotFound if the rune was never etched.
	GetRuneIdFromRune(ctx context.Context, rune runes.Rune) (runes.RuneId, error)
}

// OrdWriterDataGateway stages the changes of one block. Nothing is visible to snapshots
// until Commit, and Discard drops everything staged since the last Commit.
type OrdWriterDataGateway interface {
	PutOutputEntry(ctx context.Context, outPoint wire.OutPoint, entry *entity.OutputEntry) error
	// PutSatRange records that satRange starts at offset of outPoint.
	PutSatRange(ctx context.Context, satRange ordinals.SatRange, location ordinals.SatPoint) error
	DeleteSatRange(ctx context.Context, satRange ordinals.SatRange) error
	PutInscriptionEntry(ctx context.Context, entry *entity.InscriptionEntry) error
	PutInscriptionContent(ctx context.Context, id ordinals.InscriptionId, body []byte) error
	PutSatInscription(ctx context.Context, sat ordinals.Sat, sequenceNumber uint64, id ordinals.InscriptionId) error
	PutRuneEntry(ctx context.Context, entry *runes.RuneEntry) error
	PutStats(ctx context.Context, stats *entity.Stats) error
	// PutIndexedBlock records the block and moves the cursor to it.
	PutIndexedBlock(ctx context.Context, block *entity.IndexedBlock) error

	// Commit atomically writes everything staged together with an undo record for height.
	// A negative height writes without an undo record. The stage is kept on failure so Commit can be retried.
	Commit(ctx context.Context, height int64) error
	Discard()
	// Revert applies the undo record of height, restoring the state committed before it.
	Revert(ctx context.Context, height int64) error
}
