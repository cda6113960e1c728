// Package ordtest seeds a repository with a small committed state for query tests.
package ordtest

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/gaze-network/ord-indexer/internal/kvdb"
	"github.com/gaze-network/ord-indexer/modules/ord/internal/entity"
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
	"github.com/gaze-network/ord-indexer/modules/ord/repository/kvstore"
	"github.com/gaze-network/ord-indexer/modules/ord/runes"
	"github.com/gaze-network/uint128"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

var (
	BlockHash = chainhash.Hash{0xaa}

	// InscribedOutput holds Inscription at offset 0, on sat 0.
	InscribedOutput = wire.OutPoint{Hash: chainhash.Hash{1}, Index: 0}
	// RunicOutput holds 10.00 of Rune.
	RunicOutput = wire.OutPoint{Hash: chainhash.Hash{2}, Index: 0}
	PlainOutput = wire.OutPoint{Hash: chainhash.Hash{3}, Index: 0}
	SpentOutput = wire.OutPoint{Hash: chainhash.Hash{4}, Index: 1}

	Inscription = ordinals.NewInscriptionId(chainhash.Hash{1}, 0)
	// Delegating is unbound and delegates its content to Inscription.
	Delegating = ordinals.NewInscriptionId(chainhash.Hash{5}, 0)

	RuneId     = runes.RuneId{BlockHeight: 5, TxIndex: 1}
	SpacedRune = utils.Must(runes.NewSpacedRuneFromString("TEST•RUNE"))

	Content  = []byte("HELLOWORLD")
	PkScript = utils.Must(hex.DecodeString("0014751e76e8199196d454941c45d1b3a323f1433bd6"))
)

const (
	InscribedValue = 10_000
	RunicValue     = 5_000
	PlainValue     = 7_000
)

// NewRepository returns a repository with block 0 committed.
func NewRepository(t *testing.T) *kvstore.Repository {
	t.Helper()
	ctx := context.Background()

	db, err := kvdb.NewMemLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo, err := kvstore.New(db, 16, 0)
	require.NoError(t, err)

	outputs := map[wire.OutPoint]*entity.OutputEntry{
		InscribedOutput: {
			Value:     InscribedValue,
			PkScript:  PkScript,
			SatRanges: ordinals.SatRanges{{Start: 0, End: InscribedValue}},
			Inscriptions: []entity.InscriptionLocation{
				{Offset: 0, SequenceNumber: 0, InscriptionId: Inscription},
			},
		},
		RunicOutput: {
			Value:     RunicValue,
			PkScript:  PkScript,
			SatRanges: ordinals.SatRanges{{Start: InscribedValue, End: InscribedValue + RunicValue}},
			Runes:     []entity.RuneBalance{{RuneId: RuneId, Amount: uint128.From64(1000)}},
		},
		PlainOutput: {
			Value:     PlainValue,
			SatRanges: ordinals.SatRanges{{Start: InscribedValue + RunicValue, End: InscribedValue + RunicValue + PlainValue}},
		},
		SpentOutput: {
			Value:       1,
			Spent:       true,
			SpentHeight: 0,
		},
	}
	for outPoint, entry := range outputs {
		require.NoError(t, repo.PutOutputEntry(ctx, outPoint, entry))
		for _, satRange := range entry.SatRanges {
			if !entry.Spent {
				require.NoError(t, repo.PutSatRange(ctx, satRange, ordinals.SatPoint{OutPoint: outPoint}))
			}
		}
	}

	timestamp := time.Unix(1_700_000_000, 0).UTC()
	require.NoError(t, repo.PutInscriptionEntry(ctx, &entity.InscriptionEntry{
		Id:            Inscription,
		Number:        0,
		Sat:           lo.ToPtr(ordinals.Sat(0)),
		Timestamp:     timestamp,
		ContentType:   "text/plain;charset=utf-8",
		ContentLength: uint64(len(Content)),
		Location:      ordinals.SatPoint{OutPoint: InscribedOutput},
	}))
	require.NoError(t, repo.PutInscriptionContent(ctx, Inscription, Content))
	require.NoError(t, repo.PutSatInscription(ctx, 0, 0, Inscription))

	var charms entity.Charms
	charms.Set(entity.CharmUnbound)
	require.NoError(t, repo.PutInscriptionEntry(ctx, &entity.InscriptionEntry{
		Id:             Delegating,
		Number:         1,
		SequenceNumber: 1,
		Charms:         charms,
		Timestamp:      timestamp,
		Delegate:       lo.ToPtr(Inscription),
		Location:       ordinals.SatPoint{OutPoint: ordinals.UnboundOutPoint},
	}))

	require.NoError(t, repo.PutRuneEntry(ctx, &runes.RuneEntry{
		RuneId:       RuneId,
		Divisibility: 2,
		Premine:      uint128.From64(1000),
		SpacedRune:   SpacedRune,
		Symbol:       '¢',
		EtchingBlock: 5,
		EtchedAt:     timestamp,
	}))
	require.NoError(t, repo.PutStats(ctx, &entity.Stats{BlessedInscriptions: 2, NextSequenceNumber: 2, Runes: 1}))
	require.NoError(t, repo.PutIndexedBlock(ctx, &entity.IndexedBlock{Height: 0, Hash: BlockHash, Timestamp: timestamp}))
	require.NoError(t, repo.Commit(ctx, 0))
	return repo
}
