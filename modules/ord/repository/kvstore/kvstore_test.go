package kvstore

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/internal/kvdb"
	"github.com/gaze-network/ord-indexer/modules/ord/internal/entity"
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
	"github.com/gaze-network/ord-indexer/modules/ord/runes"
	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T, undoRetention int64) (*Repository, *kvdb.LevelDB) {
	t.Helper()
	db, err := kvdb.NewMemLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo, err := New(db, 16, undoRetention)
	require.NoError(t, err)
	return repo, db
}

func dump(t *testing.T, db kvdb.Reader) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := db.Iterate(context.Background(), kvdb.Range{}, func(key, value []byte) (bool, error) {
		out[string(key)] = string(value)
		return true, nil
	})
	require.NoError(t, err)
	return out
}

func outPoint(b byte, index uint32) wire.OutPoint {
	return wire.OutPoint{Hash: chainhash.Hash{b}, Index: index}
}

func stageBlock(t *testing.T, repo *Repository, height int64, value uint64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.PutOutputEntry(ctx, outPoint(byte(height), 0), &entity.OutputEntry{
		Value:     value,
		SatRanges: ordinals.SatRanges{{Start: value, End: value * 2}},
	}))
	require.NoError(t, repo.PutSatRange(ctx, ordinals.SatRange{Start: value, End: value * 2}, ordinals.SatPoint{OutPoint: outPoint(byte(height), 0)}))
	require.NoError(t, repo.PutStats(ctx, &entity.Stats{LostSats: value}))
	require.NoError(t, repo.PutIndexedBlock(ctx, &entity.IndexedBlock{Height: height, Hash: chainhash.Hash{byte(height)}}))
}

func TestStagedReads(t *testing.T) {
	ctx := context.Background()
	repo, db := newTestRepository(t, 0)

	_, err := repo.GetOutputEntry(ctx, outPoint(1, 0))
	assert.ErrorIs(t, err, errs.NotFound)

	stageBlock(t, repo, 1, 100)

	entry, err := repo.GetOutputEntry(ctx, outPoint(1, 0))
	require.NoError(t, err)
	assert.Equal(t, uint64(100), entry.Value)
	assert.Empty(t, dump(t, db), "staged writes must not reach the database")

	snapshot, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	defer snapshot.Release()
	_, err = snapshot.GetOutputEntry(ctx, outPoint(1, 0))
	assert.ErrorIs(t, err, errs.NotFound)

	repo.Discard()
	_, err = repo.GetOutputEntry(ctx, outPoint(1, 0))
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestCommitAndRevert(t *testing.T) {
	ctx := context.Background()
	repo, db := newTestRepository(t, 0)

	stageBlock(t, repo, 1, 100)
	require.NoError(t, repo.Commit(ctx, 1))
	before := dump(t, db)

	stageBlock(t, repo, 2, 200)
	require.NoError(t, repo.DeleteSatRange(ctx, ordinals.SatRange{Start: 100, End: 200}))
	require.NoError(t, repo.Commit(ctx, 2))

	latest, err := repo.GetLatestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest.Height)
	_, err = repo.GetSatPoint(ctx, 150)
	assert.ErrorIs(t, err, errs.NotFound)

	require.NoError(t, repo.Revert(ctx, 2))
	assert.Equal(t, before, dump(t, db))

	latest, err = repo.GetLatestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), latest.Height)
	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), stats.LostSats)
	satPoint, err := repo.GetSatPoint(ctx, 150)
	require.NoError(t, err)
	assert.Equal(t, ordinals.SatPoint{OutPoint: outPoint(1, 0), Offset: 50}, satPoint)

	err = repo.Revert(ctx, 2)
	assert.ErrorIs(t, err, errs.Corrupted)
}

func TestRevertToEmpty(t *testing.T) {
	ctx := context.Background()
	repo, db := newTestRepository(t, 0)

	stageBlock(t, repo, 0, 50)
	require.NoError(t, repo.Commit(ctx, 0))
	require.NoError(t, repo.Revert(ctx, 0))

	assert.Empty(t, dump(t, db))
	_, err := repo.GetLatestBlock(ctx)
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestRevertRejectsStagedChanges(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t, 0)

	stageBlock(t, repo, 1, 100)
	require.NoError(t, repo.Commit(ctx, 1))
	stageBlock(t, repo, 2, 200)

	assert.Error(t, repo.Revert(ctx, 1))
}

func TestCommitWithoutUndo(t *testing.T) {
	ctx := context.Background()
	repo, db := newTestRepository(t, 0)

	require.NoError(t, repo.PutStats(ctx, &entity.Stats{Runes: 1}))
	require.NoError(t, repo.Commit(ctx, -1))

	state := dump(t, db)
	assert.Len(t, state, 1)
	assert.Contains(t, state, string(keyStats))
}

func TestUndoRetention(t *testing.T) {
	ctx := context.Background()
	repo, db := newTestRepository(t, 2)

	for height := int64(0); height < 5; height++ {
		stageBlock(t, repo, height, uint64(height+1)*100)
		require.NoError(t, repo.Commit(ctx, height))
	}

	state := dump(t, db)
	for height := int64(0); height < 3; height++ {
		assert.NotContains(t, state, string(undoKey(height)), "height %d", height)
	}
	for height := int64(3); height < 5; height++ {
		assert.Contains(t, state, string(undoKey(height)), "height %d", height)
	}
	require.NoError(t, repo.Revert(ctx, 4))
	require.NoError(t, repo.Revert(ctx, 3))
	assert.ErrorIs(t, repo.Revert(ctx, 2), errs.Corrupted)
}

func TestGetSatPoint(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t, 0)

	require.NoError(t, repo.PutSatRange(ctx, ordinals.SatRange{Start: 0, End: 10}, ordinals.SatPoint{OutPoint: outPoint(1, 0)}))
	require.NoError(t, repo.PutSatRange(ctx, ordinals.SatRange{Start: 20, End: 30}, ordinals.SatPoint{OutPoint: outPoint(2, 1), Offset: 5}))
	require.NoError(t, repo.Commit(ctx, 0))

	satPoint, err := repo.GetSatPoint(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, ordinals.SatPoint{OutPoint: outPoint(1, 0)}, satPoint)

	satPoint, err = repo.GetSatPoint(ctx, 29)
	require.NoError(t, err)
	assert.Equal(t, ordinals.SatPoint{OutPoint: outPoint(2, 1), Offset: 14}, satPoint)

	_, err = repo.GetSatPoint(ctx, 10)
	assert.ErrorIs(t, err, errs.NotFound)
	_, err = repo.GetSatPoint(ctx, 30)
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestInscriptionQueries(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t, 0)

	for i := uint64(0); i < 5; i++ {
		entry := &entity.InscriptionEntry{
			Id:             ordinals.NewInscriptionId(chainhash.Hash{byte(i + 1)}, 0),
			Number:         int64(i),
			SequenceNumber: i,
		}
		require.NoError(t, repo.PutInscriptionEntry(ctx, entry))
		require.NoError(t, repo.PutSatInscription(ctx, 77, i, entry.Id))
	}
	require.NoError(t, repo.PutInscriptionContent(ctx, ordinals.NewInscriptionId(chainhash.Hash{1}, 0), []byte("hello")))
	require.NoError(t, repo.Commit(ctx, 0))

	latest, err := repo.GetLatestInscriptionEntries(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, uint64(3), latest[0].SequenceNumber)
	assert.Equal(t, uint64(2), latest[1].SequenceNumber)

	bySequence, err := repo.GetInscriptionEntryBySequenceNumber(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, ordinals.NewInscriptionId(chainhash.Hash{5}, 0), bySequence.Id)

	ids, err := repo.GetInscriptionIdsBySat(ctx, 77)
	require.NoError(t, err)
	require.Len(t, ids, 5)
	assert.Equal(t, ordinals.NewInscriptionId(chainhash.Hash{1}, 0), ids[0])

	content, err := repo.GetInscriptionContent(ctx, ordinals.NewInscriptionId(chainhash.Hash{1}, 0))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), content)
}

func TestRuneQueries(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t, 0)

	name, err := runes.NewRuneFromString("AAAAAAAAAAAAA")
	require.NoError(t, err)
	entry := &runes.RuneEntry{
		RuneId:     runes.RuneId{BlockHeight: 840_000, TxIndex: 1},
		SpacedRune: runes.NewSpacedRune(name, 0),
		Premine:    uint128.From64(1000),
	}
	require.NoError(t, repo.PutRuneEntry(ctx, entry))
	require.NoError(t, repo.Commit(ctx, 840_000))

	runeId, err := repo.GetRuneIdFromRune(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, entry.RuneId, runeId)

	got, err := repo.GetRuneEntryByRuneId(ctx, runeId)
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	_, err = repo.GetRuneIdFromRune(ctx, runes.NewRune(0))
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestIndexerState(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t, 0)

	_, err := repo.GetIndexerState(ctx)
	assert.ErrorIs(t, err, errs.NotFound)

	require.NoError(t, repo.SetIndexerState(ctx, entity.IndexerState{ClientVersion: "v1", DBVersion: 1, IndexRunes: true}))
	state, err := repo.GetIndexerState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1", state.ClientVersion)
	assert.True(t, state.IndexRunes)
}
