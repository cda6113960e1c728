package ord

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/core/types"
	"github.com/gaze-network/ord-indexer/modules/ord/datagateway"
	"github.com/gaze-network/ord-indexer/modules/ord/internal/entity"
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
	"github.com/gaze-network/ord-indexer/modules/ord/runes"
	"github.com/gaze-network/ord-indexer/pkg/logger"
	"github.com/gaze-network/ord-indexer/pkg/logger/slogx"
)

// Process stages every state change of block. Nothing is written until Commit.
func (p *Processor) Process(ctx context.Context, block *types.Block) (err error) {
	defer func() {
		if err != nil {
			p.Discard()
		}
	}()
	if p.stagedHeight >= 0 {
		return errors.Wrapf(errs.ConflictSetting, "block %d is staged but not committed", p.stagedHeight)
	}
	if len(block.Transactions) == 0 {
		return errors.Wrapf(errs.Corrupted, "block %d has no coinbase", block.Header.Height)
	}

	start := time.Now()
	stats, err := p.ordDg.GetStats(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get stats")
	}
	u := newBlockUpdater(p.ordDg, p.network, p.params, p.indexInscriptions, block.Header, stats)

	for _, tx := range block.Transactions[1:] {
		if err := u.indexTransaction(ctx, tx); err != nil {
			return errors.Wrapf(err, "failed to index tx %s", tx.TxHash)
		}
	}
	if err := u.indexCoinbase(ctx, block.Transactions[0]); err != nil {
		return errors.Wrap(err, "failed to index coinbase")
	}

	if p.indexRunes && u.height >= runes.FirstRuneHeight(p.network) {
		for i, tx := range block.Transactions {
			if err := u.indexRunes(ctx, uint32(i), tx); err != nil {
				return errors.Wrapf(err, "failed to index runes of tx %s", tx.TxHash)
			}
		}
	}

	if err := u.flush(ctx); err != nil {
		return errors.WithStack(err)
	}
	if err := p.ordDg.PutStats(ctx, u.stats); err != nil {
		return errors.Wrap(err, "failed to put stats")
	}
	if err := p.ordDg.PutIndexedBlock(ctx, &entity.IndexedBlock{
		Height:    block.Header.Height,
		Hash:      block.Header.Hash,
		PrevBlock: block.Header.PrevBlock,
		Timestamp: block.Header.Timestamp,
	}); err != nil {
		return errors.Wrap(err, "failed to put indexed block")
	}
	p.stagedHeight = block.Header.Height

	logger.DebugContext(ctx, "[OrdProcessor] processed block",
		slogx.Int64("height", block.Header.Height),
		slogx.Int("txs", len(block.Transactions)),
		slogx.Duration("duration", time.Since(start)),
	)
	return nil
}

// blockUpdater carries the running state of one block.
type blockUpdater struct {
	ordDg             datagateway.OrdDataGateway
	network           common.Network
	params            *chaincfg.Params
	indexInscriptions bool

	height    uint64
	timestamp time.Time
	stats     *entity.Stats

	// reward is the subsidy plus the fees collected so far.
	reward uint64
	// coinbaseRanges are the sats the coinbase may claim: the subsidy followed by every fee in transaction order.
	coinbaseRanges ordinals.SatRanges
	// flotsam are inscriptions spent as fee, with offsets into coinbaseRanges.
	flotsam []entity.Flotsam
	// lostEntry is the entry of the null outpoint, loaded on first use.
	lostEntry *entity.OutputEntry
}

func newBlockUpdater(ordDg datagateway.OrdDataGateway, network common.Network, params *chaincfg.Params, indexInscriptions bool, header types.BlockHeader, stats *entity.Stats) *blockUpdater {
	height := uint64(header.Height)
	subsidy := ordinals.Subsidy(params, height)
	first := uint64(ordinals.FirstSatOfHeight(params, height))
	u := &blockUpdater{
		ordDg:             ordDg,
		network:           network,
		params:            params,
		indexInscriptions: indexInscriptions,
		height:            height,
		timestamp:         header.Timestamp,
		stats:             stats,
		reward:            subsidy,
	}
	if subsidy > 0 {
		u.coinbaseRanges = ordinals.SatRanges{{Start: first, End: first + subsidy}}
	}
	return u
}

func (u *blockUpdater) indexTransaction(ctx context.Context, tx *types.Transaction) error {
	inputs := make([]*entity.OutputEntry, len(tx.TxIn))
	pool := ordinals.NewSatPool()
	var totalInput uint64
	for i, txIn := range tx.TxIn {
		outPoint := txIn.PreviousOutPoint()
		entry, err := u.ordDg.GetOutputEntry(ctx, outPoint)
		if err != nil {
			if errors.Is(err, errs.NotFound) {
				return errors.Wrapf(errs.Corrupted, "input %s is not indexed", outPoint)
			}
			return errors.Wrapf(err, "failed to get input %s", outPoint)
		}
		if entry.Spent {
			return errors.Wrapf(errs.Corrupted, "input %s was already spent at height %d", outPoint, entry.SpentHeight)
		}
		inputs[i] = entry
		totalInput += entry.Value
		pool.Push(entry.SatRanges...)
	}
	inputRanges := pool.Remaining()

	var flotsam []entity.Flotsam
	if u.indexInscriptions {
		var err error
		flotsam, err = u.indexEnvelopes(ctx, tx, inputs)
		if err != nil {
			return errors.Wrap(err, "failed to index envelopes")
		}
	}

	for i, txIn := range tx.TxIn {
		entry := inputs[i]
		for _, satRange := range entry.SatRanges {
			if err := u.ordDg.DeleteSatRange(ctx, satRange); err != nil {
				return errors.Wrap(err, "failed to delete sat range")
			}
		}
		entry.Spent = true
		entry.SpentHeight = u.height
		entry.Inscriptions = nil
		if err := u.ordDg.PutOutputEntry(ctx, txIn.PreviousOutPoint(), entry); err != nil {
			return errors.Wrap(err, "failed to put spent output")
		}
	}

	outputs, outputValue, err := u.assignSats(tx, pool)
	if err != nil {
		return errors.WithStack(err)
	}
	if outputValue > totalInput {
		return errors.Wrapf(errs.Corrupted, "outputs spend %d sats but inputs carry %d", outputValue, totalInput)
	}

	leftover, err := u.locateInscriptions(ctx, tx, outputs, flotsam, inputRanges)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, f := range leftover {
		f.Offset = u.reward + f.Offset - outputValue
		u.flotsam = append(u.flotsam, f)
	}
	u.reward += totalInput - outputValue
	u.coinbaseRanges = append(u.coinbaseRanges, pool.Drain()...)

	return errors.WithStack(u.putOutputs(ctx, tx, outputs))
}

func (u *blockUpdater) indexCoinbase(ctx context.Context, tx *types.Transaction) error {
	pool := ordinals.NewSatPool(u.coinbaseRanges...)
	inputRanges := pool.Remaining()

	// A coinbase repeating an earlier coinbase txid overwrites its outputs; the old sats are unreachable.
	for vout := range tx.TxOut {
		outPoint := wire.OutPoint{Hash: tx.TxHash, Index: uint32(vout)}
		existing, err := u.ordDg.GetOutputEntry(ctx, outPoint)
		if err != nil {
			if errors.Is(err, errs.NotFound) {
				continue
			}
			return errors.Wrapf(err, "failed to get output %s", outPoint)
		}
		if existing.Spent {
			continue
		}
		for _, satRange := range existing.SatRanges {
			if err := u.ordDg.DeleteSatRange(ctx, satRange); err != nil {
				return errors.Wrap(err, "failed to delete sat range")
			}
		}
	}

	outputs, outputValue, err := u.assignSats(tx, pool)
	if err != nil {
		return errors.WithStack(err)
	}

	leftover, err := u.locateInscriptions(ctx, tx, outputs, u.flotsam, inputRanges)
	if err != nil {
		return errors.WithStack(err)
	}
	u.flotsam = nil

	for _, f := range leftover {
		satPoint := ordinals.SatPoint{OutPoint: ordinals.NullOutPoint, Offset: u.stats.LostSats + f.Offset - outputValue}
		if err := u.updateInscriptionLocation(ctx, f, satPoint, inputRanges, outputs); err != nil {
			return errors.WithStack(err)
		}
	}

	if remaining := pool.Drain(); len(remaining) > 0 {
		lost, err := u.getLostEntry(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		offset := u.stats.LostSats
		for _, satRange := range remaining {
			if err := u.ordDg.PutSatRange(ctx, satRange, ordinals.SatPoint{OutPoint: ordinals.NullOutPoint, Offset: offset}); err != nil {
				return errors.Wrap(err, "failed to put lost sat range")
			}
			lost.SatRanges = append(lost.SatRanges, satRange)
			offset += satRange.Count()
		}
	}
	if u.reward > outputValue {
		u.stats.LostSats += u.reward - outputValue
		if u.lostEntry != nil {
			u.lostEntry.Value = u.stats.LostSats
		}
	}

	return errors.WithStack(u.putOutputs(ctx, tx, outputs))
}

// assignSats takes the sats of every output from the front of pool. A pool that runs dry
// before the outputs are paid is corruption, unless it had nothing to give from the start.
func (u *blockUpdater) assignSats(tx *types.Transaction, pool *ordinals.SatPool) ([]*entity.OutputEntry, uint64, error) {
	startedEmpty := pool.IsEmpty()
	outputs := make([]*entity.OutputEntry, len(tx.TxOut))
	var outputValue uint64
	for vout, txOut := range tx.TxOut {
		if txOut.Value < 0 {
			return nil, 0, errors.Wrapf(errs.Corrupted, "output %d has negative value", vout)
		}
		value := uint64(txOut.Value)
		ranges := pool.Take(value)
		if ranges.Count() != value && !startedEmpty {
			return nil, 0, errors.Wrapf(errs.Corrupted, "output %d of %s needs %d sats but only %d are left", vout, tx.TxHash, value, ranges.Count())
		}
		outputs[vout] = &entity.OutputEntry{
			Value:     value,
			PkScript:  txOut.PkScript,
			Height:    u.height,
			SatRanges: ranges,
		}
		outputValue += value
	}
	return outputs, outputValue, nil
}

func (u *blockUpdater) putOutputs(ctx context.Context, tx *types.Transaction, outputs []*entity.OutputEntry) error {
	for vout, entry := range outputs {
		outPoint := wire.OutPoint{Hash: tx.TxHash, Index: uint32(vout)}
		var offset uint64
		for _, satRange := range entry.SatRanges {
			if err := u.ordDg.PutSatRange(ctx, satRange, ordinals.SatPoint{OutPoint: outPoint, Offset: offset}); err != nil {
				return errors.Wrap(err, "failed to put sat range")
			}
			offset += satRange.Count()
		}
		if err := u.ordDg.PutOutputEntry(ctx, outPoint, entry); err != nil {
			return errors.Wrapf(err, "failed to put output %s", outPoint)
		}
	}
	return nil
}

func (u *blockUpdater) getLostEntry(ctx context.Context) (*entity.OutputEntry, error) {
	if u.lostEntry != nil {
		return u.lostEntry, nil
	}
	entry, err := u.ordDg.GetOutputEntry(ctx, ordinals.NullOutPoint)
	if err != nil {
		if !errors.Is(err, errs.NotFound) {
			return nil, errors.Wrap(err, "failed to get lost output")
		}
		entry = &entity.OutputEntry{PkScript: []byte{}}
	}
	u.lostEntry = entry
	return entry, nil
}

// flush writes state kept in memory across the transactions of the block.
func (u *blockUpdater) flush(ctx context.Context) error {
	if u.lostEntry == nil {
		return nil
	}
	if err := u.ordDg.PutOutputEntry(ctx, ordinals.NullOutPoint, u.lostEntry); err != nil {
		return errors.Wrap(err, "failed to put lost output")
	}
	return nil
}
