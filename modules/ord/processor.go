package ord

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/core/indexer"
	"github.com/gaze-network/ord-indexer/core/types"
	"github.com/gaze-network/ord-indexer/modules/ord/datagateway"
	"github.com/gaze-network/ord-indexer/modules/ord/internal/entity"
	"github.com/gaze-network/ord-indexer/modules/ord/runes"
	"github.com/gaze-network/ord-indexer/pkg/logger"
	"github.com/gaze-network/ord-indexer/pkg/logger/slogx"
	"github.com/gaze-network/uint128"
	"github.com/samber/lo"
)

var _ indexer.Processor[*types.Block] = (*Processor)(nil)

type Processor struct {
	ordDg         datagateway.OrdDataGateway
	indexerInfoDg datagateway.IndexerInfoDataGateway
	network       common.Network
	params        *chaincfg.Params

	indexRunes        bool
	indexInscriptions bool

	// stagedHeight is the height of the block staged by Process and not yet committed, -1 if none.
	stagedHeight int64
	cleanupFuncs []func(context.Context) error
}

type ProcessorOptions struct {
	IndexRunes        bool
	IndexInscriptions bool
}

func NewProcessor(ordDg datagateway.OrdDataGateway, indexerInfoDg datagateway.IndexerInfoDataGateway, network common.Network, opts ProcessorOptions, cleanupFuncs []func(context.Context) error) *Processor {
	return &Processor{
		ordDg:             ordDg,
		indexerInfoDg:     indexerInfoDg,
		network:           network,
		params:            network.ChainParams(),
		indexRunes:        opts.IndexRunes,
		indexInscriptions: opts.IndexInscriptions,
		stagedHeight:      -1,
		cleanupFuncs:      cleanupFuncs,
	}
}

func (p *Processor) VerifyStates(ctx context.Context) error {
	if err := p.ensureValidState(ctx); err != nil {
		return errors.Wrap(err, "error during ensureValidState")
	}
	if p.indexRunes && p.network == common.NetworkMainnet {
		if err := p.ensureGenesisRune(ctx); err != nil {
			return errors.Wrap(err, "error during ensureGenesisRune")
		}
	}
	return nil
}

func (p *Processor) ensureValidState(ctx context.Context) error {
	state, err := p.indexerInfoDg.GetIndexerState(ctx)
	if err != nil && !errors.Is(err, errs.NotFound) {
		return errors.Wrap(err, "failed to get indexer state")
	}
	if errors.Is(err, errs.NotFound) {
		if err := p.indexerInfoDg.SetIndexerState(ctx, entity.IndexerState{
			CreatedAt:         time.Now().UTC(),
			ClientVersion:     Version,
			DBVersion:         DBVersion,
			Network:           p.network,
			IndexRunes:        p.indexRunes,
			IndexInscriptions: p.indexInscriptions,
		}); err != nil {
			return errors.Wrap(err, "failed to set indexer state")
		}
		return nil
	}

	if state.DBVersion != DBVersion {
		return errors.Wrapf(errs.ConflictSetting, "db version mismatch: current version is %d. Please upgrade to version %d", state.DBVersion, DBVersion)
	}
	if state.Network != p.network {
		return errors.Wrapf(errs.ConflictSetting, "network mismatch: latest indexed network is %s, configured network is %s. If you want to change the network, please reset the database", state.Network, p.network)
	}
	if state.IndexRunes != p.indexRunes || state.IndexInscriptions != p.indexInscriptions {
		return errors.Wrapf(errs.ConflictSetting, "index options mismatch: database was built with index_runes=%t index_inscriptions=%t. Please reset the database to change them", state.IndexRunes, state.IndexInscriptions)
	}
	if state.ClientVersion != Version {
		state.ClientVersion = Version
		if err := p.indexerInfoDg.SetIndexerState(ctx, state); err != nil {
			return errors.Wrap(err, "failed to update indexer state")
		}
	}
	return nil
}

var genesisRuneId = runes.RuneId{BlockHeight: 1, TxIndex: 0}

// ensureGenesisRune creates UNCOMMON•GOODS. It is committed without an undo record so reorgs never remove it.
func (p *Processor) ensureGenesisRune(ctx context.Context) error {
	_, err := p.ordDg.GetRuneEntryByRuneId(ctx, genesisRuneId)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errs.NotFound) {
		return errors.Wrap(err, "failed to get genesis rune entry")
	}

	runeEntry := &runes.RuneEntry{
		RuneId:       genesisRuneId,
		Number:       0,
		Divisibility: 0,
		Premine:      uint128.Zero,
		SpacedRune:   runes.NewSpacedRune(runes.NewRune(2055900680524219742), 0b10000000),
		Symbol:       '⧉',
		Terms: &runes.Terms{
			Amount:      lo.ToPtr(uint128.From64(1)),
			Cap:         lo.ToPtr(uint128.Max),
			HeightStart: lo.ToPtr(uint64(runes.SubsidyHalvingInterval * 4)),
			HeightEnd:   lo.ToPtr(uint64(runes.SubsidyHalvingInterval * 5)),
		},
		Turbo:        true,
		Mints:        uint128.Zero,
		Burned:       uint128.Zero,
		EtchingBlock: genesisRuneId.BlockHeight,
	}
	stats, err := p.ordDg.GetStats(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get stats")
	}
	stats.Runes++
	if err := p.ordDg.PutRuneEntry(ctx, runeEntry); err != nil {
		return errors.Wrap(err, "failed to create genesis rune entry")
	}
	if err := p.ordDg.PutStats(ctx, stats); err != nil {
		return errors.Wrap(err, "failed to put stats")
	}
	if err := p.ordDg.Commit(ctx, -1); err != nil {
		p.ordDg.Discard()
		return errors.Wrap(err, "failed to commit genesis rune entry")
	}
	logger.InfoContext(ctx, "[OrdProcessor] created genesis rune", slogx.Stringer("rune", runeEntry.SpacedRune))
	return nil
}

func (p *Processor) Name() string {
	return "Ord"
}

// CurrentBlock returns errs.NotFound when nothing is indexed yet.
func (p *Processor) CurrentBlock(ctx context.Context) (types.BlockHeader, error) {
	blockHeader, err := p.ordDg.GetLatestBlock(ctx)
	if err != nil {
		return types.BlockHeader{}, errors.Wrap(err, "failed to get latest block")
	}
	return blockHeader, nil
}

func (p *Processor) GetIndexedBlock(ctx context.Context, height int64) (types.BlockHeader, error) {
	block, err := p.ordDg.GetIndexedBlockByHeight(ctx, height)
	if err != nil {
		return types.BlockHeader{}, errors.Wrap(err, "failed to get indexed block")
	}
	return block.BlockHeader(), nil
}

func (p *Processor) Commit(ctx context.Context) error {
	if p.stagedHeight < 0 {
		return nil
	}
	if err := p.ordDg.Commit(ctx, p.stagedHeight); err != nil {
		return errors.Wrapf(err, "failed to commit block %d", p.stagedHeight)
	}
	p.stagedHeight = -1
	return nil
}

func (p *Processor) Discard() {
	p.ordDg.Discard()
	p.stagedHeight = -1
}

// RevertData reverts every committed block above to, newest first.
func (p *Processor) RevertData(ctx context.Context, to int64) error {
	p.Discard()
	current, err := p.ordDg.GetLatestBlock(ctx)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return nil
		}
		return errors.Wrap(err, "failed to get latest block")
	}
	for height := current.Height; height > to; height-- {
		if err := p.ordDg.Revert(ctx, height); err != nil {
			return errors.Wrapf(err, "failed to revert block %d", height)
		}
		logger.InfoContext(ctx, "[OrdProcessor] reverted block",
			slogx.String("event", "block_reverted"),
			slogx.Int64("height", height),
		)
	}
	return nil
}

func (p *Processor) Shutdown(ctx context.Context) error {
	p.Discard()
	var errList []error
	for _, cleanup := range p.cleanupFuncs {
		if err := cleanup(ctx); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.WithStack(errors.Join(errList...))
}
