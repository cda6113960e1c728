package usecase

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/core/types"
	"github.com/gaze-network/ord-indexer/modules/ord/datagateway"
)

func (u *Usecase) GetLatestBlock(ctx context.Context) (types.BlockHeader, error) {
	return query(ctx, u, func(s datagateway.OrdReaderDataGateway) (types.BlockHeader, error) {
		header, err := s.GetLatestBlock(ctx)
		if err != nil {
			return types.BlockHeader{}, errors.Wrap(err, "failed to get latest block")
		}
		return header, nil
	})
}

func (u *Usecase) GetBlockHash(ctx context.Context, height int64) (chainhash.Hash, error) {
	return query(ctx, u, func(s datagateway.OrdReaderDataGateway) (chainhash.Hash, error) {
		block, err := s.GetIndexedBlockByHeight(ctx, height)
		if err != nil {
			return chainhash.Hash{}, errors.Wrapf(err, "failed to get indexed block at height %d", height)
		}
		return block.Hash, nil
	})
}
