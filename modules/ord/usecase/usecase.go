package usecase

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common"
	"github.com/gaze-network/ord-indexer/modules/ord/datagateway"
)

// Usecase answers queries from a snapshot of the last committed block, so a response
// never mixes state from two blocks even while the indexer is committing.
type Usecase struct {
	ordDg      datagateway.OrdDataGateway
	network    common.Network
	params     *chaincfg.Params
	indexRunes bool
}

func New(ordDg datagateway.OrdDataGateway, network common.Network, indexRunes bool) *Usecase {
	return &Usecase{
		ordDg:      ordDg,
		network:    network,
		params:     network.ChainParams(),
		indexRunes: indexRunes,
	}
}

func (u *Usecase) Network() common.Network {
	return u.network
}

func (u *Usecase) IndexRunes() bool {
	return u.indexRunes
}

func query[T any](ctx context.Context, u *Usecase, fn func(s datagateway.OrdReaderDataGateway) (T, error)) (T, error) {
	var zero T
	snapshot, err := u.ordDg.Snapshot(ctx)
	if err != nil {
		return zero, errors.Wrap(err, "failed to take snapshot")
	}
	defer snapshot.Release()
	return fn(snapshot)
}
