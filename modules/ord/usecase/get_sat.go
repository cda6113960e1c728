package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/modules/ord/datagateway"
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
)

type Sat struct {
	Sat    ordinals.Sat
	Height uint64
	// Offset is the position of the sat within the subsidy of its block.
	Offset uint64
	Rarity ordinals.Rarity
	// SatPoint is nil if the sat is not mined yet.
	SatPoint     *ordinals.SatPoint
	Inscriptions []ordinals.InscriptionId
}

func (u *Usecase) GetSat(ctx context.Context, sat ordinals.Sat) (*Sat, error) {
	if uint64(sat) >= ordinals.Supply(u.params) {
		return nil, errors.Wrapf(errs.InvalidArgument, "sat %d is beyond the supply", sat)
	}
	height := sat.Height(u.params)
	result := &Sat{
		Sat:    sat,
		Height: height,
		Offset: uint64(sat) - uint64(ordinals.FirstSatOfHeight(u.params, height)),
		Rarity: sat.Rarity(u.params),
	}

	return query(ctx, u, func(s datagateway.OrdReaderDataGateway) (*Sat, error) {
		satPoint, err := s.GetSatPoint(ctx, sat)
		switch {
		case err == nil:
			result.SatPoint = &satPoint
		case errors.Is(err, errs.NotFound):
		default:
			return nil, errors.Wrapf(err, "failed to get sat point of %d", sat)
		}

		result.Inscriptions, err = s.GetInscriptionIdsBySat(ctx, sat)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get inscriptions on sat %d", sat)
		}
		return result, nil
	})
}
