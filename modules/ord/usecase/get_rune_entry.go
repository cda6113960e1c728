package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/modules/ord/datagateway"
	"github.com/gaze-network/ord-indexer/modules/ord/runes"
)

func (u *Usecase) GetRuneEntryByRuneId(ctx context.Context, runeId runes.RuneId) (*runes.RuneEntry, error) {
	return query(ctx, u, func(s datagateway.OrdReaderDataGateway) (*runes.RuneEntry, error) {
		entry, err := s.GetRuneEntryByRuneId(ctx, runeId)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get rune entry by rune id")
		}
		return entry, nil
	})
}

func (u *Usecase) GetRuneEntryByRune(ctx context.Context, rune runes.Rune) (*runes.RuneEntry, error) {
	return query(ctx, u, func(s datagateway.OrdReaderDataGateway) (*runes.RuneEntry, error) {
		runeId, err := s.GetRuneIdFromRune(ctx, rune)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get rune id from rune")
		}
		entry, err := s.GetRuneEntryByRuneId(ctx, runeId)
		if err != nil {
			if errors.Is(err, errs.NotFound) {
				return nil, errors.Wrapf(errs.Corrupted, "rune %s maps to missing entry %s", rune, runeId)
			}
			return nil, errors.Wrap(err, "failed to get rune entry by rune id")
		}
		return entry, nil
	})
}
