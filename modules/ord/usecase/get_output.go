package usecase

import (
	"context"

	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/modules/ord/datagateway"
	"github.com/gaze-network/ord-indexer/modules/ord/internal/entity"
	"github.com/gaze-network/ord-indexer/modules/ord/runes"
)

type Output struct {
	*entity.OutputEntry
	// RuneEntries has an entry for every rune in OutputEntry.Runes.
	RuneEntries map[runes.RuneId]*runes.RuneEntry
}

func (u *Usecase) GetOutput(ctx context.Context, outPoint wire.OutPoint) (*Output, error) {
	return query(ctx, u, func(s datagateway.OrdReaderDataGateway) (*Output, error) {
		entry, err := s.GetOutputEntry(ctx, outPoint)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get output %s", outPoint)
		}
		runeEntries, err := getRuneEntries(ctx, s, entry.Runes)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return &Output{OutputEntry: entry, RuneEntries: runeEntries}, nil
	})
}

func getRuneEntries(ctx context.Context, s datagateway.OrdReaderDataGateway, balances []entity.RuneBalance) (map[runes.RuneId]*runes.RuneEntry, error) {
	result := make(map[runes.RuneId]*runes.RuneEntry, len(balances))
	for _, balance := range balances {
		if _, ok := result[balance.RuneId]; ok {
			continue
		}
		runeEntry, err := s.GetRuneEntryByRuneId(ctx, balance.RuneId)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get rune entry %s", balance.RuneId)
		}
		result[balance.RuneId] = runeEntry
	}
	return result, nil
}
