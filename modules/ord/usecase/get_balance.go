package usecase

import (
	"context"
	"slices"

	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/modules/ord/datagateway"
	"github.com/gaze-network/ord-indexer/modules/ord/runes"
	"github.com/gaze-network/ord-indexer/pkg/logger"
	"github.com/gaze-network/uint128"
)

// WalletBalance splits the value of a set of outputs by what they carry.
// Runic and Runes are nil when runes are not indexed.
type WalletBalance struct {
	Cardinal uint64
	Ordinal  uint64
	Runic    *uint64
	Runes    []RuneAmount
	Total    uint64
}

type RuneAmount struct {
	Entry  *runes.RuneEntry
	Amount uint128.Uint128
}

// GetWalletBalance sums unspent outputs. Inscribed outputs count as ordinal, rune bearing outputs
// as runic and the rest as cardinal. An output carrying both counts for both.
func (u *Usecase) GetWalletBalance(ctx context.Context, outPoints []wire.OutPoint) (*WalletBalance, error) {
	return query(ctx, u, func(s datagateway.OrdReaderDataGateway) (*WalletBalance, error) {
		result := &WalletBalance{}
		var runic uint64
		amounts := make(map[runes.RuneId]uint128.Uint128)

		seen := make(map[wire.OutPoint]struct{}, len(outPoints))
		for _, outPoint := range outPoints {
			if _, ok := seen[outPoint]; ok {
				continue
			}
			seen[outPoint] = struct{}{}

			output, err := s.GetOutputEntry(ctx, outPoint)
			if err != nil {
				if errors.Is(err, errs.NotFound) {
					return nil, errors.Wrapf(errs.NotFound, "output %s is not indexed", outPoint)
				}
				return nil, errors.Wrapf(err, "failed to get output %s", outPoint)
			}
			if output.Spent {
				return nil, errors.Wrapf(errs.InvalidArgument, "output %s is already spent", outPoint)
			}

			isOrdinal := len(output.Inscriptions) > 0
			isRunic := u.indexRunes && len(output.Runes) > 0
			if isOrdinal {
				result.Ordinal += output.Value
			}
			if isRunic {
				runic += output.Value
				for _, balance := range output.Runes {
					total, overflow := amounts[balance.RuneId].AddOverflow(balance.Amount)
					if overflow {
						return nil, errors.Wrapf(errs.OverflowUint128, "balance of rune %s", balance.RuneId)
					}
					amounts[balance.RuneId] = total
				}
			}
			if !isOrdinal && !isRunic {
				result.Cardinal += output.Value
			}
			if isOrdinal && isRunic {
				logger.WarnContext(ctx, "Output carries both inscriptions and runes", "outpoint", outPoint.String())
			}
		}

		result.Total = result.Cardinal + result.Ordinal + runic
		if !u.indexRunes {
			return result, nil
		}

		result.Runic = &runic
		result.Runes = make([]RuneAmount, 0, len(amounts))
		for runeId, amount := range amounts {
			entry, err := s.GetRuneEntryByRuneId(ctx, runeId)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to get rune entry %s", runeId)
			}
			result.Runes = append(result.Runes, RuneAmount{Entry: entry, Amount: amount})
		}
		slices.SortFunc(result.Runes, func(a, b RuneAmount) int {
			return a.Entry.SpacedRune.Rune.Cmp(b.Entry.SpacedRune.Rune)
		})
		return result, nil
	})
}
