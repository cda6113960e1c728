package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/modules/ord/runes"
	"github.com/gaze-network/ord-indexer/pkg/decimals"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
)

type runeTerms struct {
	Amount      *uint128.Uint128 `json:"amount"`
	Cap         *uint128.Uint128 `json:"cap"`
	HeightStart *uint64          `json:"heightStart"`
	HeightEnd   *uint64          `json:"heightEnd"`
	OffsetStart *uint64          `json:"offsetStart"`
	OffsetEnd   *uint64          `json:"offsetEnd"`
}

type getRuneResult struct {
	Id           runes.RuneId     `json:"id"`
	Number       uint64           `json:"number"`
	Name         runes.SpacedRune `json:"name"`
	Symbol       *string          `json:"symbol"`
	Divisibility uint8            `json:"divisibility"`
	Premine      uint128.Uint128  `json:"premine"`
	Supply       string           `json:"supply"`
	Mints        uint128.Uint128  `json:"mints"`
	Burned       uint128.Uint128  `json:"burned"`
	Terms        *runeTerms       `json:"terms"`
	Turbo        bool             `json:"turbo"`
	Mintable     bool             `json:"mintable"`
	EtchingBlock uint64           `json:"etchingBlock"`
	EtchingTx    string           `json:"etchingTx"`
	Timestamp    int64            `json:"timestamp"`
}

type getRuneResponse = HttpResponse[getRuneResult]

func (h *HttpHandler) GetRune(ctx *fiber.Ctx) (err error) {
	entry, err := h.resolveRune(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	supply, err := entry.Supply()
	if err != nil {
		return errors.Wrap(err, "cannot get supply of rune")
	}

	mintable := false
	if header, err := h.usecase.GetLatestBlock(ctx.UserContext()); err == nil {
		_, mintErr := entry.MintableAmount(uint64(header.Height) + 1)
		mintable = mintErr == nil
	}

	result := &getRuneResult{
		Id:           entry.RuneId,
		Number:       entry.Number,
		Name:         entry.SpacedRune,
		Symbol:       runeSymbol(entry),
		Divisibility: entry.Divisibility,
		Premine:      entry.Premine,
		Supply:       decimals.FromUint128(supply, entry.Divisibility).String(),
		Mints:        entry.Mints,
		Burned:       entry.Burned,
		Turbo:        entry.Turbo,
		Mintable:     mintable,
		EtchingBlock: entry.EtchingBlock,
		EtchingTx:    entry.EtchingTx.String(),
		Timestamp:    entry.EtchedAt.Unix(),
	}
	if terms := entry.Terms; terms != nil {
		result.Terms = &runeTerms{
			Amount:      terms.Amount,
			Cap:         terms.Cap,
			HeightStart: terms.HeightStart,
			HeightEnd:   terms.HeightEnd,
			OffsetStart: terms.OffsetStart,
			OffsetEnd:   terms.OffsetEnd,
		}
	}
	return errors.WithStack(ctx.JSON(getRuneResponse{Result: result}))
}

