package httphandler

import (
	"encoding/hex"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
	"github.com/gaze-network/ord-indexer/modules/ord/runes"
	"github.com/gaze-network/ord-indexer/pkg/btcutils"
	"github.com/gaze-network/ord-indexer/pkg/decimals"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

type getOutputRequest struct {
	OutPoint string `params:"outpoint"`
}

type runeBalance struct {
	Id     runes.RuneId     `json:"id"`
	Name   runes.SpacedRune `json:"name"`
	Symbol *string          `json:"symbol"`
	Amount uint128.Uint128  `json:"amount"`
	// Decimal is Amount shifted by the divisibility of the rune.
	Decimal string `json:"decimal"`
}

type getOutputResult struct {
	Value        uint64                   `json:"value"`
	PkScript     string                   `json:"pkScript"`
	Address      string                   `json:"address,omitempty"`
	Height       uint64                   `json:"height"`
	Spent        bool                     `json:"spent"`
	SatRanges    [][2]uint64              `json:"satRanges"`
	Inscriptions []ordinals.InscriptionId `json:"inscriptions"`
	Runes        []runeBalance            `json:"runes"`
}

type getOutputResponse = HttpResponse[getOutputResult]

func (h *HttpHandler) GetOutput(ctx *fiber.Ctx) (err error) {
	var req getOutputRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	outPoint, err := ordinals.NewOutPointFromString(req.OutPoint)
	if err != nil {
		return errs.NewPublicError("invalid outpoint, expected <txid>:<vout>")
	}

	output, err := h.usecase.GetOutput(ctx.UserContext(), outPoint)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return notFound("output not found")
		}
		return errors.Wrap(err, "error during GetOutput")
	}

	result := &getOutputResult{
		Value:        output.Value,
		PkScript:     hex.EncodeToString(output.PkScript),
		Address:      btcutils.AddressFromPkScript(output.PkScript, h.network.ChainParams()),
		Height:       output.Height,
		Spent:        output.Spent,
		SatRanges:    make([][2]uint64, 0, len(output.SatRanges)),
		Inscriptions: make([]ordinals.InscriptionId, 0, len(output.Inscriptions)),
		Runes:        make([]runeBalance, 0, len(output.Runes)),
	}
	for _, satRange := range output.SatRanges {
		result.SatRanges = append(result.SatRanges, [2]uint64{satRange.Start, satRange.End})
	}
	for _, inscription := range output.Inscriptions {
		result.Inscriptions = append(result.Inscriptions, inscription.InscriptionId)
	}
	for _, balance := range output.Runes {
		result.Runes = append(result.Runes, mapRuneBalance(output.RuneEntries[balance.RuneId], balance.Amount))
	}
	return errors.WithStack(ctx.JSON(getOutputResponse{Result: result}))
}

func mapRuneBalance(entry *runes.RuneEntry, amount uint128.Uint128) runeBalance {
	return runeBalance{
		Id:      entry.RuneId,
		Name:    entry.SpacedRune,
		Symbol:  runeSymbol(entry),
		Amount:  amount,
		Decimal: decimals.FromUint128(amount, entry.Divisibility).String(),
	}
}

// runeSymbol is nil for runes etched without a symbol.
func runeSymbol(entry *runes.RuneEntry) *string {
	if entry.Symbol == 0 {
		return nil
	}
	return lo.ToPtr(string(entry.Symbol))
}
