package httphandler

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
	"github.com/gofiber/fiber/v2"
)

type getSatResult struct {
	Number uint64 `json:"number"`
	Height uint64 `json:"height"`
	// Decimal is "<height>.<offset in block subsidy>".
	Decimal      string                   `json:"decimal"`
	Rarity       ordinals.Rarity          `json:"rarity"`
	SatPoint     *ordinals.SatPoint       `json:"satpoint"`
	Inscriptions []ordinals.InscriptionId `json:"inscriptions"`
}

type getSatResponse = HttpResponse[getSatResult]

func (h *HttpHandler) GetSat(ctx *fiber.Ctx) (err error) {
	number, err := strconv.ParseUint(ctx.Params("sat"), 10, 64)
	if err != nil {
		return errs.NewPublicError("sat must be a non-negative integer")
	}

	sat, err := h.usecase.GetSat(ctx.UserContext(), ordinals.Sat(number))
	if err != nil {
		if errors.Is(err, errs.InvalidArgument) {
			return errs.NewPublicError("sat is beyond the supply")
		}
		return errors.Wrap(err, "error during GetSat")
	}

	return errors.WithStack(ctx.JSON(getSatResponse{
		Result: &getSatResult{
			Number:       uint64(sat.Sat),
			Height:       sat.Height,
			Decimal:      fmt.Sprintf("%d.%d", sat.Height, sat.Offset),
			Rarity:       sat.Rarity,
			SatPoint:     sat.SatPoint,
			Inscriptions: sat.Inscriptions,
		},
	}))
}
