package httphandler

import (
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
	"github.com/gofiber/fiber/v2"
)

type getWalletBalanceRequest struct {
	OutPoints []string `json:"outpoints"`
}

const getWalletBalanceMaxOutPoints = 1000

func (r getWalletBalanceRequest) Validate() ([]wire.OutPoint, error) {
	var errList []error
	if len(r.OutPoints) > getWalletBalanceMaxOutPoints {
		errList = append(errList, errors.Errorf("cannot exceed %d outpoints", getWalletBalanceMaxOutPoints))
	}
	outPoints := make([]wire.OutPoint, 0, len(r.OutPoints))
	for i, s := range r.OutPoints {
		outPoint, err := ordinals.NewOutPointFromString(s)
		if err != nil {
			errList = append(errList, errors.Errorf("outpoints[%d]: %q is not <txid>:<vout>", i, s))
			continue
		}
		outPoints = append(outPoints, outPoint)
	}
	if err := errors.Join(errList...); err != nil {
		return nil, errs.WithPublicMessage(err, "validation error")
	}
	return outPoints, nil
}

type getWalletBalanceResult struct {
	Cardinal uint64 `json:"cardinal"`
	Ordinal  uint64 `json:"ordinal"`
	// Runic and Runes are null when runes are not indexed.
	Runic *uint64       `json:"runic"`
	Runes []runeBalance `json:"runes"`
	Total uint64        `json:"total"`
}

type getWalletBalanceResponse = HttpResponse[getWalletBalanceResult]

func (h *HttpHandler) GetWalletBalance(ctx *fiber.Ctx) (err error) {
	var req getWalletBalanceRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errs.NewPublicError("invalid request body")
	}
	outPoints, err := req.Validate()
	if err != nil {
		return errors.WithStack(err)
	}

	balance, err := h.usecase.GetWalletBalance(ctx.UserContext(), outPoints)
	if err != nil {
		switch {
		case errors.Is(err, errs.NotFound):
			return notFound("wallet contains an output that is not indexed")
		case errors.Is(err, errs.InvalidArgument):
			return errs.NewPublicError("wallet contains a spent output")
		}
		return errors.Wrap(err, "error during GetWalletBalance")
	}

	result := &getWalletBalanceResult{
		Cardinal: balance.Cardinal,
		Ordinal:  balance.Ordinal,
		Runic:    balance.Runic,
		Total:    balance.Total,
	}
	if balance.Runes != nil {
		result.Runes = make([]runeBalance, 0, len(balance.Runes))
		for _, amount := range balance.Runes {
			result.Runes = append(result.Runes, mapRuneBalance(amount.Entry, amount.Amount))
		}
	}
	return errors.WithStack(ctx.JSON(getWalletBalanceResponse{Result: result}))
}
