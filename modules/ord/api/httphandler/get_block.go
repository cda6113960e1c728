package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gofiber/fiber/v2"
)

type getBlockHeightResult struct {
	Height int64  `json:"height"`
	Hash   string `json:"hash"`
}

type getBlockHeightResponse = HttpResponse[getBlockHeightResult]

func (h *HttpHandler) GetBlockHeight(ctx *fiber.Ctx) (err error) {
	header, err := h.usecase.GetLatestBlock(ctx.UserContext())
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return notFound("no block indexed yet")
		}
		return errors.Wrap(err, "error during GetLatestBlock")
	}

	return errors.WithStack(ctx.JSON(getBlockHeightResponse{
		Result: &getBlockHeightResult{
			Height: header.Height,
			Hash:   header.Hash.String(),
		},
	}))
}

type getBlockHashRequest struct {
	Height int64 `params:"height"`
}

type getBlockHashResponse = HttpResponse[string]

func (h *HttpHandler) GetBlockHash(ctx *fiber.Ctx) (err error) {
	var req getBlockHashRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errs.NewPublicError("height must be a number")
	}
	if req.Height < 0 {
		return errs.NewPublicError("height must be non-negative")
	}

	hash, err := h.usecase.GetBlockHash(ctx.UserContext(), req.Height)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return notFound("block not found")
		}
		return errors.Wrap(err, "error during GetBlockHash")
	}

	result := hash.String()
	return errors.WithStack(ctx.JSON(getBlockHashResponse{Result: &result}))
}
