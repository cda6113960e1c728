package httphandler

import (
	"context"
	"net/url"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/modules/ord/runes"
	"github.com/gaze-network/ord-indexer/modules/ord/usecase"
)

type HttpHandler struct {
	usecase *usecase.Usecase
	network common.Network
}

func New(network common.Network, usecase *usecase.Usecase) *HttpHandler {
	return &HttpHandler{
		usecase: usecase,
		network: network,
	}
}

type HttpResponse[T any] struct {
	Error  *string `json:"error"`
	Result *T      `json:"result,omitempty"`
}

// notFound is rendered as a 404 carrying message.
func notFound(message string) error {
	return errors.Mark(errs.NewPublicError(message), errs.NotFound)
}

// resolveRune accepts a rune id ("840000:1") or a rune name with or without spacers.
func (h *HttpHandler) resolveRune(ctx context.Context, id string) (*runes.RuneEntry, error) {
	id, err := url.PathUnescape(id)
	if err != nil {
		return nil, errs.NewPublicError("invalid rune id or name")
	}

	if runeId, err := runes.NewRuneIdFromString(id); err == nil {
		entry, err := h.usecase.GetRuneEntryByRuneId(ctx, runeId)
		if err != nil {
			if errors.Is(err, errs.NotFound) {
				return nil, notFound("rune not found")
			}
			return nil, errors.Wrap(err, "error during GetRuneEntryByRuneId")
		}
		return entry, nil
	}

	spacedRune, err := runes.NewSpacedRuneFromString(id)
	if err != nil {
		return nil, errs.NewPublicError("id is neither a rune id nor a rune name")
	}
	entry, err := h.usecase.GetRuneEntryByRune(ctx, spacedRune.Rune)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return nil, notFound("rune not found")
		}
		return nil, errors.Wrap(err, "error during GetRuneEntryByRune")
	}
	return entry, nil
}
